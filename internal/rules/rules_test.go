package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase_FreshCopies(t *testing.T) {
	a := Base()
	b := Base()

	a.CreditKeywords["traspaso"] = true

	assert.False(t, b.CreditKeywords["traspaso"], "mutating one copy must not leak into another")
}

func TestResolve_UnknownBankYieldsBase(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)

	rs := resolveChecked(t, p, "banco-inexistente")
	base := Base()

	assert.Equal(t, len(base.CreditKeywords), len(rs.CreditKeywords))
	assert.Equal(t, len(base.DebitKeywords), len(rs.DebitKeywords))
	assert.Equal(t, len(base.SkipKeywords), len(rs.SkipKeywords))
}

// resolveChecked is a test helper that also asserts the superset invariant on
// every resolution: base keywords must always survive an override.
func resolveChecked(t *testing.T, p *Provider, bankID string) RuleSet {
	t.Helper()
	rs := p.Resolve(bankID)
	for kw := range Base().CreditKeywords {
		require.True(t, rs.CreditKeywords[kw], "base credit keyword %q missing after override", kw)
	}
	for kw := range Base().DebitKeywords {
		require.True(t, rs.DebitKeywords[kw], "base debit keyword %q missing after override", kw)
	}
	return rs
}

func TestResolve_OverrideExtendsKeywords(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)

	rs := resolveChecked(t, p, "bbva")

	assert.True(t, rs.CreditKeywords["su pago en efectivo"])
	assert.True(t, rs.DebitKeywords["cargo recurrente"])
	assert.NotEmpty(t, rs.LinePatterns)
}

func TestResolve_FileOverrideAddsTraspaso(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.toml")
	content := "version = 1\n\n[banks.bbva]\ncredit_keywords = [\"traspaso\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := NewProviderFromFile(path)
	require.NoError(t, err)

	rs := resolveChecked(t, p, "bbva")

	assert.True(t, rs.CreditKeywords["traspaso"], "file override keyword must be present")
	// Embedded override keywords survive alongside the file's additions.
	assert.True(t, rs.CreditKeywords["su pago en efectivo"])
}

func TestResolve_FlagInheritance(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)

	// azteca sets has_running_balance=false; merge_multiline is inherited.
	rs := p.Resolve("azteca")
	assert.False(t, rs.HasRunningBalance)
	assert.True(t, rs.MergeMultiline)

	// santander flips prefer_first_amount only.
	rs = p.Resolve("santander")
	assert.True(t, rs.PreferFirstAmount)
	assert.True(t, rs.HasRunningBalance)
}

func TestResolve_ResolutionsAreIndependent(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)

	a := p.Resolve("bbva")
	a.CreditKeywords["mutacion local"] = true

	b := p.Resolve("bbva")
	assert.False(t, b.CreditKeywords["mutacion local"], "Resolve must return fresh values per call")
}

func TestNewProviderFromFile_BadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	content := "version = 1\n\n[banks.bbva]\nline_patterns = [\"([unclosed\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := NewProviderFromFile(path)
	require.Error(t, err)
}

func TestFold(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"COMISIÓN  POR  MANEJO", "comision por manejo"},
		{"Depósito en Efectivo", "deposito en efectivo"},
		{"  SPEI   RECIBIDO ", "spei recibido"},
		{"AÑO", "ano"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestRuleSetKeywordMatching(t *testing.T) {
	rs := Base()

	assert.True(t, rs.HasCredit("SPEI RECIBIDO BANORTE 0012"))
	assert.True(t, rs.HasDebit("COMPRA OXXO MONTERREY"))
	assert.True(t, rs.IsSkip("SALDO ANTERIOR"))
	assert.False(t, rs.HasCredit("COMPRA OXXO MONTERREY"))
}
