package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

//go:embed overrides.toml
var defaultOverridesTOML []byte

// overrideFile is the top-level TOML structure for bank rule overrides.
type overrideFile struct {
	Version int                     `toml:"version"`
	Banks   map[string]bankOverride `toml:"banks"`
}

// bankOverride is one bank's additions to the base RuleSet. Keyword lists
// extend the base sets; pattern lists are appended; flags are tri-state
// (absent means "inherit the base value").
type bankOverride struct {
	CreditKeywords    []string `toml:"credit_keywords"`
	DebitKeywords     []string `toml:"debit_keywords"`
	SkipKeywords      []string `toml:"skip_keywords"`
	AmountPatterns    []string `toml:"amount_patterns"`
	LinePatterns      []string `toml:"line_patterns"`
	PreferFirstAmount *bool    `toml:"prefer_first_amount"`
	HasRunningBalance *bool    `toml:"has_running_balance"`
	MergeMultiline    *bool    `toml:"merge_multiline"`
}

type compiledOverride struct {
	credit, debit, skip []string
	amountPatterns      []*regexp.Regexp
	linePatterns        []*regexp.Regexp
	preferFirstAmount   *bool
	hasRunningBalance   *bool
	mergeMultiline      *bool
}

// Provider resolves bank identifiers to merged RuleSets. It is immutable
// after construction; Resolve is a pure function of the bank ID and is safe
// to call from concurrent parses.
type Provider struct {
	overrides map[string][]compiledOverride
}

// NewProvider loads the embedded, versioned override table.
func NewProvider() (*Provider, error) {
	p := &Provider{overrides: make(map[string][]compiledOverride)}
	if err := p.load(defaultOverridesTOML); err != nil {
		return nil, fmt.Errorf("rules: embedded overrides: %w", err)
	}
	return p, nil
}

// NewProviderFromFile loads the embedded overrides and then layers a local
// override file on top. Entries in the file extend (never replace) both the
// base RuleSet and the embedded overrides for the same bank.
func NewProviderFromFile(path string) (*Provider, error) {
	p, err := NewProvider()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read overrides %q: %w", path, err)
	}
	if err := p.load(raw); err != nil {
		return nil, fmt.Errorf("rules: overrides %q: %w", path, err)
	}
	return p, nil
}

func (p *Provider) load(raw []byte) error {
	var file overrideFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	for bankID, ov := range file.Banks {
		compiled, err := compileOverride(ov)
		if err != nil {
			return fmt.Errorf("bank %q: %w", bankID, err)
		}
		key := Fold(bankID)
		p.overrides[key] = append(p.overrides[key], compiled)
	}
	return nil
}

func compileOverride(ov bankOverride) (compiledOverride, error) {
	out := compiledOverride{
		credit:            ov.CreditKeywords,
		debit:             ov.DebitKeywords,
		skip:              ov.SkipKeywords,
		preferFirstAmount: ov.PreferFirstAmount,
		hasRunningBalance: ov.HasRunningBalance,
		mergeMultiline:    ov.MergeMultiline,
	}
	for _, expr := range ov.AmountPatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return out, fmt.Errorf("amount pattern %q: %w", expr, err)
		}
		out.amountPatterns = append(out.amountPatterns, re)
	}
	for _, expr := range ov.LinePatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return out, fmt.Errorf("line pattern %q: %w", expr, err)
		}
		out.linePatterns = append(out.linePatterns, re)
	}
	return out, nil
}

// Resolve builds the RuleSet for a bank: a fresh copy of the base with the
// bank's overrides unioned in. Unknown bank IDs yield the base unchanged.
func (p *Provider) Resolve(bankID string) RuleSet {
	rs := Base()
	rs.BankID = Fold(bankID)
	for _, ov := range p.overrides[rs.BankID] {
		for _, kw := range ov.credit {
			rs.CreditKeywords[Fold(kw)] = true
		}
		for _, kw := range ov.debit {
			rs.DebitKeywords[Fold(kw)] = true
		}
		for _, kw := range ov.skip {
			rs.SkipKeywords[Fold(kw)] = true
		}
		rs.AmountPatterns = append(rs.AmountPatterns, ov.amountPatterns...)
		rs.LinePatterns = append(rs.LinePatterns, ov.linePatterns...)
		if ov.preferFirstAmount != nil {
			rs.PreferFirstAmount = *ov.preferFirstAmount
		}
		if ov.hasRunningBalance != nil {
			rs.HasRunningBalance = *ov.hasRunningBalance
		}
		if ov.mergeMultiline != nil {
			rs.MergeMultiline = *ov.mergeMultiline
		}
	}
	return rs
}

// Known returns the bank IDs that carry explicit overrides.
func (p *Provider) Known() []string {
	out := make([]string, 0, len(p.overrides))
	for id := range p.overrides {
		out = append(out, id)
	}
	return out
}
