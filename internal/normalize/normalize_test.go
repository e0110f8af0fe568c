package normalize

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/extract"
	"github.com/ledgerline/statement-engine/internal/rules"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func tx(desc, amount string) domain.Transaction {
	return domain.Transaction{
		Date:        civil.Date{Year: 2024, Month: 5, Day: 2},
		Description: desc,
		Amount:      dec(amount),
		Confidence:  0.9,
	}
}

func TestMergeContinuations(t *testing.T) {
	rawLines := []string{
		"02/05/2024 COMPRA TARJETA 450.00 9,550.00",
		"RESTAURANTE LA CASA DE TONO CDMX",
		"SALDO FINAL 9,550.00",
	}
	res := extract.Result{
		Transactions: []domain.Transaction{tx("COMPRA TARJETA", "450.00")},
		LineOf:       []int{0},
		Matched:      map[int]bool{0: true},
	}

	merged := MergeContinuations(res, rawLines, rules.Base())
	require.Len(t, merged, 1)
	assert.Equal(t, "COMPRA TARJETA RESTAURANTE LA CASA DE TONO CDMX", merged[0].Description)
}

func TestMergeContinuations_DisabledByRuleSet(t *testing.T) {
	rs := rules.Base()
	rs.MergeMultiline = false

	res := extract.Result{
		Transactions: []domain.Transaction{tx("COMPRA TARJETA", "450.00")},
		LineOf:       []int{0},
		Matched:      map[int]bool{0: true},
	}
	merged := MergeContinuations(res, []string{"linea", "FRAGMENTO SUELTO"}, rs)
	assert.Equal(t, "COMPRA TARJETA", merged[0].Description)
}

func TestNormalize_DirectionAndSign(t *testing.T) {
	out := Normalize([]domain.Transaction{
		tx("SPEI RECIBIDO BANORTE 0012", "5000.00"),
		tx("COMPRA OXXO MONTERREY", "150.00"),
		tx("CARGO NETFLIX MEXICO", "219.00"),
	}, rules.Base(), DefaultConfig())

	require.Len(t, out.Transactions, 3)

	spei := out.Transactions[0]
	assert.Equal(t, domain.Credit, spei.Direction)
	assert.True(t, spei.Amount.IsPositive())
	assert.Equal(t, domain.Transfer, spei.Kind)

	oxxo := out.Transactions[1]
	assert.Equal(t, domain.Debit, oxxo.Direction)
	assert.True(t, oxxo.Amount.IsNegative())
	assert.Equal(t, domain.Expense, oxxo.Kind)

	netflix := out.Transactions[2]
	assert.Equal(t, domain.Debit, netflix.Direction)
	assert.Equal(t, "-219", netflix.Amount.String())
}

func TestNormalize_BalanceDeltaResolvesDirection(t *testing.T) {
	txs := []domain.Transaction{
		tx("SPEI RECIBIDO NOMINA", "1000.00"),
		tx("MOVTO TPV 8841", "250.00"),
		tx("MOVTO TPV 8842", "500.00"),
	}
	txs[0].BalanceAfter = decPtr("1000.00")
	txs[1].BalanceAfter = decPtr("1250.00")
	txs[2].BalanceAfter = decPtr("750.00")

	out := Normalize(txs, rules.Base(), DefaultConfig())
	require.Len(t, out.Transactions, 3)
	assert.Equal(t, domain.Credit, out.Transactions[1].Direction)
	assert.Equal(t, domain.Debit, out.Transactions[2].Direction)
}

func TestNormalize_SmallAmountFallbackIsDebit(t *testing.T) {
	small := tx("OXXO MTY 22", "150.00")
	small.BalanceAfter = decPtr("10000.00")

	out := Normalize([]domain.Transaction{small}, rules.Base(), DefaultConfig())
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, domain.Debit, out.Transactions[0].Direction)
	assert.Equal(t, "-150", out.Transactions[0].Amount.String())
}

func TestNormalize_RejectsZeroAndCeiling(t *testing.T) {
	out := Normalize([]domain.Transaction{
		tx("MOVTO TPV 8841", "0.00"),
		tx("MOVTO TPV 8842", "2000000.00"),
		tx("COMPRA OXXO", "150.00"),
	}, rules.Base(), DefaultConfig())

	require.Len(t, out.Transactions, 1)
	assert.Equal(t, 2, out.Dropped)
	assert.Equal(t, "COMPRA OXXO", out.Transactions[0].Description)
}

func TestNormalize_BalanceCarryRowFeedsBalances(t *testing.T) {
	opening := tx("SALDO ANTERIOR", "0.00")
	opening.BalanceAfter = decPtr("10000.00")
	closing := tx("SALDO FINAL", "0.00")
	closing.BalanceAfter = decPtr("14300.00")

	out := Normalize([]domain.Transaction{
		opening,
		tx("SPEI RECIBIDO BANORTE", "5000.00"),
		closing,
	}, rules.Base(), DefaultConfig())

	require.Len(t, out.Transactions, 1)
	require.NotNil(t, out.OpeningBalance)
	require.NotNil(t, out.ClosingBalance)
	assert.Equal(t, "10000", out.OpeningBalance.String())
	assert.Equal(t, "14300", out.ClosingBalance.String())
}

func TestNormalize_DeduplicatesAndMerges(t *testing.T) {
	a := tx("COMPRA OXXO MONTERREY", "150.00")
	b := tx("COMPRA OXXO MONTERREY", "150.00")
	b.BalanceAfter = decPtr("14850.00")
	b.Reference = "REF001"

	out := Normalize([]domain.Transaction{a, b}, rules.Base(), DefaultConfig())
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, 1, out.Dropped)

	kept := out.Transactions[0]
	assert.Equal(t, "COMPRA OXXO MONTERREY", kept.Description)
	require.NotNil(t, kept.BalanceAfter)
	assert.Equal(t, "14850", kept.BalanceAfter.String())
	assert.Equal(t, "REF001", kept.Reference)
}

func TestNormalize_Idempotent(t *testing.T) {
	first := Normalize([]domain.Transaction{
		tx("SPEI RECIBIDO BANORTE 0012", "5000.00"),
		tx("COMPRA OXXO MONTERREY", "150.00"),
		tx("RETIRO CAJERO AUTOMATICO", "2000.00"),
	}, rules.Base(), DefaultConfig())

	second := Normalize(first.Transactions, rules.Base(), DefaultConfig())
	assert.Equal(t, first.Transactions, second.Transactions)
	assert.Zero(t, second.Dropped)
}

func TestStatedBalances(t *testing.T) {
	lines := []string{
		"BBVA MEXICO, S.A. ESTADO DE CUENTA",
		"SALDO ANTERIOR 10,000.00",
		"02/05/2024 COMPRA OXXO 150.00 9,850.00",
		"SALDO FINAL 9,850.00",
	}

	opening, closing := StatedBalances(lines, rules.Base())
	require.NotNil(t, opening)
	require.NotNil(t, closing)
	assert.Equal(t, "10000", opening.String())
	assert.Equal(t, "9850", closing.String())
}

func TestStatedBalances_OverdrawnOpening(t *testing.T) {
	lines := []string{
		"SALDO ANTERIOR 1,234.56-",
		"SALDO FINAL (250.00)",
	}

	opening, closing := StatedBalances(lines, rules.Base())
	require.NotNil(t, opening)
	require.NotNil(t, closing)
	assert.Equal(t, "-1234.56", opening.String())
	assert.Equal(t, "-250", closing.String())
}
