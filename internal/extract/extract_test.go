package extract

import (
	"fmt"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/logger"
	"github.com/ledgerline/statement-engine/internal/rules"
)

const sampleStatement = `BBVA MEXICO, S.A. ESTADO DE CUENTA
PERIODO DEL 01/05/2024 AL 31/05/2024
SALDO ANTERIOR 10,000.00
02/05/2024 SPEI RECIBIDO BANORTE 0012 5,000.00 15,000.00
05/05/2024 COMPRA OXXO MONTERREY 150.00 14,850.00
07/05/2024 RETIRO CAJERO AUTOMATICO 2,000.00 12,850.00
12/05/2024 DEPOSITO EN EFECTIVO 1,500.00 14,350.00
20/05/2024 COMISION MANEJO DE CUENTA 50.00 14,300.00
SALDO FINAL 14,300.00`

func TestParseDate(t *testing.T) {
	tests := []struct {
		token string
		want  civil.Date
		ok    bool
	}{
		{"02/05/2024", civil.Date{Year: 2024, Month: 5, Day: 2}, true},
		{"2-5-24", civil.Date{Year: 2024, Month: 5, Day: 2}, true},
		{"02/MAY/2024", civil.Date{Year: 2024, Month: 5, Day: 2}, true},
		{"02-ene-24", civil.Date{Year: 2024, Month: 1, Day: 2}, true},
		{"15 AGO 2023", civil.Date{Year: 2023, Month: 8, Day: 15}, true},
		{"31/02/2024", civil.Date{}, false}, // not a real day
		{"45/05/2024", civil.Date{}, false},
		{"OXXO", civil.Date{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := parseDate(tt.token, 0)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		token    string
		want     string
		negative bool
		ok       bool
	}{
		{"1,234.56", "1234.56", false, true},
		{"$ 1,234.56", "1234.56", false, true},
		{"(1,234.56)", "1234.56", true, true},
		{"1,234.56-", "1234.56", true, true},
		{"-1,234.56", "1234.56", true, true},
		{"OXXO", "", false, false},
		{"1234", "", false, false}, // no decimals, not a money token
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, negative, ok := parseAmount(tt.token)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.negative, negative)
		})
	}
}

func TestStandard_Extract(t *testing.T) {
	res, err := Standard{}.Extract(sampleStatement, rules.Base())
	require.NoError(t, err)
	require.Len(t, res.Transactions, 5)

	first := res.Transactions[0]
	assert.Equal(t, "SPEI RECIBIDO BANORTE 0012", first.Description)
	assert.Equal(t, civil.Date{Year: 2024, Month: 5, Day: 2}, first.Date)
	assert.Equal(t, "5000", first.Amount.String())
	require.NotNil(t, first.BalanceAfter)
	assert.Equal(t, "15000", first.BalanceAfter.String())

	// Header and balance-carry lines must not match.
	for _, tx := range res.Transactions {
		assert.NotContains(t, tx.Description, "SALDO")
	}
}

func TestStandard_SkipLinesExcluded(t *testing.T) {
	rs := rules.Base()
	text := "02/05/2024 SALDO ANTERIOR 10,000.00\n02/05/2024 COMPRA OXXO 150.00"

	res, err := Standard{}.Extract(text, rs)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "COMPRA OXXO", res.Transactions[0].Description)
}

func TestFlexible_MonthNameDates(t *testing.T) {
	text := "02 MAY 2024 PAGO TARJETA DEPARTAMENTAL 1,250.00\n" +
		"03-MAY-24 CARGO NETFLIX MEXICO 219.00"

	res, err := Flexible{}.Extract(text, rules.Base())
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, civil.Date{Year: 2024, Month: 5, Day: 2}, res.Transactions[0].Date)
	assert.Equal(t, "219", res.Transactions[1].Amount.String())
}

func TestFlexible_CustomLinePatternFirst(t *testing.T) {
	p, err := rules.NewProvider()
	require.NoError(t, err)
	rs := p.Resolve("bbva")

	// BBVA prints operation date and settlement date side by side.
	text := "02/MAY 02/MAY SPEI ENVIADO SANTANDER 3,500.00 11,500.00"

	res, err := Flexible{}.Extract(text, rs)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, "SPEI ENVIADO SANTANDER", tx.Description)
	assert.Equal(t, "3500", tx.Amount.String())
	assert.Equal(t, 1, res.Stats.PatternHits["custom"])
}

func TestAdaptive_InsufficientSample(t *testing.T) {
	_, err := Adaptive{}.Extract("too short\nno dates here", rules.Base())
	require.ErrorIs(t, err, errInsufficientSample)
}

func TestAdaptive_SynthesizesFromLayout(t *testing.T) {
	text := ""
	for i := 1; i <= 10; i++ {
		text += fmt.Sprintf("%02d/05/2024 MOVIMIENTO COMERCIO NUMERO %02d REF 1,0%02d.00 9,000.00\n", i, i, i)
	}

	res, err := Adaptive{}.Extract(text, rules.Base())
	require.NoError(t, err)
	assert.Len(t, res.Transactions, 10)
	require.NotNil(t, res.Transactions[0].BalanceAfter)
}

func TestBruteForce_MonthAbbrevLines(t *testing.T) {
	text := "02/MAY COMPRA FARMACIA GUADALAJARA 450.00\n" +
		"MAY 03 PAYMENT RECEIVED THANK YOU 1,200.00"

	res, err := BruteForce{}.Extract(text, rules.Base())
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "COMPRA FARMACIA GUADALAJARA", res.Transactions[0].Description)
	assert.Equal(t, "PAYMENT RECEIVED THANK YOU", res.Transactions[1].Description)
}

func TestScore_Components(t *testing.T) {
	mk := func(n int) []domain.Transaction {
		txs := make([]domain.Transaction, n)
		for i := range txs {
			txs[i] = domain.Transaction{
				Date:        civil.Date{Year: 2024, Month: 5, Day: 1 + i%28},
				Description: fmt.Sprintf("%02d comercio distinto", i),
				Amount:      decimal.NewFromInt(int64(100 + i)),
			}
		}
		return txs
	}

	// 50 rows, distinct prefixes, all valid, marker present: perfect score.
	assert.InDelta(t, 1.0, Score(mk(50), "SALDO ANTERIOR 10,000.00"), 1e-9)

	// Same parse without the opening marker loses exactly the 0.2 component.
	assert.InDelta(t, 0.8, Score(mk(50), "sin encabezado"), 1e-9)

	// Empty parse scores zero.
	assert.Zero(t, Score(nil, "SALDO ANTERIOR"))
}

// stubStrategy lets selector tests control scores and observe invocation.
type stubStrategy struct {
	name   string
	txs    []domain.Transaction
	err    error
	called *bool
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Extract(string, rules.RuleSet) (Result, error) {
	if s.called != nil {
		*s.called = true
	}
	if s.err != nil {
		return Result{}, s.err
	}
	return Result{Strategy: s.name, Transactions: s.txs, Matched: map[int]bool{}}, nil
}

func perfectTxs(n int) []domain.Transaction {
	txs := make([]domain.Transaction, n)
	for i := range txs {
		txs[i] = domain.Transaction{
			Date:        civil.Date{Year: 2024, Month: 5, Day: 1 + i%28},
			Description: fmt.Sprintf("%02d comercio", i),
			Amount:      decimal.NewFromInt(int64(50 + i)),
		}
	}
	return txs
}

func TestSelector_EarlyExitSkipsLowerPriority(t *testing.T) {
	laterCalled := false
	sel := NewSelectorWithStrategies(DefaultSelectorConfig(), logger.New(),
		stubStrategy{name: "standard", txs: perfectTxs(50)},
		stubStrategy{name: "bruteforce", called: &laterCalled},
	)

	res, diag, err := sel.Run("SALDO ANTERIOR 10,000.00", rules.Base())
	require.NoError(t, err)
	assert.Equal(t, "standard", diag.Selected)
	assert.Len(t, res.Transactions, 50)
	assert.False(t, laterCalled, "early exit must skip lower-priority strategies")
}

func TestSelector_FailureContinuesChain(t *testing.T) {
	sel := NewSelectorWithStrategies(DefaultSelectorConfig(), logger.New(),
		stubStrategy{name: "standard", err: fmt.Errorf("boom")},
		stubStrategy{name: "flexible", txs: perfectTxs(20)},
	)

	_, diag, err := sel.Run("SALDO ANTERIOR", rules.Base())
	require.NoError(t, err)
	assert.Equal(t, "flexible", diag.Selected)
	assert.Contains(t, diag.Failures["standard"], "boom")
}

func TestSelector_AllStrategiesFailed(t *testing.T) {
	sel := NewSelectorWithStrategies(DefaultSelectorConfig(), logger.New(),
		stubStrategy{name: "standard", err: fmt.Errorf("boom")},
		stubStrategy{name: "flexible"},
	)

	_, diag, err := sel.Run("texto sin transacciones", rules.Base())
	require.ErrorIs(t, err, ErrAllStrategiesFailed)
	assert.Contains(t, diag.Failures, "standard")
	assert.Zero(t, diag.Scores["flexible"])
}

func TestSelector_PartialQualityFlag(t *testing.T) {
	sel := NewSelectorWithStrategies(DefaultSelectorConfig(), logger.New(),
		stubStrategy{name: "standard", txs: perfectTxs(2)},
	)

	_, diag, err := sel.Run("dos lineas sueltas", rules.Base())
	require.NoError(t, err)
	assert.True(t, diag.PartialQuality)
}

func TestSelector_RecoversFromPanic(t *testing.T) {
	sel := NewSelectorWithStrategies(DefaultSelectorConfig(), logger.New(),
		panicStrategy{},
		stubStrategy{name: "flexible", txs: perfectTxs(20)},
	)

	_, diag, err := sel.Run("SALDO ANTERIOR", rules.Base())
	require.NoError(t, err)
	assert.Equal(t, "flexible", diag.Selected)
	assert.Contains(t, diag.Failures["panicky"], "panicked")
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panicky" }

func (panicStrategy) Extract(string, rules.RuleSet) (Result, error) {
	panic("bad pattern")
}
