// Package reconcile aggregates a normalized transaction list into statement
// totals and checks them against the opening and closing balances.
package reconcile

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/statement-engine/internal/domain"
)

// Config holds the reconciliation tolerance. Balances printed on statements
// are rounded to cents, so a small slack absorbs accumulated rounding.
type Config struct {
	Tolerance decimal.Decimal
}

// DefaultConfig returns the stock tolerance of fifty cents.
func DefaultConfig() Config {
	return Config{Tolerance: decimal.New(5, -1)}
}

// Summarize computes statement totals and the reconciliation status.
//
// Opening and closing balances prefer the running-balance column: opening
// is derived from the first transaction carrying one, closing from the
// last, and the stated values (header rows or carry rows) are the fallback.
// A mismatch is advisory; the summary is still returned in full.
func Summarize(txs []domain.Transaction, stated StatedBalances, cfg Config, log zerolog.Logger) domain.StatementSummary {
	sum := domain.StatementSummary{Count: len(txs)}

	for _, tx := range txs {
		abs := tx.AbsAmount()
		switch tx.Direction {
		case domain.Credit:
			sum.TotalCredits = sum.TotalCredits.Add(abs)
		case domain.Debit:
			sum.TotalDebits = sum.TotalDebits.Add(abs)
		}
		switch tx.Kind {
		case domain.Income:
			sum.TotalIncomes = sum.TotalIncomes.Add(abs)
		case domain.Expense:
			sum.TotalExpenses = sum.TotalExpenses.Add(abs)
		case domain.Transfer:
			sum.TotalTransfers = sum.TotalTransfers.Add(abs)
		}
		if tx.HasDate() {
			if !sum.PeriodStart.IsValid() || tx.Date.Before(sum.PeriodStart) {
				sum.PeriodStart = tx.Date
			}
			if !sum.PeriodEnd.IsValid() || tx.Date.After(sum.PeriodEnd) {
				sum.PeriodEnd = tx.Date
			}
		}
	}

	sum.OpeningBalance = resolveOpening(txs, stated)
	sum.ClosingBalance = resolveClosing(txs, stated)
	sum.Status = status(sum, cfg)

	if sum.Status == domain.ReconciliationMismatch {
		log.Warn().
			Str("opening", str(sum.OpeningBalance)).
			Str("closing", str(sum.ClosingBalance)).
			Str("credits", sum.TotalCredits.String()).
			Str("debits", sum.TotalDebits.String()).
			Msg("statement does not reconcile")
	}
	return sum
}

// StatedBalances carries balances the normalizer recovered from the raw
// statement text, when any were present.
type StatedBalances struct {
	Opening *decimal.Decimal
	Closing *decimal.Decimal
}

func resolveOpening(txs []domain.Transaction, stated StatedBalances) *decimal.Decimal {
	// First row with a running balance: balance before it is balance minus
	// the signed movement.
	for _, tx := range txs {
		if tx.BalanceAfter != nil {
			v := tx.BalanceAfter.Sub(tx.Amount)
			return &v
		}
	}
	return stated.Opening
}

func resolveClosing(txs []domain.Transaction, stated StatedBalances) *decimal.Decimal {
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].BalanceAfter != nil {
			return txs[i].BalanceAfter
		}
	}
	return stated.Closing
}

// status checks opening + credits - debits against the closing balance.
// Without both balances there is nothing to verify and the statement passes.
func status(sum domain.StatementSummary, cfg Config) domain.ReconciliationStatus {
	if sum.OpeningBalance == nil || sum.ClosingBalance == nil {
		return domain.ReconciliationOK
	}
	expected := sum.OpeningBalance.Add(sum.TotalCredits).Sub(sum.TotalDebits)
	if expected.Sub(*sum.ClosingBalance).Abs().GreaterThan(cfg.Tolerance) {
		return domain.ReconciliationMismatch
	}
	return domain.ReconciliationOK
}

func str(d *decimal.Decimal) string {
	if d == nil {
		return "unknown"
	}
	return d.String()
}
