// Package msi links credit-card charges to invoices paid under Mexican
// "Meses Sin Intereses" installment plans. A charge of 500.00 against a
// 6,000.00 invoice reads as month 1 of a 12-month plan; the matcher infers
// the plan length from the amount ratio alone.
package msi

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/statement-engine/internal/domain"
)

// planMonths are the installment terms Mexican issuers offer, in first-fit
// order. A ratio that fits 3 months is never reported as 6.
var planMonths = []int{3, 6, 9, 12, 18, 24}

const (
	singleMatchConfidence = 0.95

	// Ambiguous matches decay with the number of contenders but never
	// drop below the floor; a 1-in-6 match is still worth surfacing.
	ambiguousBase  = 0.60
	ambiguousDecay = 0.05
	ambiguousFloor = 0.30
)

// Config holds the matcher tolerances and the candidate time window.
type Config struct {
	// AmountTolerance accepts a charge as a full invoice payment when it is
	// within this fraction of the total.
	AmountTolerance float64

	// InstallmentTolerance accepts amount*months as the invoice total when
	// the product is within this fraction of it.
	InstallmentTolerance float64

	// WindowBeforeDays/WindowAfterDays bound invoice dates relative to the
	// statement period. Invoices are issued before their first charge, so
	// the window reaches further back than forward.
	WindowBeforeDays int
	WindowAfterDays  int

	// ModelTag is stamped on every installment record so downstream
	// consumers can tell which matcher version produced it.
	ModelTag string
}

// DefaultConfig returns the stock matcher settings.
func DefaultConfig() Config {
	return Config{
		AmountTolerance:      0.02,
		InstallmentTolerance: 0.03,
		WindowBeforeDays:     30,
		WindowAfterDays:      7,
		ModelTag:             "ratio-v1",
	}
}

// Matcher holds the invoice pool and an index by rounded total for the
// exact-amount fast path.
type Matcher struct {
	cfg      Config
	invoices []domain.InvoiceCandidate
	byTotal  map[string][]int
	log      zerolog.Logger
}

// NewMatcher indexes the caller's invoice candidates. Invoices not paid by
// card and invoices whose plan is already confirmed are left out of the
// pool; there is nothing to infer for them.
func NewMatcher(invoices []domain.InvoiceCandidate, cfg Config, log zerolog.Logger) *Matcher {
	m := &Matcher{cfg: cfg, log: log, byTotal: make(map[string][]int)}
	for _, inv := range invoices {
		if !inv.PaidByCard || inv.ConfirmedMonths != nil {
			continue
		}
		m.invoices = append(m.invoices, inv)
		key := inv.Total.Round(2).String()
		m.byTotal[key] = append(m.byTotal[key], len(m.invoices)-1)
	}
	return m
}

// Match links debit transactions to invoices and attaches the installment
// record to each matched transaction in place. The candidate window is
// derived from the transaction dates; use MatchPeriod when the caller knows
// the statement period. The returned results carry the full reasoning for
// the caller's review queue.
func (m *Matcher) Match(txs []domain.Transaction) []domain.MatchResult {
	lo, hi := transactionSpan(txs)
	return m.match(txs, lo, hi)
}

// MatchPeriod is Match with an explicit statement period instead of the
// span inferred from transaction dates.
func (m *Matcher) MatchPeriod(txs []domain.Transaction, start, end civil.Date) []domain.MatchResult {
	return m.match(txs, start, end)
}

func (m *Matcher) match(txs []domain.Transaction, lo, hi civil.Date) []domain.MatchResult {
	if len(m.invoices) == 0 || len(txs) == 0 {
		return nil
	}

	eligible := m.invoicesInWindow(lo, hi)
	var results []domain.MatchResult

	for i := range txs {
		tx := &txs[i]
		if tx.Direction != domain.Debit {
			continue
		}
		cands := m.candidatesFor(tx.AbsAmount(), eligible)
		if len(cands) == 0 {
			continue
		}
		res := m.resolve(tx, cands)
		results = append(results, res)
		tx.MSI = &domain.Installment{
			InvoiceID:    res.InvoiceID,
			Months:       res.Months,
			Confidence:   res.Confidence,
			ModelTag:     m.cfg.ModelTag,
			Ambiguous:    res.Ambiguous,
			Alternatives: res.Alternatives,
		}
	}
	return results
}

// transactionSpan returns the earliest and latest dated transaction.
// Undated transactions contribute nothing; both bounds stay zero when no
// transaction carries a date.
func transactionSpan(txs []domain.Transaction) (lo, hi civil.Date) {
	for _, tx := range txs {
		if !tx.HasDate() {
			continue
		}
		if !lo.IsValid() || tx.Date.Before(lo) {
			lo = tx.Date
		}
		if !hi.IsValid() || tx.Date.After(hi) {
			hi = tx.Date
		}
	}
	return lo, hi
}

// invoicesInWindow marks the pool indices dated within the statement period
// plus the configured margins. Without a usable period every invoice stays
// eligible.
func (m *Matcher) invoicesInWindow(lo, hi civil.Date) map[int]bool {
	eligible := make(map[int]bool, len(m.invoices))
	if !lo.IsValid() || !hi.IsValid() {
		for i := range m.invoices {
			eligible[i] = true
		}
		return eligible
	}
	lo = lo.AddDays(-m.cfg.WindowBeforeDays)
	hi = hi.AddDays(m.cfg.WindowAfterDays)

	for i, inv := range m.invoices {
		if inv.Date.Before(lo) || inv.Date.After(hi) {
			continue
		}
		eligible[i] = true
	}
	return eligible
}

// candidate pairs an invoice with the inferred plan length. months == 0
// means the charge covers the invoice in full.
type candidate struct {
	invoice domain.InvoiceCandidate
	months  int
}

// candidatesFor gathers every invoice the charge could belong to. The
// rounded-total bucket answers exact full-amount charges without a scan;
// the tolerance pass picks up near-misses and installment ratios.
func (m *Matcher) candidatesFor(amount decimal.Decimal, eligible map[int]bool) []candidate {
	if amount.IsZero() {
		return nil
	}
	var cands []candidate

	bucketed := make(map[int]bool)
	for _, i := range m.byTotal[amount.Round(2).String()] {
		if !eligible[i] {
			continue
		}
		cands = append(cands, candidate{invoice: m.invoices[i]})
		bucketed[i] = true
	}

	for i, inv := range m.invoices {
		if !eligible[i] || bucketed[i] || inv.Total.IsZero() {
			continue
		}
		if withinFraction(amount, inv.Total, m.cfg.AmountTolerance) {
			cands = append(cands, candidate{invoice: inv})
			continue
		}
		for _, months := range planMonths {
			product := amount.Mul(decimal.NewFromInt(int64(months)))
			if withinFraction(product, inv.Total, m.cfg.InstallmentTolerance) {
				cands = append(cands, candidate{invoice: inv, months: months})
				break
			}
		}
	}
	return cands
}

// resolve turns the candidate list into one result. A single candidate is a
// confident link; several candidates keep the most recent invoice as the
// primary, drop the plan length and list the rest as alternatives.
func (m *Matcher) resolve(tx *domain.Transaction, cands []candidate) domain.MatchResult {
	if len(cands) == 1 {
		c := cands[0]
		res := domain.MatchResult{
			TransactionRef: tx.Ref,
			InvoiceID:      c.invoice.ID,
			Confidence:     singleMatchConfidence,
		}
		if c.months > 0 {
			months := c.months
			res.Months = &months
			res.Reasoning = fmt.Sprintf("%s x %d = %s matches invoice %s total %s",
				tx.AbsAmount(), c.months, tx.AbsAmount().Mul(decimal.NewFromInt(int64(c.months))),
				c.invoice.ID, c.invoice.Total)
		} else {
			res.Reasoning = fmt.Sprintf("%s covers invoice %s total %s in full",
				tx.AbsAmount(), c.invoice.ID, c.invoice.Total)
		}
		return res
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[j].invoice.Date.Before(cands[i].invoice.Date)
	})

	confidence := ambiguousBase - ambiguousDecay*float64(len(cands))
	if confidence < ambiguousFloor {
		confidence = ambiguousFloor
	}

	alternatives := make([]string, 0, len(cands)-1)
	for _, c := range cands[1:] {
		alternatives = append(alternatives, c.invoice.ID)
	}

	m.log.Debug().
		Str("transaction", tx.Ref).
		Int("candidates", len(cands)).
		Msg("ambiguous installment match")

	return domain.MatchResult{
		TransactionRef: tx.Ref,
		InvoiceID:      cands[0].invoice.ID,
		Confidence:     confidence,
		Ambiguous:      true,
		Alternatives:   alternatives,
		Reasoning: fmt.Sprintf("%d invoices match amount %s; kept most recent %s",
			len(cands), tx.AbsAmount(), cands[0].invoice.ID),
	}
}

// withinFraction reports whether got is within tol*want of want.
func withinFraction(got, want decimal.Decimal, tol float64) bool {
	diff := got.Sub(want).Abs()
	limit := want.Abs().Mul(decimal.NewFromFloat(tol))
	return diff.LessThanOrEqual(limit)
}
