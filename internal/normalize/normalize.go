// Package normalize turns raw strategy candidates into clean ledger rows:
// it classifies direction, fixes signs, folds wrapped lines, drops noise and
// merges duplicates. Running it over an already-normalized list is a no-op.
package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/extract"
	"github.com/ledgerline/statement-engine/internal/rules"
)

// Config holds the normalizer tunables.
type Config struct {
	// AmountCeiling rejects rows whose magnitude cannot plausibly be a
	// single account movement (OCR column bleed usually).
	AmountCeiling decimal.Decimal
}

// DefaultConfig returns the stock normalizer settings.
func DefaultConfig() Config {
	return Config{AmountCeiling: decimal.NewFromInt(1_000_000)}
}

// Result is the cleaned transaction list plus any statement-level balances
// recovered from carry rows and header lines.
type Result struct {
	Transactions   []domain.Transaction
	OpeningBalance *decimal.Decimal
	ClosingBalance *decimal.Decimal
	Dropped        int
}

var (
	openingMarkerRe = regexp.MustCompile(`(?i)saldo\s+(anterior|inicial)|opening\s+balance`)
	closingMarkerRe = regexp.MustCompile(`(?i)saldo\s+(final|actual|nuevo)|closing\s+balance`)
	transferWords   = []string{"transferencia", "traspaso", "spei"}
	punctuationRe   = regexp.MustCompile(`[^\p{L}\p{N} ]+`)
)

// MergeContinuations folds statement lines that wrapped across physical
// rows: a line that matched no strategy pattern and is not skip furniture is
// appended to the description of the transaction extracted just above it.
func MergeContinuations(res extract.Result, rawLines []string, rs rules.RuleSet) []domain.Transaction {
	txs := append([]domain.Transaction(nil), res.Transactions...)
	if !rs.MergeMultiline || len(txs) == 0 {
		return txs
	}

	// lastTxAbove[i] = index into txs of the nearest matched line at or
	// above raw line i.
	lastTx := -1
	for i, line := range rawLines {
		if res.Matched[i] {
			lastTx = txIndexForLine(res, i)
			continue
		}
		if lastTx < 0 {
			continue
		}
		frag := strings.TrimSpace(line)
		if frag == "" || rs.IsSkip(frag) || !looksLikeContinuation(frag) {
			continue
		}
		txs[lastTx].Description = strings.TrimSpace(txs[lastTx].Description + " " + frag)
	}
	return txs
}

func txIndexForLine(res extract.Result, line int) int {
	for ti, li := range res.LineOf {
		if li == line {
			return ti
		}
	}
	return -1
}

// looksLikeContinuation filters out furniture that survives the skip list:
// a real wrapped fragment is mostly letters and short enough to be a
// description tail.
func looksLikeContinuation(frag string) bool {
	if len(frag) > 80 {
		return false
	}
	letters := 0
	for _, r := range frag {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			letters++
		}
	}
	return letters*2 >= len(frag)
}

// StatedBalances scans the raw lines for explicit opening/closing balance
// headers ("SALDO ANTERIOR 10,000.00") and returns their amounts.
func StatedBalances(rawLines []string, rs rules.RuleSet) (opening, closing *decimal.Decimal) {
	for _, line := range rawLines {
		var target **decimal.Decimal
		switch {
		case openingMarkerRe.MatchString(line):
			target = &opening
		case closingMarkerRe.MatchString(line):
			target = &closing
		default:
			continue
		}
		if *target != nil {
			continue // first header wins
		}
		for _, re := range rs.AmountPatterns {
			m := re.FindString(line)
			if m == "" {
				continue
			}
			v, negative, ok := extract.ParseAmount(strings.TrimSpace(m))
			if !ok {
				continue
			}
			if negative {
				v = v.Neg()
			}
			*target = &v
			break
		}
	}
	return opening, closing
}

// Normalize classifies, rejects and deduplicates candidates. It is
// idempotent: a second pass over its own output changes nothing.
func Normalize(txs []domain.Transaction, rs rules.RuleSet, cfg Config) Result {
	out := Result{}
	var prev *domain.Transaction

	index := make(map[string]int) // dedup key -> position in out.Transactions

	for i := range txs {
		tx := txs[i]

		if carried, opening := isBalanceCarry(tx); carried {
			if opening && out.OpeningBalance == nil && tx.BalanceAfter != nil {
				out.OpeningBalance = tx.BalanceAfter
			}
			if !opening && tx.BalanceAfter != nil {
				out.ClosingBalance = tx.BalanceAfter
			}
			out.Dropped++
			continue
		}
		if rejected(tx, rs, cfg) {
			out.Dropped++
			continue
		}

		tx.Direction = classifyDirection(tx, prev, rs)
		tx.Amount = applySign(tx.Amount, tx.Direction)
		tx.Kind = classifyKind(tx)

		key := dedupKey(tx)
		if at, ok := index[key]; ok {
			mergeDuplicate(&out.Transactions[at], tx)
			out.Dropped++
		} else {
			index[key] = len(out.Transactions)
			out.Transactions = append(out.Transactions, tx)
		}
		prev = &txs[i]
	}
	return out
}

// isBalanceCarry recognizes opening/closing balance rows that slipped
// through extraction as zero-amount transactions. Their balance column is
// kept; the row itself is not a movement.
func isBalanceCarry(tx domain.Transaction) (carry, opening bool) {
	if !tx.Amount.IsZero() {
		return false, false
	}
	switch {
	case openingMarkerRe.MatchString(tx.Description):
		return true, true
	case closingMarkerRe.MatchString(tx.Description):
		return true, false
	}
	return false, false
}

func rejected(tx domain.Transaction, rs rules.RuleSet, cfg Config) bool {
	if tx.Amount.IsZero() {
		return true
	}
	if tx.Amount.Abs().GreaterThan(cfg.AmountCeiling) {
		return true
	}
	return rs.IsSkip(tx.Description)
}

// classifyDirection resolves the movement direction by priority:
// explicit sign or CARGO/ABONO marker, keyword lists, running-balance delta
// against the previous row, then the small-amount heuristic.
func classifyDirection(tx domain.Transaction, prev *domain.Transaction, rs rules.RuleSet) domain.Direction {
	if tx.Direction != "" {
		return tx.Direction
	}
	if tx.Amount.IsNegative() {
		return domain.Debit
	}

	folded := " " + rules.Fold(tx.Description) + " "
	if strings.Contains(folded, " abono ") {
		return domain.Credit
	}
	if strings.Contains(folded, " cargo ") {
		return domain.Debit
	}

	credit, debit := rs.HasCredit(tx.Description), rs.HasDebit(tx.Description)
	switch {
	case credit && !debit:
		return domain.Credit
	case debit && !credit:
		return domain.Debit
	}

	if d, ok := directionFromBalances(tx, prev); ok {
		return d
	}

	// Small relative to the running balance reads as a charge; a movement
	// comparable to the whole balance is usually the deposit that built it.
	if tx.BalanceAfter != nil && !tx.BalanceAfter.IsZero() {
		if tx.Amount.Abs().LessThan(tx.BalanceAfter.Abs().Div(decimal.NewFromInt(2))) {
			return domain.Debit
		}
		return domain.Credit
	}
	return domain.Debit
}

// directionFromBalances checks whether the previous row's running balance
// plus or minus this amount lands on this row's balance.
func directionFromBalances(tx domain.Transaction, prev *domain.Transaction) (domain.Direction, bool) {
	if tx.BalanceAfter == nil || prev == nil || prev.BalanceAfter == nil {
		return "", false
	}
	eps := decimal.New(1, -2) // one cent
	amt := tx.Amount.Abs()
	if prev.BalanceAfter.Add(amt).Sub(*tx.BalanceAfter).Abs().LessThanOrEqual(eps) {
		return domain.Credit, true
	}
	if prev.BalanceAfter.Sub(amt).Sub(*tx.BalanceAfter).Abs().LessThanOrEqual(eps) {
		return domain.Debit, true
	}
	return "", false
}

func applySign(amount decimal.Decimal, d domain.Direction) decimal.Decimal {
	if d == domain.Debit {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

func classifyKind(tx domain.Transaction) domain.MovementKind {
	folded := rules.Fold(tx.Description)
	for _, w := range transferWords {
		if strings.Contains(folded, w) {
			return domain.Transfer
		}
	}
	if tx.Direction == domain.Credit {
		return domain.Income
	}
	return domain.Expense
}

// dedupKey builds the merge key: date (empty when missing), normalized
// description, and the amount rounded to cents.
func dedupKey(tx domain.Transaction) string {
	date := ""
	if tx.HasDate() {
		date = tx.Date.String()
	}
	return date + "|" + normalizeKey(tx.Description) + "|" + tx.Amount.Round(2).String()
}

func normalizeKey(desc string) string {
	return strings.TrimSpace(punctuationRe.ReplaceAllString(rules.Fold(desc), ""))
}

func mergeDuplicate(dst *domain.Transaction, src domain.Transaction) {
	if normalizeKey(src.Description) != normalizeKey(dst.Description) ||
		!strings.Contains(dst.Description, strings.TrimSpace(src.Description)) {
		if src.Description != "" && dst.Description != src.Description {
			dst.Description = dst.Description + " / " + src.Description
		}
	}
	if src.BalanceAfter != nil {
		dst.BalanceAfter = src.BalanceAfter
	}
	if dst.Reference == "" {
		dst.Reference = src.Reference
	}
	if src.Confidence > dst.Confidence {
		dst.Confidence = src.Confidence
	}
}
