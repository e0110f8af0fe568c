package extract

import (
	"strings"

	"cloud.google.com/go/civil"

	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/rules"
)

// Strategy is one candidate transaction-extraction algorithm in the fallback
// chain. Extract is a pure function of its inputs; a strategy signals failure
// by returning an error (or an empty result), never by panicking outward.
type Strategy interface {
	Name() string
	Extract(text string, rs rules.RuleSet) (Result, error)
}

// Result is one strategy's candidate parse of a statement.
type Result struct {
	Strategy     string
	Transactions []domain.Transaction

	// LineOf holds the source line index for each transaction, parallel to
	// Transactions. Matched marks every line that produced a transaction.
	// The normalizer uses both to fold continuation lines into the
	// preceding transaction.
	LineOf  []int
	Matched map[int]bool

	Stats Stats
}

// Stats is per-strategy extraction metadata surfaced in diagnostics.
type Stats struct {
	Lines       int            `json:"lines"`
	MatchedRows int            `json:"matched_rows"`
	PatternHits map[string]int `json:"pattern_hits,omitempty"`
}

func newResult(name string, lineCount int) Result {
	return Result{
		Strategy: name,
		Matched:  make(map[int]bool),
		Stats:    Stats{Lines: lineCount, PatternHits: make(map[string]int)},
	}
}

func (r *Result) add(tx domain.Transaction, lineIdx int, pattern string) {
	r.Transactions = append(r.Transactions, tx)
	r.LineOf = append(r.LineOf, lineIdx)
	r.Matched[lineIdx] = true
	r.Stats.MatchedRows++
	r.Stats.PatternHits[pattern]++
}

// strategy confidences reflect how structurally strict each pattern family
// is; they seed Transaction.Confidence before normalization.
const (
	confidenceStandard   = 0.9
	confidenceFlexible   = 0.75
	confidenceAdaptive   = 0.6
	confidenceBruteForce = 0.4
)

// buildTransaction assembles a candidate from a parsed line. With two money
// tokens on the line the second is the running balance when the bank layout
// carries one; PreferFirstAmount pins the movement amount to the first token
// either way.
func buildTransaction(date civil.Date, desc string, ref string, amounts []amountToken, rs rules.RuleSet, confidence float64) (domain.Transaction, bool) {
	if len(amounts) == 0 {
		return domain.Transaction{}, false
	}

	amt := amounts[0]
	var balance *amountToken
	if len(amounts) >= 2 {
		last := amounts[len(amounts)-1]
		if rs.HasRunningBalance {
			balance = &last
		} else if !rs.PreferFirstAmount {
			amt = last
		}
	}

	tx := domain.Transaction{
		Date:        date,
		Description: collapseSpaces(desc),
		Reference:   ref,
		Amount:      amt.Value,
		Confidence:  confidence,
	}
	if amt.Negative {
		tx.Amount = tx.Amount.Neg()
	}
	if balance != nil {
		v := balance.Value
		if balance.Negative {
			v = v.Neg()
		}
		tx.BalanceAfter = &v
	}
	return tx, true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
