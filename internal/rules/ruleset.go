package rules

import "regexp"

// RuleSet is the merged base + per-bank configuration that governs keyword
// and pattern matching during a single parse. Resolve hands out a fresh copy
// per call; a RuleSet is never shared mutable state between parses.
//
// Keyword sets are always supersets of the base lists: overrides extend,
// they never replace.
type RuleSet struct {
	BankID string

	CreditKeywords map[string]bool
	DebitKeywords  map[string]bool
	SkipKeywords   map[string]bool

	// AmountPatterns and LinePatterns are ordered; earlier patterns win.
	// Compiled once at load time and shared read-only across copies
	// (regexp.Regexp is safe for concurrent use).
	AmountPatterns []*regexp.Regexp
	LinePatterns   []*regexp.Regexp

	PreferFirstAmount bool
	HasRunningBalance bool
	MergeMultiline    bool
}

// Clone returns a deep copy of the keyword sets and a shallow copy of the
// compiled pattern slices.
func (rs RuleSet) Clone() RuleSet {
	out := rs
	out.CreditKeywords = copySet(rs.CreditKeywords)
	out.DebitKeywords = copySet(rs.DebitKeywords)
	out.SkipKeywords = copySet(rs.SkipKeywords)
	out.AmountPatterns = append([]*regexp.Regexp(nil), rs.AmountPatterns...)
	out.LinePatterns = append([]*regexp.Regexp(nil), rs.LinePatterns...)
	return out
}

// HasCredit reports whether the description hits the credit keyword list.
func (rs RuleSet) HasCredit(description string) bool {
	return containsKeyword(Fold(description), rs.CreditKeywords)
}

// HasDebit reports whether the description hits the debit keyword list.
func (rs RuleSet) HasDebit(description string) bool {
	return containsKeyword(Fold(description), rs.DebitKeywords)
}

// IsSkip reports whether a line or description is statement furniture
// (headers, disclaimers, aggregated totals) that must not become a
// transaction.
func (rs RuleSet) IsSkip(line string) bool {
	return containsKeyword(Fold(line), rs.SkipKeywords)
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k := range in {
		out[k] = true
	}
	return out
}

func setOf(words ...string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[Fold(w)] = true
	}
	return out
}
