package extract

import (
	"strings"

	"cloud.google.com/go/civil"

	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/rules"
)

// Flexible is the universal fallback family: tolerant to date-format and
// currency-format variation, intended for banks with no precise Standard
// match. When the RuleSet carries custom line patterns they are consulted
// first, one line at a time, before the built-in heuristics.
type Flexible struct{}

func (Flexible) Name() string { return "flexible" }

func (Flexible) Extract(text string, rs rules.RuleSet) (Result, error) {
	lines := splitLines(text)
	res := newResult("flexible", len(lines))

	for i, line := range lines {
		if line == "" || rs.IsSkip(line) {
			continue
		}

		if tx, ok := matchCustomPatterns(line, rs); ok {
			res.add(tx, i, "custom")
			continue
		}
		if tx, ok := matchFlexibleLine(line, rs); ok {
			res.add(tx, i, "flexible")
		}
	}
	return res, nil
}

// matchCustomPatterns runs the bank's own line patterns. Capture groups are
// interpreted structurally rather than positionally: money tokens become
// amounts, date-shaped groups (alone or as adjacent day/month pairs) become
// the date, and the longest remaining group is the description.
func matchCustomPatterns(line string, rs rules.RuleSet) (domain.Transaction, bool) {
	for _, re := range rs.LinePatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		groups := m[1:]

		var amounts []amountToken
		used := make([]bool, len(groups))
		for gi, g := range groups {
			if g == "" {
				used[gi] = true
				continue
			}
			if value, negative, ok := parseAmount(g); ok {
				amounts = append(amounts, amountToken{Value: value, Negative: negative})
				used[gi] = true
			}
		}

		date := civil.Date{}
		for gi, g := range groups {
			if used[gi] {
				continue
			}
			if d, ok := parseDate(g, 0); ok {
				date = d
				used[gi] = true
				break
			}
			if gi+1 < len(groups) && !used[gi+1] {
				if d, ok := parseDate(g+"/"+groups[gi+1], 0); ok {
					date = d
					used[gi] = true
					used[gi+1] = true
					break
				}
			}
		}

		desc := ""
		for gi, g := range groups {
			if !used[gi] && len(g) > len(desc) {
				desc = g
			}
		}
		if desc == "" {
			continue
		}
		return buildTransaction(date, desc, "", amounts, rs, confidenceFlexible)
	}
	return domain.Transaction{}, false
}

// matchFlexibleLine accepts any line that starts with a recognizable date
// (numeric or month-name, one to three tokens) followed by text and at least
// one money token.
func matchFlexibleLine(line string, rs rules.RuleSet) (domain.Transaction, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return domain.Transaction{}, false
	}

	date, consumed := leadingDate(fields)
	if consumed == 0 {
		return domain.Transaction{}, false
	}

	rest := strings.Join(fields[consumed:], " ")
	amounts := findAmounts(rest, rs)
	if len(amounts) == 0 {
		return domain.Transaction{}, false
	}

	desc := strings.TrimSpace(rest[:amounts[0].Start])
	if len(desc) < 3 {
		return domain.Transaction{}, false
	}
	return buildTransaction(date, desc, "", amounts, rs, confidenceFlexible)
}

// leadingDate tries progressively longer token joins: "02/05/2024",
// then "02 MAY", then "02 MAY 2024".
func leadingDate(fields []string) (civil.Date, int) {
	if d, ok := parseDate(fields[0], 0); ok {
		return d, 1
	}
	if len(fields) >= 2 {
		if d, ok := parseDate(fields[0]+" "+fields[1], 0); ok {
			if len(fields) >= 3 {
				if d3, ok3 := parseDate(fields[0]+" "+fields[1]+" "+fields[2], 0); ok3 {
					return d3, 3
				}
			}
			return d, 2
		}
	}
	return civil.Date{}, 0
}
