package extract

import (
	"regexp"

	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/rules"
)

// Standard applies a fixed, ordered list of line-shaped patterns. The first
// pattern that matches a line wins for that line. This is the strictest and
// highest-priority strategy: it only fires on cleanly columnar layouts.
type Standard struct{}

// amount token sub-expression shared by the standard line patterns.
const amt = `\(?-?\$?\s?[\d,]+\.\d{2}\)?-?`

var standardPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{
		// 02/05/2024 REF0012345 SPEI RECIBIDO 5,000.00 15,000.00
		name: "date_ref_two_amounts",
		re:   regexp.MustCompile(`^\s*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})\s+([A-Z0-9]{6,20})\s+(.{3,}?)\s+(` + amt + `)\s+(` + amt + `)\s*$`),
	},
	{
		// 02/05/2024 SPEI RECIBIDO BANORTE 5,000.00 15,000.00
		name: "date_desc_two_amounts",
		re:   regexp.MustCompile(`^\s*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})\s+(.{3,}?)\s+(` + amt + `)\s+(` + amt + `)\s*$`),
	},
	{
		// 02/05/2024 COMPRA OXXO MONTERREY 150.00
		name: "date_desc_one_amount",
		re:   regexp.MustCompile(`^\s*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})\s+(.{3,}?)\s+(` + amt + `)\s*$`),
	},
	{
		// generic DD/MM/YYYY anywhere in the line
		name: "generic_ddmmyyyy",
		re:   regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b\s*(.*)$`),
	},
}

func (Standard) Name() string { return "standard" }

func (Standard) Extract(text string, rs rules.RuleSet) (Result, error) {
	lines := splitLines(text)
	res := newResult("standard", len(lines))

	for i, line := range lines {
		if line == "" || rs.IsSkip(line) {
			continue
		}
		for _, p := range standardPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			tx, ok := parseStandardMatch(p.name, m, rs)
			if !ok {
				continue
			}
			res.add(tx, i, p.name)
			break
		}
	}
	return res, nil
}

func parseStandardMatch(pattern string, m []string, rs rules.RuleSet) (domain.Transaction, bool) {
	date, ok := parseDate(m[1], 0)
	if !ok {
		return domain.Transaction{}, false
	}

	switch pattern {
	case "date_ref_two_amounts":
		amounts := collectAmounts(m[4], m[5])
		return buildTransaction(date, m[3], m[2], amounts, rs, confidenceStandard)
	case "date_desc_two_amounts":
		amounts := collectAmounts(m[3], m[4])
		return buildTransaction(date, m[2], "", amounts, rs, confidenceStandard)
	case "date_desc_one_amount":
		amounts := collectAmounts(m[3])
		return buildTransaction(date, m[2], "", amounts, rs, confidenceStandard)
	case "generic_ddmmyyyy":
		rest := m[2]
		amounts := findAmounts(rest, rs)
		if len(amounts) == 0 {
			return domain.Transaction{}, false
		}
		desc := rest[:amounts[0].Start]
		return buildTransaction(date, desc, "", amounts, rs, confidenceStandard)
	}
	return domain.Transaction{}, false
}

func collectAmounts(tokens ...string) []amountToken {
	out := make([]amountToken, 0, len(tokens))
	for _, tok := range tokens {
		value, negative, ok := parseAmount(tok)
		if !ok {
			continue
		}
		out = append(out, amountToken{Value: value, Negative: negative})
	}
	return out
}
