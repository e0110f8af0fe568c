package extract

import (
	"regexp"

	"github.com/ledgerline/statement-engine/internal/rules"
)

// BruteForce is the last resort: permissive patterns with minimal structural
// assumptions. A month abbreviation plus a day, free text, and one or two
// money tokens somewhere on the line is enough to produce a candidate.
type BruteForce struct{}

var bruteForcePatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{
		// 02/MAY COMPRA OXXO ... 150.00 [14,850.00]
		name: "day_month_free_text",
		re: regexp.MustCompile(`(?i)^\s*(\d{1,2}[ /.-](?:ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic|jan|apr|aug|dec)[a-záé]*\.?(?:[ /.-]\d{2,4})?)\s+(.{3,}?)\s+(` + amt + `)(?:\s+(` + amt + `))?\s*$`),
	},
	{
		// MAY 02 PAYMENT RECEIVED ... 1,200.00
		name: "month_day_free_text",
		re: regexp.MustCompile(`(?i)^\s*((?:ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic|jan|apr|aug|dec)[a-záé]*\.?\s+\d{1,2})\s+(.{3,}?)\s+(` + amt + `)(?:\s+(` + amt + `))?\s*$`),
	},
}

func (BruteForce) Name() string { return "bruteforce" }

func (BruteForce) Extract(text string, rs rules.RuleSet) (Result, error) {
	lines := splitLines(text)
	res := newResult("bruteforce", len(lines))

	for i, line := range lines {
		if line == "" || rs.IsSkip(line) {
			continue
		}
		for _, p := range bruteForcePatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			date, _ := parseDate(normalizeBruteDate(p.name, m[1]), 0)
			amounts := collectAmounts(m[3], m[4])
			tx, ok := buildTransaction(date, m[2], "", amounts, rs, confidenceBruteForce)
			if !ok {
				continue
			}
			res.add(tx, i, p.name)
			break
		}
	}
	return res, nil
}

// normalizeBruteDate rewrites "MAY 02" into "02 MAY" so both pattern shapes
// share one date parser.
func normalizeBruteDate(pattern, token string) string {
	if pattern != "month_day_free_text" {
		return token
	}
	fields := regexp.MustCompile(`\s+`).Split(token, -1)
	if len(fields) != 2 {
		return token
	}
	return fields[1] + " " + fields[0]
}
