package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ledgerline/statement-engine/internal/rules"
)

// Adaptive synthesizes a single line regex from a sample of probable
// transaction lines and then applies it document-wide. It only pays off on
// statements whose layout neither Standard nor Flexible recognizes, so the
// selector runs it late in the chain.
type Adaptive struct{}

const (
	adaptiveSampleCap = 50
	adaptiveMinSample = 5
	adaptiveMinLen    = 30
)

var errInsufficientSample = errors.New("adaptive: not enough probable transaction lines to synthesize a pattern")

func (Adaptive) Name() string { return "adaptive" }

func (Adaptive) Extract(text string, rs rules.RuleSet) (Result, error) {
	lines := splitLines(text)
	res := newResult("adaptive", len(lines))

	samples := sampleProbableLines(lines, rs)
	if len(samples) < adaptiveMinSample {
		return res, errInsufficientSample
	}

	re, ok := synthesizePattern(samples, rs)
	if !ok {
		return res, errInsufficientSample
	}

	for i, line := range lines {
		if line == "" || rs.IsSkip(line) {
			continue
		}
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		date, okDate := parseDate(m[1], 0)
		if !okDate {
			continue
		}
		amounts := collectAmounts(m[3:]...)
		tx, okTx := buildTransaction(date, m[2], "", amounts, rs, confidenceAdaptive)
		if !okTx {
			continue
		}
		res.add(tx, i, "synthesized")
	}
	return res, nil
}

// sampleProbableLines picks up to 50 lines that look like transactions:
// they carry a month token and enough width to hold a description column.
func sampleProbableLines(lines []string, rs rules.RuleSet) []string {
	var out []string
	for _, line := range lines {
		if len(out) == adaptiveSampleCap {
			break
		}
		if len(line) <= adaptiveMinLen || rs.IsSkip(line) {
			continue
		}
		if hasMonthToken(line) {
			out = append(out, line)
		}
	}
	return out
}

// synthesizePattern derives one regex whose capture groups align with the
// dominant sampled layout: date shape (numeric vs month-name) and money
// token count (one vs two) are decided by majority vote over the sample.
func synthesizePattern(samples []string, rs rules.RuleSet) (*regexp.Regexp, bool) {
	numericDates, nameDates, twoAmounts, oneAmount := 0, 0, 0, 0

	for _, line := range samples {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if numericDateRe.MatchString(fields[0]) {
			numericDates++
		} else if _, consumed := leadingDate(fields); consumed > 0 {
			nameDates++
		}
		switch n := len(findAmounts(line, rs)); {
		case n >= 2:
			twoAmounts++
		case n == 1:
			oneAmount++
		}
	}

	if numericDates+nameDates == 0 || twoAmounts+oneAmount == 0 {
		return nil, false
	}

	dateExpr := `\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}`
	if nameDates > numericDates {
		dateExpr = `\d{1,2}[ /.-][A-Za-zÁÉáé]{3,10}\.?(?:[ /.-]\d{2,4})?`
	}

	expr := `^\s*(` + dateExpr + `)\s+(.{3,}?)\s+(` + amt + `)`
	if twoAmounts > oneAmount {
		expr += `\s+(` + amt + `)`
	}
	expr += `\s*$`

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, false
	}
	return re, true
}
