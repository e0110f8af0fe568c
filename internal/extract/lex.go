package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/statement-engine/internal/rules"
)

// monthTokens maps Spanish and English month abbreviations to month numbers.
// Statements from Mexican banks mix both, HSBC in particular prints English.
var monthTokens = map[string]time.Month{
	"ene": time.January, "feb": time.February, "mar": time.March,
	"abr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "ago": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dic": time.December,
	"jan": time.January, "apr": time.April, "aug": time.August,
	"dec": time.December,
}

var (
	numericDateRe   = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{2,4})$`)
	monthNameDateRe = regexp.MustCompile(`(?i)^(\d{1,2})[ /.-]([a-záé]{3,10})\.?(?:[ /.-](\d{2,4}))?$`)
	amountTokenRe   = regexp.MustCompile(`^\(?-?\$?\s?[\d,]+\.\d{2}\)?-?$`)
)

// parseDate parses one date token. Supported shapes: 02/05/2024, 2-5-24,
// 02/MAY/2024, 02-may-24, "2 MAYO" (year inferred from hintYear, or the
// current year when hintYear is zero). Returns ok=false on anything else.
func parseDate(token string, hintYear int) (civil.Date, bool) {
	token = strings.TrimSpace(token)

	if m := numericDateRe.FindStringSubmatch(token); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return makeDate(day, time.Month(month), normalizeYear(year))
	}

	if m := monthNameDateRe.FindStringSubmatch(token); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, ok := monthFromName(m[2])
		if !ok {
			return civil.Date{}, false
		}
		year := hintYear
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			year = normalizeYear(year)
		} else if year == 0 {
			year = time.Now().Year()
		}
		return makeDate(day, month, year)
	}

	return civil.Date{}, false
}

func makeDate(day int, month time.Month, year int) (civil.Date, bool) {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return civil.Date{}, false
	}
	d := civil.Date{Year: year, Month: month, Day: day}
	if !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

func normalizeYear(year int) int {
	if year < 100 {
		return 2000 + year
	}
	return year
}

func monthFromName(name string) (time.Month, bool) {
	folded := rules.Fold(name)
	if len(folded) > 3 {
		folded = folded[:3]
	}
	m, ok := monthTokens[folded]
	return m, ok
}

// parseAmount parses one currency token: optional $ sign, thousands commas,
// two decimals, and the negative variants some layouts print (leading minus,
// trailing minus, parentheses). negative reports the explicit sign; ok=false
// for anything that is not a money token.
func parseAmount(token string) (value decimal.Decimal, negative bool, ok bool) {
	token = strings.TrimSpace(token)
	if token == "" || !amountTokenRe.MatchString(token) {
		return decimal.Decimal{}, false, false
	}

	if strings.HasPrefix(token, "(") && strings.Contains(token, ")") {
		negative = true
	}
	if strings.HasSuffix(token, "-") || strings.HasPrefix(token, "-") {
		negative = true
	}

	cleaned := strings.NewReplacer("$", "", ",", "", "(", "", ")", "", "-", "", " ", "").Replace(token)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false, false
	}
	return d, negative, true
}

// findAmounts extracts every money token the RuleSet's amount patterns can
// see in a line, in order of appearance.
func findAmounts(line string, rs rules.RuleSet) []amountToken {
	var out []amountToken
	seen := make([]textSpan, 0, 4)

	for _, re := range rs.AmountPatterns {
		for _, loc := range re.FindAllStringSubmatchIndex(line, -1) {
			s := textSpan{loc[0], loc[1]}
			if overlapsAny(seen, s) {
				continue
			}
			raw := line[loc[0]:loc[1]]
			value, negative, ok := parseAmount(raw)
			if !ok {
				continue
			}
			seen = append(seen, s)
			out = append(out, amountToken{Value: value, Negative: negative, Start: loc[0]})
		}
	}

	// Re-sort by position: patterns run in priority order, not text order.
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

type textSpan struct{ start, end int }

func overlapsAny(spans []textSpan, s textSpan) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

type amountToken struct {
	Value    decimal.Decimal
	Negative bool
	Start    int
}

// hasMonthToken reports whether a line carries either a month abbreviation
// or a numeric date, which marks it as a probable transaction line.
func hasMonthToken(line string) bool {
	folded := rules.Fold(line)
	for _, word := range strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '/' || r == '-' || r == '.'
	}) {
		if len(word) >= 3 {
			if _, ok := monthTokens[word[:3]]; ok {
				return true
			}
		}
	}
	return inlineNumericDateRe.MatchString(line)
}

var inlineNumericDateRe = regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`)

// Lines exposes the extractor's line splitting so callers that post-process
// a Result index the raw text exactly the way the strategies did.
func Lines(text string) []string {
	return splitLines(text)
}

// ParseAmount exposes the extractor's money-token parsing for callers that
// lift amounts out of matched header lines.
func ParseAmount(token string) (value decimal.Decimal, negative bool, ok bool) {
	return parseAmount(token)
}

// splitLines breaks statement text into trimmed lines, preserving indexes so
// unmatched lines can later be folded into the preceding transaction.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return lines
}
