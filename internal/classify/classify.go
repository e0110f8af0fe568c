// Package classify infers which bank issued a statement and whether the
// account is a credit card or a checking account, from the statement text
// alone. Both signals are advisory: the engine reports them with a
// confidence and the caller decides what to persist.
package classify

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/rules"
)

const (
	exactBankConfidence = 0.95
	fuzzyBankConfidence = 0.80

	// Profile update thresholds. Bank-name changes need the higher bar
	// because a wrong bank flips the whole rule set on the next parse.
	accountTypeUpdateThreshold = 0.80
	bankNameUpdateThreshold    = 0.90
)

// bankAliases maps the canonical bank id to the phrases that identify it in
// statement headers. Aliases are matched over folded text.
var bankAliases = map[string][]string{
	"bbva":       {"bbva", "bancomer"},
	"santander":  {"santander"},
	"banorte":    {"banorte"},
	"hsbc":       {"hsbc"},
	"banamex":    {"banamex", "citibanamex"},
	"scotiabank": {"scotiabank"},
	"azteca":     {"banco azteca"},
	"banregio":   {"banregio"},
	"inbursa":    {"inbursa"},
	"afirme":     {"afirme"},
}

var creditCardMarkers = []string{
	"tarjeta de credito",
	"pago minimo",
	"pago para no generar intereses",
	"fecha limite de pago",
	"credito disponible",
	"meses sin intereses",
	"saldo al corte",
	"limite de credito",
}

var checkingMarkers = []string{
	"cuenta de cheques",
	"cuenta eje",
	"cuenta maestra",
	"clabe interbancaria",
	"retiro de efectivo",
	"deposito en efectivo",
	"cuenta de nomina",
	"chequera",
}

// Result is the combined classification for one statement.
type Result struct {
	BankID         string             `json:"bank_id,omitempty"`
	BankConfidence float64            `json:"bank_confidence"`
	AccountType    domain.AccountType `json:"account_type"`
	TypeConfidence float64            `json:"type_confidence"`
}

// KnownProfile is what the caller already believes about the account.
type KnownProfile struct {
	BankName    string
	AccountType domain.AccountType
}

// Advisory is a classification supplied by an external collaborator,
// typically the model layer that produced the statement text. One
// confidence covers both fields.
type Advisory struct {
	BankName    string             `json:"bank_name,omitempty"`
	AccountType domain.AccountType `json:"account_type,omitempty"`
	Confidence  float64            `json:"confidence"`
}

// Merge overlays an optional advisory classification on the text-derived
// result, field by field: whichever signal carries the higher confidence
// wins, with ties going to the advisory. Advisory bank names are folded to
// bank IDs so they key the same rule overrides.
func Merge(text Result, advisory *Advisory) Result {
	out := text
	if advisory == nil {
		return out
	}
	if advisory.BankName != "" && advisory.Confidence >= out.BankConfidence {
		out.BankID = rules.Fold(advisory.BankName)
		out.BankConfidence = advisory.Confidence
	}
	if advisory.AccountType != "" && advisory.AccountType != domain.UnknownType &&
		advisory.Confidence >= out.TypeConfidence {
		out.AccountType = advisory.AccountType
		out.TypeConfidence = advisory.Confidence
	}
	return out
}

// Classify runs both detectors over the statement text.
func Classify(text string) Result {
	res := Result{}
	res.BankID, res.BankConfidence = DetectBank(text)
	res.AccountType, res.TypeConfidence = DetectAccountType(text)
	return res
}

// DetectBank finds the bank whose aliases appear most often in the text.
// Exact substring hits are tried first; when none land, a fuzzy pass
// tolerates one edit per word so that OCR noise ("BANCOMFR") still resolves.
func DetectBank(text string) (string, float64) {
	folded := rules.Fold(text)

	if bank := bankByCount(folded, exactAliasHits); bank != "" {
		return bank, exactBankConfidence
	}
	if bank := bankByCount(folded, fuzzyAliasHits); bank != "" {
		return bank, fuzzyBankConfidence
	}
	return "", 0
}

type hitCounter func(folded, alias string) int

func bankByCount(folded string, count hitCounter) string {
	best, bestHits, bestPos := "", 0, len(folded)
	for bank, aliases := range bankAliases {
		hits, pos := 0, len(folded)
		for _, alias := range aliases {
			hits += count(folded, alias)
			if p := strings.Index(folded, alias); p >= 0 && p < pos {
				pos = p
			}
		}
		if hits > bestHits || (hits == bestHits && hits > 0 && pos < bestPos) {
			best, bestHits, bestPos = bank, hits, pos
		}
	}
	return best
}

func exactAliasHits(folded, alias string) int {
	return strings.Count(folded, alias)
}

// fuzzyAliasHits compares each text word of five or more characters against
// the alias and counts those within one edit. Short words are excluded: one
// edit on a four-letter word matches far too much.
func fuzzyAliasHits(folded, alias string) int {
	if strings.Contains(alias, " ") {
		return 0
	}
	hits := 0
	for _, word := range strings.Fields(folded) {
		if len(word) < 5 || len(alias) < 5 {
			continue
		}
		if levenshtein.ComputeDistance(word, alias) <= 1 {
			hits++
		}
	}
	return hits
}

// DetectAccountType scores credit-card markers against checking markers.
// Confidence grows with the winning margin and stays inside [0.5, 0.8]:
// text markers alone never justify full certainty.
func DetectAccountType(text string) (domain.AccountType, float64) {
	folded := rules.Fold(text)

	credit := markerHits(folded, creditCardMarkers)
	checking := markerHits(folded, checkingMarkers)

	switch {
	case credit == 0 && checking == 0:
		return domain.UnknownType, 0
	case credit > checking:
		return domain.CreditCard, typeConfidence(credit - checking)
	case checking > credit:
		return domain.Checking, typeConfidence(checking - credit)
	}
	return domain.UnknownType, 0.5
}

func markerHits(folded string, markers []string) int {
	hits := 0
	for _, m := range markers {
		if strings.Contains(folded, m) {
			hits++
		}
	}
	return hits
}

func typeConfidence(margin int) float64 {
	c := 0.5 + 0.1*float64(margin)
	if c > 0.8 {
		c = 0.8
	}
	return c
}

// MSIEligible reports whether installment matching applies to the account.
// Installment plans only exist on credit cards.
func MSIEligible(t domain.AccountType) bool {
	return t == domain.CreditCard
}

// ProfileUpdates compares the classification against the caller's known
// profile and emits update records for high-confidence disagreements.
// Nothing is applied here; persistence is the caller's call.
func ProfileUpdates(meta domain.AccountMetadata, known KnownProfile, res Result) []domain.AccountProfileUpdate {
	var updates []domain.AccountProfileUpdate

	if res.TypeConfidence >= accountTypeUpdateThreshold &&
		res.AccountType != domain.UnknownType &&
		res.AccountType != known.AccountType {
		updates = append(updates, domain.AccountProfileUpdate{
			AccountID:  meta.AccountID,
			Field:      "account_type",
			OldValue:   string(known.AccountType),
			NewValue:   string(res.AccountType),
			Confidence: res.TypeConfidence,
		})
	}

	if res.BankConfidence >= bankNameUpdateThreshold &&
		res.BankID != "" &&
		rules.Fold(known.BankName) != res.BankID {
		updates = append(updates, domain.AccountProfileUpdate{
			AccountID:  meta.AccountID,
			Field:      "bank_name",
			OldValue:   known.BankName,
			NewValue:   res.BankID,
			Confidence: res.BankConfidence,
		})
	}
	return updates
}
