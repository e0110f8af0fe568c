package extract

import (
	"strings"

	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/rules"
)

// openingMarkers are statement-level phrases whose presence indicates the
// parse covered the balance header, not just a transaction fragment.
var openingMarkers = []string{
	"saldo anterior",
	"saldo inicial",
	"saldo al corte",
	"opening balance",
}

// Score rates one strategy's candidate parse on a 0..1 scale. The weights
// favor row count and description variety, with amount/date validity as
// secondary signals:
//
//	0.30 row count, saturating at 50
//	0.20 opening-balance marker present in the raw text
//	0.20 distinct description prefixes, saturating at 20
//	0.15 valid (non-zero) amount ratio
//	0.15 valid date ratio
func Score(txs []domain.Transaction, rawText string) float64 {
	count := len(txs)
	if count == 0 {
		return 0
	}

	countScore := min1(float64(count) / 50)

	marker := 0.0
	folded := rules.Fold(rawText)
	for _, m := range openingMarkers {
		if strings.Contains(folded, m) {
			marker = 1
			break
		}
	}

	prefixes := make(map[string]bool, count)
	validAmounts, validDates := 0, 0
	for _, tx := range txs {
		p := rules.Fold(tx.Description)
		if len(p) > 8 {
			p = p[:8]
		}
		prefixes[p] = true
		if !tx.Amount.IsZero() {
			validAmounts++
		}
		if tx.HasDate() {
			validDates++
		}
	}

	prefixScore := min1(float64(len(prefixes)) / 20)
	amountRatio := float64(validAmounts) / float64(count)
	dateRatio := float64(validDates) / float64(count)

	return 0.3*countScore + 0.2*marker + 0.2*prefixScore + 0.15*amountRatio + 0.15*dateRatio
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
