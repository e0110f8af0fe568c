package rules

import "regexp"

// Base keyword lists for Mexican bank statements. Every resolved RuleSet
// contains at least these entries; bank overrides only add to them.
var (
	baseCreditKeywords = []string{
		"abono",
		"deposito",
		"pago recibido",
		"transferencia recibida",
		"spei recibido",
		"devolucion",
		"reembolso",
		"rendimiento",
		"interes ganado",
		"nomina",
		"su pago",
	}

	baseDebitKeywords = []string{
		"cargo",
		"retiro",
		"compra",
		"comision",
		"transferencia enviada",
		"spei enviado",
		"domiciliacion",
		"disposicion",
		"anualidad",
		"iva",
		"pago de servicio",
	}

	baseSkipKeywords = []string{
		"saldo anterior",
		"saldo inicial",
		"saldo final",
		"saldo actual",
		"estado de cuenta",
		"periodo del",
		"pagina",
		"hoja",
		"rfc",
		"clabe interbancaria",
		"total de movimientos",
		"movimientos del periodo",
		"detalle de movimientos",
		"www.",
		"aviso importante",
		"linea sin costo",
	}
)

// baseAmountPatterns recognize currency tokens in Mexican statement layouts:
// optional $ sign, thousands commas, two decimals, and the trailing-minus or
// parenthesized negative variants some banks print.
var baseAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$?\s?\(([\d,]+\.\d{2})\)`),
	regexp.MustCompile(`\$?\s?([\d,]+\.\d{2})\s?-`),
	regexp.MustCompile(`\$?\s?([\d,]+\.\d{2})`),
}

// Base returns a fresh copy of the immutable base RuleSet.
func Base() RuleSet {
	return RuleSet{
		BankID:            "",
		CreditKeywords:    setOf(baseCreditKeywords...),
		DebitKeywords:     setOf(baseDebitKeywords...),
		SkipKeywords:      setOf(baseSkipKeywords...),
		AmountPatterns:    append([]*regexp.Regexp(nil), baseAmountPatterns...),
		LinePatterns:      nil,
		PreferFirstAmount: false,
		HasRunningBalance: true,
		MergeMultiline:    true,
	}
}
