package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// InvoiceCandidate is an invoice supplied by the caller as a potential
// counterpart for a credit-card charge. The engine treats candidates as
// read-only; it never mutates or persists them.
type InvoiceCandidate struct {
	ID              string          `json:"id"`
	Date            civil.Date      `json:"date"`
	Total           decimal.Decimal `json:"total"`
	PaidByCard      bool            `json:"paid_by_card"`
	ConfirmedMonths *int            `json:"confirmed_months,omitempty"`
}

// MatchResult links one debit transaction to one invoice candidate,
// with an inferred installment count when a plan could be recognized.
type MatchResult struct {
	TransactionRef string   `json:"transaction_ref"`
	InvoiceID      string   `json:"invoice_id"`
	Months         *int     `json:"months,omitempty"`
	Confidence     float64  `json:"confidence"`
	Ambiguous      bool     `json:"ambiguous,omitempty"`
	Alternatives   []string `json:"alternatives,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty"`
}
