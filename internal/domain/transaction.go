package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Direction defines whether money moved into or out of the account.
type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

func (d Direction) String() string { return string(d) }

// MovementKind is a coarser classification used for statement totals.
type MovementKind string

const (
	Income   MovementKind = "INCOME"
	Expense  MovementKind = "EXPENSE"
	Transfer MovementKind = "TRANSFER"
)

func (k MovementKind) String() string { return string(k) }

// Transaction represents one normalized statement movement.
// This is a domain struct, not a storage row; the caller maps it into
// whatever schema it persists to.
//
// Amount is signed: credits are >= 0, debits are <= 0. The normalizer
// guarantees the sign agrees with Direction before a transaction leaves
// the engine.
type Transaction struct {
	Ref          string           `json:"ref"`
	Date         civil.Date       `json:"date"` // zero value means "no date extracted"
	Description  string           `json:"description"`
	Amount       decimal.Decimal  `json:"amount"`
	Direction    Direction        `json:"direction"`
	Kind         MovementKind     `json:"movement_kind"`
	Reference    string           `json:"reference,omitempty"`
	BalanceAfter *decimal.Decimal `json:"balance_after,omitempty"`
	Confidence   float64          `json:"confidence"`
	MSI          *Installment     `json:"msi,omitempty"`
}

// HasDate reports whether a calendar date was extracted for the movement.
func (t Transaction) HasDate() bool {
	return t.Date.IsValid()
}

// AbsAmount returns the unsigned magnitude of the movement.
func (t Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// Installment carries the MSI ("Meses Sin Intereses") enrichment attached
// to a credit-card charge once it has been linked to an issued invoice.
type Installment struct {
	InvoiceID    string   `json:"invoice_id"`
	Months       *int     `json:"months,omitempty"` // one of 3, 6, 9, 12, 18, 24
	Confidence   float64  `json:"confidence"`
	ModelTag     string   `json:"model_tag,omitempty"`
	Ambiguous    bool     `json:"ambiguous,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}
