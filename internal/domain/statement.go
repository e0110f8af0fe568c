package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ReconciliationStatus reports whether opening + credits - debits agreed
// with the closing balance within tolerance.
type ReconciliationStatus string

const (
	ReconciliationOK       ReconciliationStatus = "OK"
	ReconciliationMismatch ReconciliationStatus = "MISMATCH"
)

func (s ReconciliationStatus) String() string { return string(s) }

// StatementSummary is the aggregate view of one parsed statement.
type StatementSummary struct {
	OpeningBalance *decimal.Decimal     `json:"opening_balance,omitempty"`
	ClosingBalance *decimal.Decimal     `json:"closing_balance,omitempty"`
	TotalCredits   decimal.Decimal      `json:"total_credits"`
	TotalDebits    decimal.Decimal      `json:"total_debits"`
	TotalIncomes   decimal.Decimal      `json:"total_incomes"`
	TotalExpenses  decimal.Decimal      `json:"total_expenses"`
	TotalTransfers decimal.Decimal      `json:"total_transfers"`
	Count          int                  `json:"transaction_count"`
	PeriodStart    civil.Date           `json:"period_start"`
	PeriodEnd      civil.Date           `json:"period_end"`
	Status         ReconciliationStatus `json:"reconciliation_status"`
	DetectedBank   string               `json:"detected_bank,omitempty"`
}
