package domain

// AccountType distinguishes the two statement families the engine handles.
// Installment matching only applies to credit cards.
type AccountType string

const (
	CreditCard  AccountType = "CREDIT_CARD"
	Checking    AccountType = "CHECKING"
	UnknownType AccountType = "UNKNOWN"
)

func (t AccountType) String() string { return string(t) }

// AccountMetadata identifies the account the statement belongs to.
// Supplied by the caller, echoed back on profile updates.
type AccountMetadata struct {
	AccountID string `json:"account_id"`
	CompanyID string `json:"company_id,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
}

// AccountProfileUpdate is a side-effect record emitted when a high-confidence
// classification disagrees with the previously known account profile.
// The engine never applies it; the caller decides whether to persist.
type AccountProfileUpdate struct {
	AccountID  string  `json:"account_id"`
	Field      string  `json:"field"` // "account_type" or "bank_name"
	OldValue   string  `json:"old_value"`
	NewValue   string  `json:"new_value"`
	Confidence float64 `json:"confidence"`
}
