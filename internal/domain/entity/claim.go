package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus is the aggregate status of an expense claim
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "PENDING"
	ClaimStatusApproved ClaimStatus = "APPROVED"
	ClaimStatusRejected ClaimStatus = "REJECTED"
)

// IsTerminal returns true once the claim can no longer change
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusApproved || s == ClaimStatusRejected
}

// String returns the string representation of the status
func (s ClaimStatus) String() string {
	return string(s)
}

// Claim is one expense submission undergoing approval.
// AmountInCompanyCurrency is set once at submission and never updated.
type Claim struct {
	ID                      int64           `json:"id"`
	SubmitterID             int64           `json:"submitter_id"`
	CompanyID               int64           `json:"company_id"`
	AmountClaimed           decimal.Decimal `json:"amount_claimed"`
	CurrencyClaimed         string          `json:"currency_claimed"`
	AmountInCompanyCurrency decimal.Decimal `json:"amount_in_company_currency"`
	Category                string          `json:"category"`
	Description             string          `json:"description"`
	ExpenseDate             time.Time       `json:"date"`
	Status                  ClaimStatus     `json:"status"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// IsPending returns true while the claim awaits a decision
func (c *Claim) IsPending() bool {
	return c.Status == ClaimStatusPending
}
