package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleType selects which conditional auto-approval checks apply
type RuleType string

const (
	RuleTypeNone       RuleType = "NONE"
	RuleTypeSpecific   RuleType = "SPECIFIC"
	RuleTypePercentage RuleType = "PERCENTAGE"
	RuleTypeHybrid     RuleType = "HYBRID"
)

// IsValid returns true if the rule type is one of the defined types
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeNone, RuleTypeSpecific, RuleTypePercentage, RuleTypeHybrid:
		return true
	default:
		return false
	}
}

// UsesSpecificApprover reports whether the specific-approver check applies
func (t RuleType) UsesSpecificApprover() bool {
	return t == RuleTypeSpecific || t == RuleTypeHybrid
}

// UsesPercentage reports whether the percentage threshold check applies
func (t RuleType) UsesPercentage() bool {
	return t == RuleTypePercentage || t == RuleTypeHybrid
}

// ApprovalRuleConfig is the single approval configuration of a company
type ApprovalRuleConfig struct {
	ID                     int64               `json:"id"`
	CompanyID              int64               `json:"company_id"`
	IsManagerFirstApprover bool                `json:"is_manager_first_approver"`
	RuleType               RuleType            `json:"rule_type"`
	ThresholdValue         decimal.NullDecimal `json:"threshold_value"`
	SpecificApproverRole   Role                `json:"specific_approver_role,omitempty"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}
