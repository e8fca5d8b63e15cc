package workflow

import (
	"fmt"

	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Outcome is the result of evaluating a company's conditional approval rule
type Outcome struct {
	AutoApprove bool
	Reason      string
	// Percentage is the approved share of all steps, set when the percentage check ran
	Percentage decimal.Decimal
}

// EvaluateAutoApproval reports whether the claim should be approved right away
// after justApproved was approved.
func EvaluateAutoApproval(claim *entity.Claim, justApproved *entity.ApprovalStep, steps []*entity.ApprovalStep, rule *entity.ApprovalRuleConfig) bool {
	return Evaluate(claim, justApproved, steps, rule).AutoApprove
}

// Evaluate runs the specific-approver check and then the percentage check.
//
// The just-approved step counts as approved whether or not its new state has
// been persisted yet, and is never counted twice.
func Evaluate(claim *entity.Claim, justApproved *entity.ApprovalStep, steps []*entity.ApprovalStep, rule *entity.ApprovalRuleConfig) Outcome {
	if rule == nil || justApproved == nil {
		return Outcome{}
	}

	if rule.RuleType.UsesSpecificApprover() && rule.SpecificApproverRole != "" {
		if justApproved.ApproverRole == rule.SpecificApproverRole {
			return Outcome{
				AutoApprove: true,
				Reason:      fmt.Sprintf("specific approver %s approved", rule.SpecificApproverRole),
			}
		}
	}

	if rule.RuleType.UsesPercentage() && rule.ThresholdValue.Valid && rule.ThresholdValue.Decimal.IsPositive() {
		total := len(steps)
		if total == 0 {
			return Outcome{}
		}

		approved := 1
		for _, s := range steps {
			if s.Status == entity.StepStatusApproved && !sameStep(s, justApproved) {
				approved++
			}
		}

		pct := decimal.NewFromInt(int64(approved)).Div(decimal.NewFromInt(int64(total))).Mul(hundred)
		if pct.GreaterThanOrEqual(rule.ThresholdValue.Decimal) {
			return Outcome{
				AutoApprove: true,
				Reason:      fmt.Sprintf("%s%% approved (%d/%d) meets threshold %s%%", pct.StringFixed(0), approved, total, rule.ThresholdValue.Decimal.String()),
				Percentage:  pct,
			}
		}
		return Outcome{Percentage: pct}
	}

	return Outcome{}
}

// sameStep matches by ID when persisted, by sequence otherwise
func sameStep(a, b *entity.ApprovalStep) bool {
	if a == b {
		return true
	}
	if a.ID != 0 && b.ID != 0 {
		return a.ID == b.ID
	}
	return a.ClaimID == b.ClaimID && a.Sequence == b.Sequence
}
