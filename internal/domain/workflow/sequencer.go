package workflow

import (
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// DefaultAdminThreshold is the amount in company currency above which the
// company admin must sign off in addition to the manager.
var DefaultAdminThreshold = decimal.NewFromInt(500)

// Approver identifies a resolved approver and the role they hold
type Approver struct {
	UserID int64
	Role   entity.Role
}

// ApproverFromUser converts a directory user into an Approver. Nil stays nil.
func ApproverFromUser(u *entity.User) *Approver {
	if u == nil {
		return nil
	}
	return &Approver{UserID: u.ID, Role: u.Role}
}

type sequencerOptions struct {
	adminThreshold decimal.Decimal
}

// SequencerOption configures BuildSteps
type SequencerOption func(*sequencerOptions)

// WithAdminThreshold overrides DefaultAdminThreshold
func WithAdminThreshold(threshold decimal.Decimal) SequencerOption {
	return func(o *sequencerOptions) {
		o.adminThreshold = threshold
	}
}

// BuildSteps produces the ordered approval steps for a newly submitted claim.
//
// Priority order:
//  1. the submitter's manager, when the company requires manager-first approval
//     (the default when no rule is configured);
//  2. the company admin, when the converted amount exceeds the admin threshold,
//     unless the admin is the approver just appended;
//  3. the company admin as fallback when nobody was appended.
//
// An empty result means no approver could be resolved; the claim must be
// assigned manually.
func BuildSteps(claim *entity.Claim, manager, admin *Approver, rule *entity.ApprovalRuleConfig, opts ...SequencerOption) []*entity.ApprovalStep {
	o := sequencerOptions{adminThreshold: DefaultAdminThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	var approvers []*Approver

	managerFirst := rule == nil || rule.IsManagerFirstApprover
	if managerFirst && manager != nil {
		approvers = append(approvers, manager)
	}

	if admin != nil && claim.AmountInCompanyCurrency.GreaterThan(o.adminThreshold) {
		if len(approvers) == 0 || approvers[len(approvers)-1].UserID != admin.UserID {
			approvers = append(approvers, admin)
		}
	}

	if len(approvers) == 0 && admin != nil {
		approvers = append(approvers, admin)
	}

	steps := make([]*entity.ApprovalStep, 0, len(approvers))
	for i, a := range approvers {
		steps = append(steps, &entity.ApprovalStep{
			ClaimID:      claim.ID,
			ApproverID:   a.UserID,
			ApproverRole: a.Role,
			Sequence:     i + 1,
			Status:       entity.StepStatusPending,
		})
	}

	return steps
}

// ActiveStep returns the lowest-sequence pending step, which is the only step
// that may be acted upon. Steps must be ordered by sequence.
func ActiveStep(steps []*entity.ApprovalStep) *entity.ApprovalStep {
	for _, s := range steps {
		if s.IsPending() {
			return s
		}
	}
	return nil
}

// StepAt returns the step with the given sequence, or nil
func StepAt(steps []*entity.ApprovalStep, sequence int) *entity.ApprovalStep {
	for _, s := range steps {
		if s.Sequence == sequence {
			return s
		}
	}
	return nil
}
