package workflow

import (
	"testing"

	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/shopspring/decimal"
)

func claimWithAmount(amount string) *entity.Claim {
	return &entity.Claim{
		ID:                      42,
		AmountInCompanyCurrency: decimal.RequireFromString(amount),
		Status:                  entity.ClaimStatusPending,
	}
}

var (
	testManager = &Approver{UserID: 10, Role: entity.RoleManager}
	testAdmin   = &Approver{UserID: 1, Role: entity.RoleAdmin}
)

func approverIDs(steps []*entity.ApprovalStep) []int64 {
	ids := make([]int64, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ApproverID)
	}
	return ids
}

func TestBuildSteps(t *testing.T) {
	managerFirstOff := &entity.ApprovalRuleConfig{IsManagerFirstApprover: false, RuleType: entity.RuleTypeNone}
	managerFirstOn := &entity.ApprovalRuleConfig{IsManagerFirstApprover: true, RuleType: entity.RuleTypeNone}

	tests := []struct {
		name    string
		amount  string
		manager *Approver
		admin   *Approver
		rule    *entity.ApprovalRuleConfig
		want    []int64
	}{
		{"over threshold without config gives manager then admin", "600", testManager, testAdmin, nil, []int64{10, 1}},
		{"under threshold gives manager only", "120", testManager, testAdmin, nil, []int64{10}},
		{"exactly threshold is not over", "500", testManager, testAdmin, nil, []int64{10}},
		{"manager first disabled falls back to admin", "120", testManager, testAdmin, managerFirstOff, []int64{1}},
		{"manager first disabled over threshold gives admin once", "900", testManager, testAdmin, managerFirstOff, []int64{1}},
		{"manager first enabled by rule", "900", testManager, testAdmin, managerFirstOn, []int64{10, 1}},
		{"no manager falls back to admin", "50", nil, testAdmin, nil, []int64{1}},
		{"no manager over threshold gives admin once", "5000", nil, testAdmin, nil, []int64{1}},
		{"manager only and over threshold without admin", "5000", testManager, nil, nil, []int64{10}},
		{"nobody resolvable", "80", nil, nil, nil, []int64{}},
		{"manager is admin is deduplicated", "700", testAdmin, testAdmin, nil, []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := BuildSteps(claimWithAmount(tt.amount), tt.manager, tt.admin, tt.rule)

			got := approverIDs(steps)
			if len(got) != len(tt.want) {
				t.Fatalf("BuildSteps() approvers = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("BuildSteps() approvers = %v, want %v", got, tt.want)
				}
			}

			for i, s := range steps {
				if s.Sequence != i+1 {
					t.Errorf("step %d sequence = %d, want %d", i, s.Sequence, i+1)
				}
				if s.Status != entity.StepStatusPending {
					t.Errorf("step %d status = %s, want PENDING", i, s.Status)
				}
				if s.ClaimID != 42 {
					t.Errorf("step %d claim id = %d, want 42", i, s.ClaimID)
				}
			}
		})
	}
}

func TestBuildSteps_CapturesApproverRole(t *testing.T) {
	steps := BuildSteps(claimWithAmount("1000"), testManager, testAdmin, nil)

	if steps[0].ApproverRole != entity.RoleManager || steps[1].ApproverRole != entity.RoleAdmin {
		t.Errorf("roles = %s, %s; want MANAGER, ADMIN", steps[0].ApproverRole, steps[1].ApproverRole)
	}
}

func TestBuildSteps_WithAdminThreshold(t *testing.T) {
	steps := BuildSteps(claimWithAmount("150"), testManager, testAdmin, nil, WithAdminThreshold(decimal.NewFromInt(100)))

	if len(steps) != 2 {
		t.Fatalf("BuildSteps() returned %d steps, want 2", len(steps))
	}
}

func TestActiveStep(t *testing.T) {
	steps := []*entity.ApprovalStep{
		{Sequence: 1, Status: entity.StepStatusApproved},
		{Sequence: 2, Status: entity.StepStatusPending},
		{Sequence: 3, Status: entity.StepStatusPending},
	}

	if got := ActiveStep(steps); got == nil || got.Sequence != 2 {
		t.Fatalf("ActiveStep() = %+v, want sequence 2", got)
	}

	steps[1].Status = entity.StepStatusApproved
	steps[2].Status = entity.StepStatusApproved
	if got := ActiveStep(steps); got != nil {
		t.Errorf("ActiveStep() = %+v, want nil", got)
	}

	if got := StepAt(steps, 3); got == nil || got.Sequence != 3 {
		t.Errorf("StepAt(3) = %+v", got)
	}
	if got := StepAt(steps, 4); got != nil {
		t.Errorf("StepAt(4) = %+v, want nil", got)
	}
}
