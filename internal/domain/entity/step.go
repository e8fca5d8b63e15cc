package entity

import "time"

// StepStatus is the decision state of a single approval step
type StepStatus string

const (
	StepStatusPending  StepStatus = "PENDING"
	StepStatusApproved StepStatus = "APPROVED"
	StepStatusRejected StepStatus = "REJECTED"
)

// ApprovalStep is one required decision point in a claim's workflow.
// Sequence starts at 1 and is contiguous per claim; ApproverRole is the role the
// approver held when the step was created.
type ApprovalStep struct {
	ID           int64      `json:"id"`
	ClaimID      int64      `json:"claim_id"`
	ApproverID   int64      `json:"approver_id"`
	ApproverRole Role       `json:"approver_role"`
	Sequence     int        `json:"sequence"`
	Status       StepStatus `json:"status"`
	Comment      string     `json:"comments,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsPending returns true if no decision has been recorded on the step
func (s *ApprovalStep) IsPending() bool {
	return s.Status == StepStatusPending
}
