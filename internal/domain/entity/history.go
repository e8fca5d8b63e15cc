package entity

import "time"

// History action types
const (
	ActionSubmit      = "SUBMIT"
	ActionApprove     = "APPROVE"
	ActionReject      = "REJECT"
	ActionAutoApprove = "AUTO_APPROVE"
	ActionAssign      = "ASSIGN"
)

// ClaimHistory is one entry in the audit trail of a claim
type ClaimHistory struct {
	ID             int64     `json:"id"`
	ClaimID        int64     `json:"claim_id"`
	ActorID        int64     `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ActionType     string    `json:"action_type"`
	StepSequence   int       `json:"step_sequence,omitempty"`
	Comment        string    `json:"comment,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
