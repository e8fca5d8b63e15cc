package workflow

import "github.com/garyjia/expense-approval/internal/domain/entity"

// State represents a claim's position in the approval lifecycle
type State string

const (
	StateAwaitingApproval State = "AWAITING_APPROVAL"
	StateApproved         State = "APPROVED"
	StateRejected         State = "REJECTED"
)

var validStates = map[State]bool{
	StateAwaitingApproval: true,
	StateApproved:         true,
	StateRejected:         true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// StateFromClaimStatus maps a persisted claim status onto the lifecycle state
func StateFromClaimStatus(status entity.ClaimStatus) (State, error) {
	switch status {
	case entity.ClaimStatusPending:
		return StateAwaitingApproval, nil
	case entity.ClaimStatusApproved:
		return StateApproved, nil
	case entity.ClaimStatusRejected:
		return StateRejected, nil
	default:
		return "", ErrInvalidState
	}
}

// ClaimStatus maps the lifecycle state back onto the persisted claim status
func (s State) ClaimStatus() entity.ClaimStatus {
	switch s {
	case StateApproved:
		return entity.ClaimStatusApproved
	case StateRejected:
		return entity.ClaimStatusRejected
	default:
		return entity.ClaimStatusPending
	}
}
