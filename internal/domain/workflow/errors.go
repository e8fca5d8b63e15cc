package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrInvalidAction is returned for an unrecognized decision token
	ErrInvalidAction = errors.New("invalid action: must be APPROVE or REJECT")

	// ErrNotAwaitingApproval is returned when the approver has no reachable pending step on the claim
	ErrNotAwaitingApproval = errors.New("claim not awaiting your approval or you already acted on it")

	// ErrClaimNotFound is returned when the claim does not exist
	ErrClaimNotFound = errors.New("claim not found")

	// ErrNotStalled is returned when manual assignment targets a claim that already has steps or is closed
	ErrNotStalled = errors.New("claim is not stalled")

	// ErrInvalidApprover is returned when a manual assignee is unknown, belongs to another company or cannot approve
	ErrInvalidApprover = errors.New("approver must be a manager or admin of the claim's company")
)
