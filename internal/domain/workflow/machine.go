package workflow

import "context"

// StateMachine tracks the lifecycle state of one claim and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether Fire would succeed, evaluating guards
	CanFire(ctx context.Context, trigger Trigger) bool

	// Fire executes the trigger, moving to the target state if allowed
	Fire(ctx context.Context, trigger Trigger) error
}
