package workflow

import (
	"context"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// WorkflowEngine drives claims through their approval steps
type WorkflowEngine interface {
	// InitiateWorkflow persists a new claim together with its approval steps.
	// The claim must carry its converted amount. An empty step list means no
	// approver could be resolved and the claim is stalled.
	InitiateWorkflow(ctx context.Context, claim *entity.Claim) ([]*entity.ApprovalStep, error)

	// RecordDecision applies an approver's APPROVE or REJECT to the claim's
	// active step and returns the updated claim.
	RecordDecision(ctx context.Context, claimID, approverID int64, action, comment string) (*entity.Claim, error)

	// AssignApprover creates the first step of a stalled claim
	AssignApprover(ctx context.Context, claimID, approverID, actorID int64) (*entity.ApprovalStep, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
