package workflow

import (
	"context"

	domainwf "github.com/garyjia/expense-approval/internal/domain/workflow"
)

// BuildClaimStateMachine creates the claim lifecycle machine positioned at initialState.
// hasNextStep decides between ADVANCE and COMPLETE on an approval.
//
//	AWAITING_APPROVAL --ADVANCE------> AWAITING_APPROVAL  [hasNextStep]
//	AWAITING_APPROVAL --COMPLETE-----> APPROVED           [!hasNextStep]
//	AWAITING_APPROVAL --AUTO_APPROVE-> APPROVED
//	AWAITING_APPROVAL --REJECT-------> REJECTED
func BuildClaimStateMachine(initialState domainwf.State, hasNextStep domainwf.GuardFunc) domainwf.StateMachine {
	if hasNextStep == nil {
		hasNextStep = func(context.Context) bool { return false }
	}
	lastStep := func(ctx context.Context) bool { return !hasNextStep(ctx) }

	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateAwaitingApproval).
		PermitIf(domainwf.TriggerAdvance, domainwf.StateAwaitingApproval, hasNextStep).
		PermitIf(domainwf.TriggerComplete, domainwf.StateApproved, lastStep).
		Permit(domainwf.TriggerAutoApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	// APPROVED and REJECTED are terminal

	return builder.Build(initialState)
}
