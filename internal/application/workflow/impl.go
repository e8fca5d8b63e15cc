package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
	domainwf "github.com/garyjia/expense-approval/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// Repositories groups the storage ports the engine reads and writes
type Repositories struct {
	Claims    port.ClaimRepository
	Steps     port.StepRepository
	Rules     port.RuleRepository
	Directory port.Directory
	History   port.HistoryRepository
}

type engineImpl struct {
	claims    port.ClaimRepository
	steps     port.StepRepository
	rules     port.RuleRepository
	directory port.Directory
	history   port.HistoryRepository
	txManager port.TransactionManager

	dispatcher     dispatcher.Dispatcher
	logger         Logger
	adminThreshold decimal.Decimal
	now            func() time.Time

	locks *claimLocks
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithAdminThreshold sets the amount above which the company admin signs off
func WithAdminThreshold(threshold decimal.Decimal) EngineOption {
	return func(e *engineImpl) {
		e.adminThreshold = threshold
	}
}

// NewEngine creates a new workflow engine
func NewEngine(repos Repositories, txManager port.TransactionManager, opts ...EngineOption) WorkflowEngine {
	e := &engineImpl{
		claims:         repos.Claims,
		steps:          repos.Steps,
		rules:          repos.Rules,
		directory:      repos.Directory,
		history:        repos.History,
		txManager:      txManager,
		logger:         nopLogger{},
		adminThreshold: domainwf.DefaultAdminThreshold,
		now:            func() time.Time { return time.Now().UTC() },
		locks:          newClaimLocks(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// InitiateWorkflow persists the claim and its approval steps in one transaction
func (e *engineImpl) InitiateWorkflow(ctx context.Context, claim *entity.Claim) ([]*entity.ApprovalStep, error) {
	manager, err := e.directory.GetManager(ctx, claim.SubmitterID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manager: %w", err)
	}
	admin, err := e.directory.GetCompanyAdmin(ctx, claim.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve company admin: %w", err)
	}
	rule, err := e.rules.GetByCompanyID(ctx, claim.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval rule: %w", err)
	}

	now := e.now()
	claim.Status = entity.ClaimStatusPending
	claim.CreatedAt = now
	claim.UpdatedAt = now

	var steps []*entity.ApprovalStep
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.claims.Create(txCtx, claim); err != nil {
			return fmt.Errorf("failed to create claim: %w", err)
		}

		steps = domainwf.BuildSteps(claim,
			domainwf.ApproverFromUser(manager),
			domainwf.ApproverFromUser(admin),
			rule,
			domainwf.WithAdminThreshold(e.adminThreshold),
		)
		for _, s := range steps {
			s.CreatedAt = now
			s.UpdatedAt = now
		}

		if len(steps) > 0 {
			if err := e.steps.CreateBatch(txCtx, steps); err != nil {
				return fmt.Errorf("failed to create approval steps: %w", err)
			}
		}

		return e.history.Create(txCtx, &entity.ClaimHistory{
			ClaimID:    claim.ID,
			ActorID:    claim.SubmitterID,
			NewStatus:  string(entity.ClaimStatusPending),
			ActionType: entity.ActionSubmit,
			Timestamp:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Claim submitted",
		"claim_id", claim.ID,
		"submitter_id", claim.SubmitterID,
		"amount", claim.AmountInCompanyCurrency.String(),
		"steps", len(steps),
	)

	e.publish(ctx, event.NewEvent(event.TypeClaimSubmitted, claim.ID, map[string]interface{}{
		event.KeySubmitterID: claim.SubmitterID,
		event.KeyCompanyID:   claim.CompanyID,
	}))

	if len(steps) == 0 {
		e.logger.Warn("Unresolved approver chain, claim requires manual assignment",
			"claim_id", claim.ID,
			"company_id", claim.CompanyID,
			"submitter_id", claim.SubmitterID,
		)
		e.publish(ctx, event.NewEvent(event.TypeClaimStalled, claim.ID, map[string]interface{}{
			event.KeySubmitterID: claim.SubmitterID,
			event.KeyCompanyID:   claim.CompanyID,
		}))
		return steps, nil
	}

	e.publish(ctx, stepActivated(claim, steps[0]))
	return steps, nil
}

// RecordDecision applies a decision to the claim's active step under the claim lock
func (e *engineImpl) RecordDecision(ctx context.Context, claimID, approverID int64, token, comment string) (*entity.Claim, error) {
	action, err := domainwf.ParseAction(token)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(claimID)
	defer unlock()

	claim, err := e.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if claim == nil {
		return nil, domainwf.ErrClaimNotFound
	}

	state, err := domainwf.StateFromClaimStatus(claim.Status)
	if err != nil {
		return nil, fmt.Errorf("claim %d: %w", claimID, err)
	}
	if state.IsTerminal() {
		return nil, domainwf.ErrNotAwaitingApproval
	}

	steps, err := e.steps.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval steps: %w", err)
	}

	active := domainwf.ActiveStep(steps)
	if active == nil || active.ApproverID != approverID {
		return nil, domainwf.ErrNotAwaitingApproval
	}

	machine := BuildClaimStateMachine(state, func(context.Context) bool {
		return domainwf.StepAt(steps, active.Sequence+1) != nil
	})

	var (
		trigger domainwf.Trigger
		outcome domainwf.Outcome
	)
	switch action {
	case domainwf.ActionReject:
		trigger = domainwf.TriggerReject
	case domainwf.ActionApprove:
		rule, err := e.rules.GetByCompanyID(ctx, claim.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load approval rule: %w", err)
		}
		outcome = domainwf.Evaluate(claim, active, steps, rule)
		switch {
		case outcome.AutoApprove:
			trigger = domainwf.TriggerAutoApprove
		case machine.CanFire(ctx, domainwf.TriggerAdvance):
			trigger = domainwf.TriggerAdvance
		default:
			trigger = domainwf.TriggerComplete
		}
	}

	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, fmt.Errorf("claim %d: %w", claimID, err)
	}
	newStatus := machine.State().ClaimStatus()

	now := e.now()
	decided := *active
	decided.Comment = comment
	decided.DecidedAt = &now
	decided.UpdatedAt = now
	if action == domainwf.ActionApprove {
		decided.Status = entity.StepStatusApproved
	} else {
		decided.Status = entity.StepStatusRejected
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.steps.RecordDecision(txCtx, &decided); err != nil {
			if errors.Is(err, port.ErrStaleState) {
				return domainwf.ErrNotAwaitingApproval
			}
			return fmt.Errorf("failed to record decision: %w", err)
		}

		// Written on every decision, ADVANCE included, so updated_at tracks the latest step
		if err := e.claims.UpdateStatus(txCtx, claimID, newStatus, now); err != nil {
			if errors.Is(err, port.ErrStaleState) {
				return domainwf.ErrNotAwaitingApproval
			}
			return fmt.Errorf("failed to update claim status: %w", err)
		}

		entry := &entity.ClaimHistory{
			ClaimID:        claimID,
			ActorID:        approverID,
			PreviousStatus: string(claim.Status),
			NewStatus:      string(newStatus),
			ActionType:     action.String(),
			StepSequence:   active.Sequence,
			Comment:        comment,
			Timestamp:      now,
		}
		if err := e.history.Create(txCtx, entry); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}

		if trigger == domainwf.TriggerAutoApprove {
			return e.history.Create(txCtx, &entity.ClaimHistory{
				ClaimID:        claimID,
				ActorID:        approverID,
				PreviousStatus: string(claim.Status),
				NewStatus:      string(newStatus),
				ActionType:     entity.ActionAutoApprove,
				StepSequence:   active.Sequence,
				Comment:        outcome.Reason,
				Timestamp:      now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	*active = decided
	claim.Status = newStatus
	claim.UpdatedAt = now

	e.logger.Info("Decision recorded",
		"claim_id", claimID,
		"approver_id", approverID,
		"sequence", active.Sequence,
		"action", action.String(),
		"trigger", trigger.String(),
		"claim_status", newStatus.String(),
	)
	if outcome.AutoApprove {
		e.logger.Info("Claim auto-approved", "claim_id", claimID, "reason", outcome.Reason)
	}

	e.publish(ctx, event.NewEvent(event.TypeStepDecided, claimID, map[string]interface{}{
		event.KeyApproverID: approverID,
		event.KeySequence:   active.Sequence,
		event.KeyAction:     action.String(),
		event.KeyComment:    comment,
	}))

	switch trigger {
	case domainwf.TriggerAdvance:
		e.publish(ctx, stepActivated(claim, domainwf.StepAt(steps, active.Sequence+1)))
	case domainwf.TriggerReject:
		e.publish(ctx, event.NewEvent(event.TypeClaimRejected, claimID, map[string]interface{}{
			event.KeySubmitterID: claim.SubmitterID,
			event.KeyActorID:     approverID,
			event.KeyComment:     comment,
		}))
	default:
		e.publish(ctx, event.NewEvent(event.TypeClaimApproved, claimID, map[string]interface{}{
			event.KeySubmitterID: claim.SubmitterID,
			event.KeyActorID:     approverID,
			event.KeyReason:      outcome.Reason,
		}))
	}

	return claim, nil
}

// AssignApprover gives a stalled claim its first approval step
func (e *engineImpl) AssignApprover(ctx context.Context, claimID, approverID, actorID int64) (*entity.ApprovalStep, error) {
	unlock := e.locks.Lock(claimID)
	defer unlock()

	claim, err := e.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if claim == nil {
		return nil, domainwf.ErrClaimNotFound
	}
	if !claim.IsPending() {
		return nil, domainwf.ErrNotStalled
	}

	existing, err := e.steps.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval steps: %w", err)
	}
	if len(existing) > 0 {
		return nil, domainwf.ErrNotStalled
	}

	approver, err := e.directory.GetUser(ctx, approverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approver: %w", err)
	}
	if approver == nil || approver.CompanyID != claim.CompanyID || !approver.Role.CanApprove() {
		return nil, domainwf.ErrInvalidApprover
	}

	now := e.now()
	step := &entity.ApprovalStep{
		ClaimID:      claimID,
		ApproverID:   approver.ID,
		ApproverRole: approver.Role,
		Sequence:     1,
		Status:       entity.StepStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.steps.CreateBatch(txCtx, []*entity.ApprovalStep{step}); err != nil {
			return fmt.Errorf("failed to create approval step: %w", err)
		}
		return e.history.Create(txCtx, &entity.ClaimHistory{
			ClaimID:        claimID,
			ActorID:        actorID,
			PreviousStatus: string(claim.Status),
			NewStatus:      string(claim.Status),
			ActionType:     entity.ActionAssign,
			StepSequence:   1,
			Comment:        fmt.Sprintf("assigned to user %d", approver.ID),
			Timestamp:      now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Approver assigned to stalled claim",
		"claim_id", claimID,
		"approver_id", approver.ID,
		"actor_id", actorID,
	)
	e.publish(ctx, stepActivated(claim, step))

	return step, nil
}

func (e *engineImpl) publish(ctx context.Context, evt *event.Event) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.PublishAsync(ctx, evt)
}

func stepActivated(claim *entity.Claim, step *entity.ApprovalStep) *event.Event {
	return event.NewEvent(event.TypeStepActivated, claim.ID, map[string]interface{}{
		event.KeyApproverID:  step.ApproverID,
		event.KeySequence:    step.Sequence,
		event.KeySubmitterID: claim.SubmitterID,
	})
}
