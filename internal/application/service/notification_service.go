package service

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
)

// NotificationService tells approvers and submitters about workflow progress
type NotificationService struct {
	claims    port.ClaimRepository
	directory port.Directory
	messenger port.Messenger
	logger    Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(claims port.ClaimRepository, directory port.Directory, messenger port.Messenger, logger Logger) *NotificationService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &NotificationService{
		claims:    claims,
		directory: directory,
		messenger: messenger,
		logger:    logger,
	}
}

// Register subscribes the notification handlers to the dispatcher
func (s *NotificationService) Register(d dispatcher.Dispatcher) {
	d.Subscribe(event.TypeStepActivated, "notify-approver", s.OnStepActivated)
	d.Subscribe(event.TypeClaimApproved, "notify-submitter-approved", s.OnClaimApproved)
	d.Subscribe(event.TypeClaimRejected, "notify-submitter-rejected", s.OnClaimRejected)
	d.Subscribe(event.TypeClaimStalled, "notify-submitter-stalled", s.OnClaimStalled)
}

// OnStepActivated tells the approver that a claim is waiting for them
func (s *NotificationService) OnStepActivated(ctx context.Context, evt *event.Event) error {
	claim, err := s.loadClaim(ctx, evt.ClaimID)
	if err != nil {
		return err
	}

	submitterName := fmt.Sprintf("user %d", claim.SubmitterID)
	if submitter, err := s.directory.GetUser(ctx, claim.SubmitterID); err == nil && submitter != nil {
		submitterName = submitter.DisplayName()
	}

	text := fmt.Sprintf("Expense claim #%d from %s is waiting for your approval: %s %s (%s, %s).",
		claim.ID,
		submitterName,
		claim.AmountClaimed.StringFixed(2),
		claim.CurrencyClaimed,
		claim.Category,
		claim.ExpenseDate.Format("2006-01-02"),
	)
	return s.notifyUser(ctx, evt.GetPayloadInt(event.KeyApproverID), evt, text)
}

// OnClaimApproved tells the submitter the claim was approved
func (s *NotificationService) OnClaimApproved(ctx context.Context, evt *event.Event) error {
	text := fmt.Sprintf("Your expense claim #%d has been approved.", evt.ClaimID)
	if reason := evt.GetPayloadString(event.KeyReason); reason != "" {
		text = fmt.Sprintf("Your expense claim #%d has been approved (%s).", evt.ClaimID, reason)
	}
	return s.notifyUser(ctx, evt.GetPayloadInt(event.KeySubmitterID), evt, text)
}

// OnClaimRejected tells the submitter the claim was rejected, with the approver's comment
func (s *NotificationService) OnClaimRejected(ctx context.Context, evt *event.Event) error {
	text := fmt.Sprintf("Your expense claim #%d has been rejected.", evt.ClaimID)
	if comment := evt.GetPayloadString(event.KeyComment); comment != "" {
		text = fmt.Sprintf("Your expense claim #%d has been rejected: %s", evt.ClaimID, comment)
	}
	return s.notifyUser(ctx, evt.GetPayloadInt(event.KeySubmitterID), evt, text)
}

// OnClaimStalled tells the submitter the claim needs an administrator to assign an approver
func (s *NotificationService) OnClaimStalled(ctx context.Context, evt *event.Event) error {
	text := fmt.Sprintf("No approver could be found for your expense claim #%d. An administrator needs to assign one.", evt.ClaimID)
	return s.notifyUser(ctx, evt.GetPayloadInt(event.KeySubmitterID), evt, text)
}

func (s *NotificationService) loadClaim(ctx context.Context, claimID int64) (*entity.Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if claim == nil {
		return nil, fmt.Errorf("claim %d: not found", claimID)
	}
	return claim, nil
}

// notifyUser sends the text when the user has a messenger identity. Users
// without one are skipped.
func (s *NotificationService) notifyUser(ctx context.Context, userID int64, evt *event.Event, text string) error {
	if userID == 0 {
		return fmt.Errorf("event %s for claim %d has no recipient", evt.Type, evt.ClaimID)
	}

	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if user == nil || user.LarkOpenID == "" {
		s.logger.Info("Notification skipped, recipient has no messenger identity",
			"event_type", evt.Type.String(),
			"claim_id", evt.ClaimID,
			"user_id", userID,
		)
		return nil
	}

	if err := s.messenger.SendText(ctx, user.LarkOpenID, text); err != nil {
		return fmt.Errorf("failed to notify user %d: %w", userID, err)
	}

	s.logger.Info("Notification sent",
		"event_type", evt.Type.String(),
		"claim_id", evt.ClaimID,
		"user_id", userID,
	)
	return nil
}
