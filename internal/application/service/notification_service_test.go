package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotificationFixture() (*NotificationService, *mockMessenger) {
	claims := &mockClaimRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.Claim, error) {
		return &entity.Claim{
			ID:              id,
			SubmitterID:     3,
			AmountClaimed:   decimal.RequireFromString("250"),
			CurrencyClaimed: "EUR",
			Category:        "Travel",
			ExpenseDate:     time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		}, nil
	}}
	messenger := &mockMessenger{}
	return NewNotificationService(claims, newMockDirectory(), messenger, nil), messenger
}

func TestNotification_StepActivatedNotifiesApprover(t *testing.T) {
	svc, messenger := newNotificationFixture()

	evt := event.NewEvent(event.TypeStepActivated, 7, map[string]interface{}{
		event.KeyApproverID:  int64(2),
		event.KeySequence:    1,
		event.KeySubmitterID: int64(3),
	})
	require.NoError(t, svc.OnStepActivated(context.Background(), evt))

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "ou_manager", messenger.sent[0].openID)
	assert.Contains(t, messenger.sent[0].text, "#7 from Eve")
	assert.Contains(t, messenger.sent[0].text, "250.00 EUR")
}

func TestNotification_OutcomeNotifiesSubmitter(t *testing.T) {
	svc, messenger := newNotificationFixture()

	approved := event.NewEvent(event.TypeClaimApproved, 7, map[string]interface{}{
		event.KeySubmitterID: int64(3),
		event.KeyReason:      "specific approver ADMIN approved",
	})
	require.NoError(t, svc.OnClaimApproved(context.Background(), approved))

	rejected := event.NewEvent(event.TypeClaimRejected, 8, map[string]interface{}{
		event.KeySubmitterID: int64(3),
		event.KeyComment:     "missing receipt",
	})
	require.NoError(t, svc.OnClaimRejected(context.Background(), rejected))

	require.Len(t, messenger.sent, 2)
	assert.Equal(t, "ou_employee", messenger.sent[0].openID)
	assert.Contains(t, messenger.sent[0].text, "approved (specific approver ADMIN approved)")
	assert.Contains(t, messenger.sent[1].text, "rejected: missing receipt")
}

func TestNotification_SkipsUsersWithoutMessengerIdentity(t *testing.T) {
	svc, messenger := newNotificationFixture()

	evt := event.NewEvent(event.TypeClaimStalled, 9, map[string]interface{}{event.KeySubmitterID: int64(4)})
	require.NoError(t, svc.OnClaimStalled(context.Background(), evt))
	assert.Empty(t, messenger.sent)
}

func TestNotification_Errors(t *testing.T) {
	svc, messenger := newNotificationFixture()

	evt := event.NewEvent(event.TypeClaimApproved, 7, nil)
	assert.Error(t, svc.OnClaimApproved(context.Background(), evt), "missing recipient")

	messenger.err = errors.New("lark down")
	evt = event.NewEvent(event.TypeClaimApproved, 7, map[string]interface{}{event.KeySubmitterID: int64(3)})
	assert.Error(t, svc.OnClaimApproved(context.Background(), evt))
}

func TestNotification_Register(t *testing.T) {
	svc, messenger := newNotificationFixture()
	d := dispatcher.NewDispatcher()
	svc.Register(d)

	assert.Equal(t, []string{"notify-approver"}, d.Subscribers(event.TypeStepActivated))
	assert.Len(t, d.Subscribers(event.TypeClaimStalled), 1)

	evt := event.NewEvent(event.TypeClaimRejected, 8, map[string]interface{}{event.KeySubmitterID: int64(3)})
	d.PublishAsync(context.Background(), evt)
	require.NoError(t, d.Close())
	assert.Len(t, messenger.sent, 1)
}
