package event

import (
	"testing"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeClaimSubmitted, true},
		{TypeClaimStalled, true},
		{TypeStepActivated, true},
		{TypeStepDecided, true},
		{TypeClaimApproved, true},
		{TypeClaimRejected, true},
		{Type("claim.unknown"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType.String(), func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeClaimSubmitted, 12, map[string]interface{}{KeySubmitterID: int64(3)})

	if evt.ID == "" || evt.CorrelationID == "" {
		t.Fatal("NewEvent() should generate ID and correlation ID")
	}
	if evt.ID == evt.CorrelationID {
		t.Error("ID and correlation ID should differ")
	}
	if evt.ClaimID != 12 {
		t.Errorf("ClaimID = %d, want 12", evt.ClaimID)
	}
	if evt.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if got := evt.GetPayloadInt(KeySubmitterID); got != 3 {
		t.Errorf("GetPayloadInt() = %d, want 3", got)
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	evt := NewEvent(TypeClaimStalled, 1, nil)
	if evt.Payload == nil {
		t.Fatal("payload should be initialized")
	}
	if got := evt.GetPayloadString(KeyReason); got != "" {
		t.Errorf("GetPayloadString() = %q, want empty", got)
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	parent := NewEvent(TypeStepDecided, 5, nil)
	child := NewEventWithCorrelation(TypeStepActivated, 5, nil, parent.CorrelationID)

	if child.CorrelationID != parent.CorrelationID {
		t.Errorf("CorrelationID = %s, want %s", child.CorrelationID, parent.CorrelationID)
	}
	if child.ID == parent.ID {
		t.Error("child event should have its own ID")
	}
}

func TestEvent_GetPayloadInt(t *testing.T) {
	evt := NewEvent(TypeStepActivated, 1, map[string]interface{}{
		"a": 4,
		"b": int64(5),
		"c": float64(6),
		"d": "7",
	})

	for key, want := range map[string]int64{"a": 4, "b": 5, "c": 6, "d": 0, "missing": 0} {
		if got := evt.GetPayloadInt(key); got != want {
			t.Errorf("GetPayloadInt(%q) = %d, want %d", key, got, want)
		}
	}
}
