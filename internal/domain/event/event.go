package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by producers and consumers
const (
	KeySubmitterID = "submitter_id"
	KeyApproverID  = "approver_id"
	KeyActorID     = "actor_id"
	KeySequence    = "sequence"
	KeyAction      = "action"
	KeyComment     = "comment"
	KeyReason      = "reason"
	KeyCompanyID   = "company_id"
)

// Event represents a domain event about a claim
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ClaimID       int64                  `json:"claim_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, claimID int64, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, claimID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, claimID int64, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ClaimID:       claimID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if str, ok := e.Payload[key].(string); ok {
		return str
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
