package event

// Type identifies the type of domain event
type Type string

const (
	TypeClaimSubmitted Type = "claim.submitted"
	TypeClaimStalled   Type = "claim.stalled"
	TypeStepActivated  Type = "step.activated"
	TypeStepDecided    Type = "step.decided"
	TypeClaimApproved  Type = "claim.approved"
	TypeClaimRejected  Type = "claim.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeClaimSubmitted,
		TypeClaimStalled,
		TypeStepActivated,
		TypeStepDecided,
		TypeClaimApproved,
		TypeClaimRejected:
		return true
	default:
		return false
	}
}
