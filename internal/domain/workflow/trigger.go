package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerAdvance moves the workflow to the next step; the claim keeps waiting
	TriggerAdvance     Trigger = "ADVANCE"
	TriggerComplete    Trigger = "COMPLETE"
	TriggerAutoApprove Trigger = "AUTO_APPROVE"
	TriggerReject      Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
