package workflow

import "strings"

// Action is an approver's decision on a step
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

// ParseAction parses a decision token, ignoring case and surrounding whitespace
func ParseAction(token string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(token))) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	default:
		return "", ErrInvalidAction
	}
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
