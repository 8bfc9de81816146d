package enums

import "fmt"

// Action names a sensitive operation gated behind a single-use authorization code.
type Action string

const (
	ActionCancelOrder Action = "cancel_order"
)

var validActions = []Action{
	ActionCancelOrder,
}

func (a Action) String() string {
	return string(a)
}

// IsValid reports whether the value is a known Action.
func (a Action) IsValid() bool {
	for _, candidate := range validActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAction converts raw input into an Action.
func ParseAction(value string) (Action, error) {
	for _, candidate := range validActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid action %q", value)
}
