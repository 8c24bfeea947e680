package workflows

// StateMachine enforces delivery status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewDeliveryStateMachine creates the state machine governing equipment
// delivery. Delivered is terminal; disputes can only be raised before
// delivery and resolve back to shipped.
func NewDeliveryStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"pending":   {"shipped", "delivered", "disputed"},
			"shipped":   {"delivered", "disputed"},
			"disputed":  {"shipped", "pending"},
			"delivered": {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
