package purchase

import (
	"fmt"

	"github.com/cassiomorais/purchases/internal/domain/errors"
)

// State represents the purchase process state in the state machine
type State string

const (
	StateCreated                 State = "created"
	StateValid                   State = "valid"
	StatePending                 State = "pending"
	StateRedirected              State = "redirected"
	StateThreeDLookupPerformed   State = "threeDLookupPerformed"
	StateCascadeBillersExhausted State = "cascadeBillersExhausted"
	StateBlockedDueToFraudAdvice State = "blockedDueToFraudAdvice"
	StateProcessed               State = "processed"
)

var allStates = map[State]struct{}{
	StateCreated:                 {},
	StateValid:                   {},
	StatePending:                 {},
	StateRedirected:              {},
	StateThreeDLookupPerformed:   {},
	StateCascadeBillersExhausted: {},
	StateBlockedDueToFraudAdvice: {},
	StateProcessed:               {},
}

// ParseState converts a serialized state tag back into a State.
func ParseState(s string) (State, error) {
	state := State(s)
	if _, ok := allStates[state]; !ok {
		return "", fmt.Errorf("unknown state %q: %w", s, errors.ErrInvalidState)
	}
	return state, nil
}

// IsTerminal checks if the state is terminal. CascadeBillersExhausted and
// BlockedDueToFraudAdvice are dead-ends that only produce a restart/fallback
// directive; they never progress to Processed.
func (s State) IsTerminal() bool {
	return s == StateProcessed ||
		s == StateCascadeBillersExhausted ||
		s == StateBlockedDueToFraudAdvice
}

func (s State) String() string {
	return string(s)
}
