package nextaction

import (
	"fmt"

	"github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
)

// ForCompletion maps a terminal aggregate to the finish directive. Any state
// other than Processed is an error.
func ForCompletion(state purchase.State, resolution, reason string) (Action, error) {
	if state != purchase.StateProcessed {
		return nil, fmt.Errorf("completion factory: state %s: %w", state, errors.ErrInvalidState)
	}
	return FinishProcess{Resolution: resolution, Reason: reason}, nil
}
