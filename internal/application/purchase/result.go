package purchase

import (
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/nextaction"
)

// Result is the use-case response handed back to the controller, which wraps
// it into the signed client-facing JSON.
type Result struct {
	SessionID      string
	State          purchase.State
	NextAction     nextaction.Action
	PublicKeyIndex int
	// RedirectURL carries the original redirect target on duplicate-postback
	// recoveries.
	RedirectURL string
}
