package billers

import (
	"context"
)

// ChargeRequest contains the data needed to attempt a charge.
type ChargeRequest struct {
	SessionID   string
	ItemID      string
	AmountCents int64
	Currency    string
	PaymentType string
	CardToken   string
	TemplateID  string
	// ThreeDRequested asks the biller to start a 3-D Secure flow when the
	// site mandates strong authentication.
	ThreeDRequested bool
}

// ThreeDChallenge describes a 3-D Secure step the client must complete.
type ThreeDChallenge struct {
	Version        int
	Frictionless   bool
	StepUpURL      string
	StepUpJWT      string
	MD             string
	PaymentLinkURL string
}

// DeviceCollection describes a device fingerprinting step ahead of a
// version 2 lookup.
type DeviceCollection struct {
	URL string
	JWT string
}

// ChargeResult holds the outcome of one biller attempt.
type ChargeResult struct {
	BillerTxID       string
	Status           string // "approved", "declined", "pending"
	DeclineReason    string
	ThreeD           *ThreeDChallenge
	DeviceCollection *DeviceCollection
	AuthenticateURL  string
}

const (
	StatusApproved = "approved"
	StatusDeclined = "declined"
	StatusPending  = "pending"
)

// Biller is the interface payment billers implement.
type Biller interface {
	// Name returns the biller name used in the cascade.
	Name() string
	// IsThirdParty reports whether settling requires redirecting the client
	// off-session.
	IsThirdParty() bool
	// SupportsThreeDSecure reports whether the biller can run a mandated
	// 3-D Secure flow.
	SupportsThreeDSecure() bool
	// AvailablePaymentMethods lists the alternate payment methods a
	// third-party biller exposes, if any.
	AvailablePaymentMethods() []string
	// RedirectURL builds the off-session entry point for a third-party
	// biller.
	RedirectURL(sessionID string) string
	// Charge attempts one settlement.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	// CompleteAuthentication finishes a pending 3-D Secure challenge.
	CompleteAuthentication(ctx context.Context, sessionID, billerTxID string) (*ChargeResult, error)
}
