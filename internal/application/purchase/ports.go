package purchase

import (
	"context"
	"time"

	"github.com/cassiomorais/purchases/internal/domain/purchase"
)

// Config carries the orchestration feature switches. It is passed in at
// construction time; handlers never read ambient global state.
type Config struct {
	// FraudChecksEnabled gates the fraud advice lookups on init and process.
	FraudChecksEnabled bool
	// ThreeDMandated forces strong authentication; billers that cannot run
	// it are permanently removed from the cascade.
	ThreeDMandated bool
	// MaxBillerSubmits bounds same-biller retries before advancing the
	// cascade.
	MaxBillerSubmits int
}

// FraudAdvisor is the external fraud-score service. Advice is advisory and
// point-in-time; a hard-block outcome is a modeled directive, not an error.
type FraudAdvisor interface {
	AdviseOnInit(ctx context.Context, user purchase.UserInfo, entrySiteID string) (purchase.FraudAdvice, purchase.FraudRecommendationCollection, error)
	AdviseOnProcess(ctx context.Context, user purchase.UserInfo, entrySiteID string) (purchase.FraudAdvice, purchase.FraudRecommendationCollection, error)
}

// CascadeResolver computes the ordered biller list for a purchase, filtered
// by site, currency and payment-method eligibility. The order is fixed for
// the whole session.
type CascadeResolver interface {
	BillersFor(ctx context.Context, siteID, currency string, paymentType purchase.PaymentType) ([]string, error)
}

// OutcomeEvent describes a terminal purchase outcome for downstream
// consumers (postback delivery, emails, BI).
type OutcomeEvent struct {
	SessionID   string
	State       string
	Resolution  string
	Reason      string
	PostbackURL string
	OccurredAt  time.Time
}

// OutcomePublisher hands terminal outcomes to the postback delivery pipeline.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, event OutcomeEvent) error
}

// Archiver persists terminal session payloads durably, outliving the session
// store TTL. Optional; handlers tolerate a nil archiver.
type Archiver interface {
	Archive(ctx context.Context, sessionID, state, payload string) error
}
