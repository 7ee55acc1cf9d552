package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/purchases/internal/billers"
	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/nextaction"
	"github.com/cassiomorais/purchases/internal/session"
	"github.com/rs/zerolog"
)

// ProcessNewPaymentUseCase settles a purchase with a freshly entered card:
// it validates the session, runs the fraud gate and drives the biller
// cascade until a pending, terminal or exhausted outcome.
type ProcessNewPaymentUseCase struct {
	gateway   *sessionGateway
	engine    *chargeEngine
	fraud     FraudAdvisor
	publisher OutcomePublisher
	archiver  Archiver
	cfg       Config
	log       zerolog.Logger
}

// NewProcessNewPaymentUseCase creates a new ProcessNewPaymentUseCase.
func NewProcessNewPaymentUseCase(
	store session.Store,
	billerFactory *billers.Factory,
	fraud FraudAdvisor,
	publisher OutcomePublisher,
	archiver Archiver,
	cfg Config,
	log zerolog.Logger,
) *ProcessNewPaymentUseCase {
	return &ProcessNewPaymentUseCase{
		gateway:   newSessionGateway(store, log),
		engine:    &chargeEngine{billerFactory: billerFactory, cfg: cfg, log: log},
		fraud:     fraud,
		publisher: publisher,
		archiver:  archiver,
		cfg:       cfg,
		log:       log,
	}
}

// Execute processes the payment and returns the next client directive.
func (uc *ProcessNewPaymentUseCase) Execute(ctx context.Context, cmd Command) (result *Result, err error) {
	c, ok := cmd.(ProcessNewPaymentCommand)
	if !ok {
		return nil, fmt.Errorf("process new payment: got %T: %w", cmd, domainErrors.ErrInvalidCommand)
	}

	p, err := uc.gateway.load(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	defer uc.gateway.persist(ctx, p)

	info := purchase.PaymentInfo{
		Type:         purchase.PaymentTypeNewCard,
		CardToken:    c.CardToken,
		CardBin:      c.CardBin,
		CardLastFour: c.CardLastFour,
	}
	return processPayment(ctx, uc.gateway, uc.engine, uc.fraud, uc.publisher, uc.archiver, uc.cfg, uc.log, p, info)
}

// processPayment is the shared process flow: capture the payment method,
// validate, gate on fraud, run the cascade and decide the directive.
func processPayment(
	ctx context.Context,
	gateway *sessionGateway,
	engine *chargeEngine,
	fraud FraudAdvisor,
	publisher OutcomePublisher,
	archiver Archiver,
	cfg Config,
	log zerolog.Logger,
	p *purchase.PurchaseProcess,
	info purchase.PaymentInfo,
) (*Result, error) {
	if err := p.SetPaymentInfo(info); err != nil {
		return nil, err
	}

	if cfg.FraudChecksEnabled {
		advice, recs, fraudErr := fraud.AdviseOnProcess(ctx, p.UserInfo, p.EntrySiteID)
		if fraudErr != nil {
			log.Warn().Err(fraudErr).Str("session_id", p.SessionID.String()).Msg("Fraud advice unavailable on process")
			advice = purchase.FraudAdvice{}
		}
		if err := p.AttachFraudAdvice(advice); err != nil {
			return nil, err
		}
		if err := p.AttachFraudRecommendations(recs); err != nil {
			return nil, err
		}
	} else if p.FraudAdvice == nil {
		if err := p.AttachFraudAdvice(purchase.FraudAdvice{}); err != nil {
			return nil, err
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	// The hard-block gate runs after validation: advice attached while the
	// session was still Created does not transition on its own.
	if p.FraudAdvice.Blacklist || p.FraudRecommendations.HasHardBlock() {
		if err := p.BlockDueToFraudAdvice(); err != nil {
			return nil, err
		}
		action, err := nextaction.ForProcess(nextaction.ProcessInput{State: p.State})
		if err != nil {
			return nil, err
		}
		return resultOf(p, action), nil
	}

	outcome, err := engine.run(ctx, p)
	if err != nil {
		return nil, err
	}

	action, err := engine.processAction(p, outcome)
	if err != nil {
		return nil, err
	}

	// The Valid-state redirect directive is computed first, then the
	// off-session transition is recorded so later polls get waitForReturn.
	if outcome.thirdParty && action.ActionType() == nextaction.TypeRedirectToURL {
		if err := p.Redirect(); err != nil {
			return nil, err
		}
	}

	if p.IsProcessed() {
		publishOutcome(ctx, gateway, publisher, archiver, log, p, outcome.resolution, outcome.reason)
	}

	return resultOf(p, action), nil
}

func resultOf(p *purchase.PurchaseProcess, action nextaction.Action) *Result {
	return &Result{
		SessionID:      p.SessionID.String(),
		State:          p.State,
		NextAction:     action,
		PublicKeyIndex: p.PublicKeyIndex,
	}
}

// publishOutcome hands a terminal outcome to the postback pipeline and
// archives the session payload. Failures are logged, never surfaced; the
// purchase itself already settled.
func publishOutcome(
	ctx context.Context,
	gateway *sessionGateway,
	publisher OutcomePublisher,
	archiver Archiver,
	log zerolog.Logger,
	p *purchase.PurchaseProcess,
	resolution, reason string,
) {
	if publisher != nil {
		event := OutcomeEvent{
			SessionID:   p.SessionID.String(),
			State:       p.State.String(),
			Resolution:  resolution,
			Reason:      reason,
			PostbackURL: p.PostbackURL,
			OccurredAt:  time.Now(),
		}
		if err := publisher.PublishOutcome(ctx, event); err != nil {
			log.Error().Err(err).Str("session_id", p.SessionID.String()).Msg("Failed to publish purchase outcome")
		}
	}
	if archiver != nil {
		payload, err := gateway.payloadOf(p)
		if err != nil {
			log.Error().Err(err).Str("session_id", p.SessionID.String()).Msg("Failed to serialize session for archive")
			return
		}
		if err := archiver.Archive(ctx, p.SessionID.String(), p.State.String(), payload); err != nil {
			log.Error().Err(err).Str("session_id", p.SessionID.String()).Msg("Failed to archive session")
		}
	}
}
