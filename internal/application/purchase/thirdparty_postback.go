package purchase

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/nextaction"
	"github.com/cassiomorais/purchases/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ThirdPartyPostbackUseCase applies an authenticated postback from an
// off-session biller and finalizes the purchase.
type ThirdPartyPostbackUseCase struct {
	gateway   *sessionGateway
	publisher OutcomePublisher
	archiver  Archiver
	log       zerolog.Logger
}

// NewThirdPartyPostbackUseCase creates a new ThirdPartyPostbackUseCase.
func NewThirdPartyPostbackUseCase(
	store session.Store,
	publisher OutcomePublisher,
	archiver Archiver,
	log zerolog.Logger,
) *ThirdPartyPostbackUseCase {
	return &ThirdPartyPostbackUseCase{
		gateway:   newSessionGateway(store, log),
		publisher: publisher,
		archiver:  archiver,
		log:       log,
	}
}

// Execute applies the postback outcome. A duplicate terminal postback is not
// reprocessed: the caller gets a restart directive plus the original
// redirect url so the client can recover gracefully.
func (uc *ThirdPartyPostbackUseCase) Execute(ctx context.Context, cmd Command) (result *Result, err error) {
	c, ok := cmd.(ThirdPartyPostbackCommand)
	if !ok {
		return nil, fmt.Errorf("third-party postback: got %T: %w", cmd, domainErrors.ErrInvalidCommand)
	}

	p, err := uc.gateway.load(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	defer uc.gateway.persist(ctx, p)

	txID, err := uuid.Parse(c.TransactionID)
	if err != nil {
		return nil, domainErrors.NewValidationError("transactionId", "must be a UUID")
	}

	outcome := purchase.TransactionDeclined
	resolution := "declined"
	if c.Approved {
		outcome = purchase.TransactionApproved
		resolution = "approved"
	}

	if err := p.ReturnFromThirdPartyUpdates(txID, outcome, c.BillerTxID); err != nil {
		if errors.Is(err, domainErrors.ErrTransactionAlreadyProcessed) {
			uc.log.Info().
				Str("session_id", p.SessionID.String()).
				Str("transaction_id", c.TransactionID).
				Msg("Duplicate terminal postback, issuing restart directive")
			return &Result{
				SessionID:      p.SessionID.String(),
				State:          p.State,
				NextAction:     nextaction.RestartProcess{},
				PublicKeyIndex: p.PublicKeyIndex,
				RedirectURL:    p.RedirectURL,
			}, nil
		}
		return nil, err
	}

	if err := p.FinishProcessing(); err != nil {
		return nil, err
	}

	publishOutcome(ctx, uc.gateway, uc.publisher, uc.archiver, uc.log, p, resolution, c.Reason)

	action, err := nextaction.ForCompletion(p.State, resolution, c.Reason)
	if err != nil {
		return nil, err
	}
	return resultOf(p, action), nil
}
