package purchase

import (
	"context"
	"fmt"

	"github.com/cassiomorais/purchases/internal/billers"
	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/nextaction"
	"github.com/cassiomorais/purchases/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CompleteThreeDUseCase finishes the strong-authentication flow: the
// device-detection completion records the lookup, the authentication return
// settles the transaction and finishes the purchase.
type CompleteThreeDUseCase struct {
	gateway       *sessionGateway
	billerFactory *billers.Factory
	publisher     OutcomePublisher
	archiver      Archiver
	log           zerolog.Logger
}

// NewCompleteThreeDUseCase creates a new CompleteThreeDUseCase.
func NewCompleteThreeDUseCase(
	store session.Store,
	billerFactory *billers.Factory,
	publisher OutcomePublisher,
	archiver Archiver,
	log zerolog.Logger,
) *CompleteThreeDUseCase {
	return &CompleteThreeDUseCase{
		gateway:       newSessionGateway(store, log),
		billerFactory: billerFactory,
		publisher:     publisher,
		archiver:      archiver,
		log:           log,
	}
}

// Execute applies the 3-D Secure step to the purchase.
func (uc *CompleteThreeDUseCase) Execute(ctx context.Context, cmd Command) (result *Result, err error) {
	c, ok := cmd.(CompleteThreeDCommand)
	if !ok {
		return nil, fmt.Errorf("complete 3ds: got %T: %w", cmd, domainErrors.ErrInvalidCommand)
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
	tx := p.TransactionByID(txID)
	if tx == nil {
		return nil, domainErrors.ErrTransactionNotFound
	}

	if c.DeviceDetectionOnly {
		if err := p.MarkThreeDLookupPerformed(txID); err != nil {
			return nil, err
		}
		action, err := nextaction.ForProcess(nextaction.ProcessInput{
			State:           p.State,
			LastTransaction: tx,
		})
		if err != nil {
			return nil, err
		}
		return resultOf(p, action), nil
	}

	biller, _, err := uc.billerFactory.Get(tx.BillerName)
	if err != nil {
		return nil, err
	}
	authResult, err := biller.CompleteAuthentication(ctx, p.SessionID.String(), tx.BillerTxID)
	if err != nil {
		return nil, domainErrors.NewTransientError(err)
	}

	outcome := purchase.TransactionDeclined
	resolution := "declined"
	if authResult.Status == billers.StatusApproved {
		outcome = purchase.TransactionApproved
		resolution = "approved"
	}
	if err := p.ReturnFromThirdPartyUpdates(txID, outcome, authResult.BillerTxID); err != nil {
		return nil, err
	}
	if err := p.FinishProcessing(); err != nil {
		return nil, err
	}

	publishOutcome(ctx, uc.gateway, uc.publisher, uc.archiver, uc.log, p, resolution, authResult.DeclineReason)

	action, err := nextaction.ForCompletion(p.State, resolution, authResult.DeclineReason)
	if err != nil {
		return nil, err
	}
	return resultOf(p, action), nil
}
