package purchase

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/nextaction"
	"github.com/cassiomorais/purchases/internal/session"
	"github.com/rs/zerolog"
)

// ThirdPartyRebillUseCase records a recurring charge reported by an
// off-session biller. The original session is terminal, so the rebill spawns
// a follow-up session carrying the same items with their attempt histories
// reset.
type ThirdPartyRebillUseCase struct {
	gateway   *sessionGateway
	publisher OutcomePublisher
	archiver  Archiver
	log       zerolog.Logger
}

// NewThirdPartyRebillUseCase creates a new ThirdPartyRebillUseCase.
func NewThirdPartyRebillUseCase(
	store session.Store,
	publisher OutcomePublisher,
	archiver Archiver,
	log zerolog.Logger,
) *ThirdPartyRebillUseCase {
	return &ThirdPartyRebillUseCase{
		gateway:   newSessionGateway(store, log),
		publisher: publisher,
		archiver:  archiver,
		log:       log,
	}
}

// Execute spawns the follow-up session and records the rebill outcome.
func (uc *ThirdPartyRebillUseCase) Execute(ctx context.Context, cmd Command) (result *Result, err error) {
	c, ok := cmd.(ThirdPartyRebillCommand)
	if !ok {
		return nil, fmt.Errorf("third-party rebill: got %T: %w", cmd, domainErrors.ErrInvalidCommand)
	}

	original, err := uc.gateway.load(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	if !original.IsProcessed() {
		return nil, fmt.Errorf("rebill requires a processed session, got %s: %w",
			original.State, domainErrors.ErrInvalidState)
	}

	mainTx := original.MainItem().LastTransaction()
	if mainTx == nil {
		return nil, domainErrors.ErrTransactionNotFound
	}

	followUp, err := uc.spawnFollowUp(original)
	if err != nil {
		return nil, err
	}
	defer uc.gateway.persist(ctx, followUp)

	outcome := purchase.TransactionDeclined
	resolution := "declined"
	if c.Approved {
		outcome = purchase.TransactionApproved
		resolution = "approved"
	}
	tx := purchase.NewTransaction(mainTx.BillerName, outcome, false)
	tx.BillerTxID = c.BillerTxID
	if err := followUp.AddTransactionToItem(tx, followUp.MainItem().ID); err != nil {
		return nil, err
	}
	if err := followUp.MarkPending(); err != nil {
		return nil, err
	}
	if err := followUp.FinishProcessing(); err != nil {
		return nil, err
	}

	publishOutcome(ctx, uc.gateway, uc.publisher, uc.archiver, uc.log, followUp, resolution, "")

	action, err := nextaction.ForCompletion(followUp.State, resolution, "")
	if err != nil {
		return nil, err
	}
	return resultOf(followUp, action), nil
}

// spawnFollowUp clones the original purchase into a fresh session: same
// items with reset transaction histories, same user and payment method, the
// original biller as a single-entry cascade.
func (uc *ThirdPartyRebillUseCase) spawnFollowUp(original *purchase.PurchaseProcess) (*purchase.PurchaseProcess, error) {
	items := make([]*purchase.InitializedItem, 0, len(original.Items))
	for _, item := range original.Items {
		clone := *item
		clone.ResetTransactions()
		items = append(items, &clone)
	}

	billerName := original.MainItem().LastTransaction().BillerName
	cascade, err := purchase.NewCascade([]string{billerName})
	if err != nil {
		return nil, err
	}

	followUp, err := purchase.NewPurchaseProcess(
		original.EntrySiteID,
		original.Currency,
		original.PublicKeyIndex,
		items,
		cascade,
		original.UserInfo,
	)
	if err != nil {
		return nil, err
	}
	followUp.RedirectURL = original.RedirectURL
	followUp.PostbackURL = original.PostbackURL
	followUp.TrafficSource = original.TrafficSource
	followUp.ExistingMember = true

	if err := followUp.SetPaymentInfo(original.PaymentInfo); err != nil {
		return nil, err
	}
	if err := followUp.AttachFraudAdvice(purchase.FraudAdvice{}); err != nil {
		return nil, err
	}
	if err := followUp.Validate(); err != nil {
		return nil, err
	}
	return followUp, nil
}
