package purchase

import (
	"fmt"
	"time"

	"github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/google/uuid"
)

// CurrentSchemaVersion is the schema version this aggregate serializes at.
// Older persisted payloads are migrated forward by the session converter
// before rehydration.
const CurrentSchemaVersion = 3

// PurchaseProcess is the aggregate root for one purchase-in-progress. It is
// created on purchase-init, mutated through every subsequent process,
// postback or return call, serialized to the session store after every
// mutation, and terminal once state is Processed.
type PurchaseProcess struct {
	SessionID            uuid.UUID
	State                State
	Cascade              *Cascade
	Items                []*InitializedItem
	UserInfo             UserInfo
	PaymentInfo          PaymentInfo
	PaymentTemplates     []PaymentTemplate
	FraudAdvice          *FraudAdvice
	FraudRecommendations FraudRecommendationCollection
	PublicKeyIndex       int
	EntrySiteID          string
	Currency             string
	RedirectURL          string
	PostbackURL          string
	TrafficSource        string
	ExistingMember       bool
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewPurchaseProcess creates the aggregate at purchase-init. Exactly one item
// must be flagged main; all other items are cross-sells.
func NewPurchaseProcess(
	entrySiteID string,
	currency string,
	publicKeyIndex int,
	items []*InitializedItem,
	cascade *Cascade,
	userInfo UserInfo,
) (*PurchaseProcess, error) {
	if entrySiteID == "" {
		return nil, errors.NewValidationError("entrySiteId", "cannot be empty")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	if cascade == nil {
		return nil, errors.ErrEmptyCascade
	}
	mainCount := 0
	for _, item := range items {
		if item.IsMain {
			mainCount++
		}
	}
	if mainCount != 1 {
		return nil, errors.ErrNoMainItem
	}

	now := time.Now()
	return &PurchaseProcess{
		SessionID:      uuid.New(),
		State:          StateCreated,
		Cascade:        cascade,
		Items:          items,
		UserInfo:       userInfo,
		PublicKeyIndex: publicKeyIndex,
		EntrySiteID:    entrySiteID,
		Currency:       currency,
		Version:        CurrentSchemaVersion,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanTransitionTo checks if the process can transition to the given state
func (p *PurchaseProcess) CanTransitionTo(newState State) bool {
	transitions := map[State][]State{
		StateCreated: {
			StateValid,
			StateBlockedDueToFraudAdvice,
		},
		StateValid: {
			StatePending,
			StateRedirected,
			StateCascadeBillersExhausted,
			StateBlockedDueToFraudAdvice,
		},
		StatePending: {
			StateThreeDLookupPerformed,
			StateProcessed,
			StateCascadeBillersExhausted,
			StateBlockedDueToFraudAdvice,
		},
		StateThreeDLookupPerformed: {
			StateProcessed,
			StateCascadeBillersExhausted,
			StateBlockedDueToFraudAdvice,
		},
		StateRedirected: {
			StateProcessed,
			StateCascadeBillersExhausted,
			StateBlockedDueToFraudAdvice,
		},
		StateCascadeBillersExhausted: {}, // dead-end, restart directive only
		StateBlockedDueToFraudAdvice: {}, // dead-end, restart directive only
		StateProcessed:               {}, // terminal
	}

	allowed, exists := transitions[p.State]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newState {
			return true
		}
	}
	return false
}

func (p *PurchaseProcess) transitionTo(newState State) error {
	if !p.CanTransitionTo(newState) {
		return errors.NewDomainError(
			"illegal_state_transition",
			"cannot transition from "+string(p.State)+" to "+string(newState),
			errors.ErrIllegalStateTransition,
		)
	}
	p.State = newState
	p.UpdatedAt = time.Now()
	return nil
}

// Validate transitions Created to Valid once the required fields are present:
// a payment method and the fraud pre-check advice.
func (p *PurchaseProcess) Validate() error {
	if !p.PaymentInfo.IsSet() {
		return fmt.Errorf("payment info not set: %w", errors.ErrMissingRequiredFields)
	}
	if p.FraudAdvice == nil {
		return fmt.Errorf("fraud advice not attached: %w", errors.ErrMissingRequiredFields)
	}
	return p.transitionTo(StateValid)
}

// SetPaymentInfo captures the payment method ahead of validation.
func (p *PurchaseProcess) SetPaymentInfo(info PaymentInfo) error {
	if p.State != StateCreated {
		return errors.NewDomainError(
			"illegal_state_transition",
			"payment info can only be set in created state, current is "+string(p.State),
			errors.ErrIllegalStateTransition,
		)
	}
	p.PaymentInfo = info
	p.UpdatedAt = time.Now()
	return nil
}

// AttachFraudAdvice records a new advisory signal for the current step. A
// hard-block signal (blacklist) moves the process to BlockedDueToFraudAdvice.
func (p *PurchaseProcess) AttachFraudAdvice(advice FraudAdvice) error {
	p.FraudAdvice = &advice
	p.UpdatedAt = time.Now()
	if advice.Blacklist && p.State != StateCreated {
		return p.transitionTo(StateBlockedDueToFraudAdvice)
	}
	return nil
}

// AttachFraudRecommendations records the fraud service recommendations.
// A hard-block recommendation moves the process to BlockedDueToFraudAdvice.
func (p *PurchaseProcess) AttachFraudRecommendations(recs FraudRecommendationCollection) error {
	p.FraudRecommendations = recs
	p.UpdatedAt = time.Now()
	if recs.HasHardBlock() && p.State != StateCreated && !p.State.IsTerminal() {
		return p.transitionTo(StateBlockedDueToFraudAdvice)
	}
	return nil
}

// MainItem returns the single item flagged main.
func (p *PurchaseProcess) MainItem() *InitializedItem {
	for _, item := range p.Items {
		if item.IsMain {
			return item
		}
	}
	return nil
}

// ItemByID finds an item by id.
func (p *PurchaseProcess) ItemByID(id uuid.UUID) (*InitializedItem, error) {
	for _, item := range p.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, errors.ErrItemNotFound
}

// AddTransactionToItem appends a biller attempt to the given item.
// Append-only and idempotent per transaction id.
func (p *PurchaseProcess) AddTransactionToItem(t *Transaction, itemID uuid.UUID) error {
	switch p.State {
	case StateValid, StatePending, StateThreeDLookupPerformed, StateRedirected:
	default:
		return errors.NewDomainError(
			"illegal_state_transition",
			"cannot add transaction in state "+string(p.State),
			errors.ErrIllegalStateTransition,
		)
	}
	item, err := p.ItemByID(itemID)
	if err != nil {
		return err
	}
	item.AddTransaction(t)
	p.UpdatedAt = time.Now()
	return nil
}

// MarkPending records that the current biller returned a pending or
// 3-D-Secure-required outcome.
func (p *PurchaseProcess) MarkPending() error {
	if p.State == StatePending {
		return nil // cascade hop within the same step
	}
	return p.transitionTo(StatePending)
}

// MarkThreeDLookupPerformed records the completed device-fingerprinting step.
// The lookup transaction must already belong to the main item.
func (p *PurchaseProcess) MarkThreeDLookupPerformed(lookupTxID uuid.UUID) error {
	if p.TransactionByID(lookupTxID) == nil {
		return errors.ErrTransactionNotFound
	}
	return p.transitionTo(StateThreeDLookupPerformed)
}

// Redirect records that the next biller is third-party and the client must be
// redirected off-session.
func (p *PurchaseProcess) Redirect() error {
	return p.transitionTo(StateRedirected)
}

// MarkThirdPartySettlement switches the payment info to the third-party
// variant once the cascade stops at an off-session biller. The card or
// template captured at process time no longer describes where settlement
// happens.
func (p *PurchaseProcess) MarkThirdPartySettlement(url string) {
	p.PaymentInfo.Type = PaymentTypeThirdParty
	p.PaymentInfo.ThirdPartyURL = url
}

// MarkCascadeExhausted records that every biller in the cascade was attempted.
func (p *PurchaseProcess) MarkCascadeExhausted() error {
	return p.transitionTo(StateCascadeBillersExhausted)
}

// BlockDueToFraudAdvice records a hard-block fraud outcome.
func (p *PurchaseProcess) BlockDueToFraudAdvice() error {
	return p.transitionTo(StateBlockedDueToFraudAdvice)
}

// FinishProcessing sets Processed. Only legal once the main item has a
// terminal transaction outcome.
func (p *PurchaseProcess) FinishProcessing() error {
	main := p.MainItem()
	if main == nil {
		return errors.ErrNoMainItem
	}
	last := main.LastTransaction()
	if last == nil || !last.IsTerminal() {
		return errors.NewDomainError(
			"illegal_state_transition",
			"main item has no terminal transaction outcome",
			errors.ErrIllegalStateTransition,
		)
	}
	return p.transitionTo(StateProcessed)
}

// TransactionByID finds an attempt by id across all items.
func (p *PurchaseProcess) TransactionByID(id uuid.UUID) *Transaction {
	for _, item := range p.Items {
		if t := item.TransactionByID(id); t != nil {
			return t
		}
	}
	return nil
}

// ReturnFromThirdPartyUpdates applies a postback outcome to the transaction
// it correlates with. Fails with ErrTransactionNotFound if the transaction
// does not belong to this session and with ErrTransactionAlreadyProcessed if
// the transaction already reached a terminal outcome.
func (p *PurchaseProcess) ReturnFromThirdPartyUpdates(txID uuid.UUID, outcome TransactionState, billerTxID string) error {
	t := p.TransactionByID(txID)
	if t == nil {
		return errors.ErrTransactionNotFound
	}
	if t.IsTerminal() {
		return errors.ErrTransactionAlreadyProcessed
	}
	t.State = outcome
	if billerTxID != "" {
		t.BillerTxID = billerTxID
	}
	p.UpdatedAt = time.Now()
	return nil
}

// IsProcessed reports whether the purchase reached its terminal state.
func (p *PurchaseProcess) IsProcessed() bool {
	return p.State == StateProcessed
}

// WasMainItemSettled reports whether the main item settled successfully.
func (p *PurchaseProcess) WasMainItemSettled() bool {
	main := p.MainItem()
	return main != nil && main.WasSettledSuccessfully()
}
