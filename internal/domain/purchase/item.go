package purchase

import (
	"fmt"

	"github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/google/uuid"
)

// Amount represents a monetary amount in the smallest currency unit (e.g. cents).
type Amount struct {
	ValueCents int64
	Currency   string
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	whole := a.ValueCents / 100
	frac := a.ValueCents % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, a.Currency)
}

// Validate checks that the amount is valid.
func (a Amount) Validate() error {
	if a.ValueCents <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}

// InitializedItem is one charge line of a purchase: the main item or a
// cross-sell. It holds an append-only transaction collection with one entry
// per attempt across retries and cascade hops; the last transaction is the
// settlement of record.
type InitializedItem struct {
	ID           uuid.UUID
	BundleID     string
	AddonID      string
	SiteID       string
	Amount       Amount
	TaxAmount    int64
	IsTrial      bool
	IsMain       bool
	Rebill       *RebillTerms
	transactions []*Transaction
}

// RebillTerms describes recurring billing for an item.
type RebillTerms struct {
	AmountCents int64
	Frequency   int // days
}

// NewInitializedItem creates a charge line.
func NewInitializedItem(bundleID, addonID, siteID string, amount Amount, isTrial, isMain bool) (*InitializedItem, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if bundleID == "" {
		return nil, errors.NewValidationError("bundleId", "cannot be empty")
	}
	return &InitializedItem{
		ID:       uuid.New(),
		BundleID: bundleID,
		AddonID:  addonID,
		SiteID:   siteID,
		Amount:   amount,
		IsTrial:  isTrial,
		IsMain:   isMain,
	}, nil
}

// AddTransaction appends a transaction to the item. The collection is
// append-only and the operation is idempotent per transaction id.
func (i *InitializedItem) AddTransaction(t *Transaction) {
	for _, existing := range i.transactions {
		if existing.ID == t.ID {
			return
		}
	}
	i.transactions = append(i.transactions, t)
}

// LastTransaction returns the settlement-of-record, the most recently
// appended transaction, or nil when no attempt was made yet.
func (i *InitializedItem) LastTransaction() *Transaction {
	if len(i.transactions) == 0 {
		return nil
	}
	return i.transactions[len(i.transactions)-1]
}

// Transactions returns the attempt history in append order.
func (i *InitializedItem) Transactions() []*Transaction {
	return i.transactions
}

// TransactionByID finds an attempt by id.
func (i *InitializedItem) TransactionByID(id uuid.UUID) *Transaction {
	for _, t := range i.transactions {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// ResetTransactions clears the attempt history. Used only when spawning a
// follow-up session for rebill flows.
func (i *InitializedItem) ResetTransactions() {
	i.transactions = nil
}

// WasSettledSuccessfully reports whether the settlement-of-record is approved.
func (i *InitializedItem) WasSettledSuccessfully() bool {
	last := i.LastTransaction()
	return last != nil && last.IsApproved()
}
