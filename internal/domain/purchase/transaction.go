package purchase

import (
	"time"

	"github.com/google/uuid"
)

// TransactionState represents the outcome of one biller attempt
type TransactionState string

const (
	TransactionPending  TransactionState = "pending"
	TransactionApproved TransactionState = "approved"
	TransactionDeclined TransactionState = "declined"
	TransactionAborted  TransactionState = "aborted"
)

// ThreeDInfo holds the 3-D Secure fields attached to a transaction.
// Version 1 flows carry an MD blob, version 2 flows carry a step-up JWT.
type ThreeDInfo struct {
	Version        int
	Frictionless   bool
	StepUpURL      string
	StepUpJWT      string
	MD             string
	PaymentLinkURL string
}

// DeviceCollectionInfo holds the device fingerprinting fields for a
// 3-D Secure version 2 device-detection step.
type DeviceCollectionInfo struct {
	URL string
	JWT string
}

// Transaction is one charge attempt record. It is created once per biller
// attempt and never mutated after creation, except to attach delayed
// 3-D Secure outcomes.
type Transaction struct {
	ID               uuid.UUID
	State            TransactionState
	BillerName       string
	BillerTxID       string
	NewCCUsed        bool
	ThreeD           *ThreeDInfo
	DeviceCollection *DeviceCollectionInfo
	CreatedAt        time.Time
}

// NewTransaction creates a transaction record for one biller attempt.
func NewTransaction(billerName string, state TransactionState, newCCUsed bool) *Transaction {
	return &Transaction{
		ID:         uuid.New(),
		State:      state,
		BillerName: billerName,
		NewCCUsed:  newCCUsed,
		CreatedAt:  time.Now(),
	}
}

// AttachThreeD records a delayed 3-D Secure challenge on the transaction.
func (t *Transaction) AttachThreeD(info ThreeDInfo) {
	t.ThreeD = &info
}

// AttachDeviceCollection records the device fingerprinting pair.
func (t *Transaction) AttachDeviceCollection(url, jwt string) {
	t.DeviceCollection = &DeviceCollectionInfo{URL: url, JWT: jwt}
}

// IsTerminal reports whether the transaction reached a final outcome.
func (t *Transaction) IsTerminal() bool {
	return t.State == TransactionApproved ||
		t.State == TransactionDeclined ||
		t.State == TransactionAborted
}

// IsApproved reports whether the transaction settled successfully.
func (t *Transaction) IsApproved() bool {
	return t.State == TransactionApproved
}

// ThreeDVersion returns the 3-D Secure protocol version, or 0 when the
// attempt carried no 3-D Secure challenge.
func (t *Transaction) ThreeDVersion() int {
	if t.ThreeD == nil {
		return 0
	}
	return t.ThreeD.Version
}
