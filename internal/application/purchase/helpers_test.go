package purchase_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/purchases/internal/billers"
	domain "github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/session"
	"github.com/cassiomorais/purchases/internal/testutil"
)

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func instantBiller(name string, opts ...billers.MockBillerOption) *billers.MockBiller {
	opts = append([]billers.MockBillerOption{billers.WithLatency(time.Millisecond)}, opts...)
	return billers.NewMockBiller(name, opts...)
}

func declined(reason string) *billers.ChargeResult {
	return &billers.ChargeResult{Status: billers.StatusDeclined, DeclineReason: reason}
}

func approved(billerTxID string) *billers.ChargeResult {
	return &billers.ChargeResult{Status: billers.StatusApproved, BillerTxID: billerTxID}
}

// seedSession serializes the aggregate into the mock store and returns its id.
func seedSession(t *testing.T, store *testutil.MockSessionStore, p *domain.PurchaseProcess) string {
	t.Helper()
	payload, err := session.Serialize(p)
	require.NoError(t, err)
	store.Put(&session.Info{
		SessionID: p.SessionID.String(),
		Payload:   payload,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
	return p.SessionID.String()
}

// storedAggregate rehydrates what the use case persisted back to the store.
func storedAggregate(t *testing.T, store *testutil.MockSessionStore, sessionID string) *domain.PurchaseProcess {
	t.Helper()
	payload := store.Payload(sessionID)
	require.NotEmpty(t, payload, "session %s was not persisted", sessionID)
	p, err := session.Deserialize(payload)
	require.NoError(t, err)
	return p
}

// newProcessedPurchase builds a terminal aggregate with one approved
// transaction on the main item.
func newProcessedPurchase(t *testing.T, billerName string) *domain.PurchaseProcess {
	t.Helper()
	p := testutil.NewValidTestPurchase(billerName)
	tx := domain.NewTransaction(billerName, domain.TransactionApproved, true)
	tx.BillerTxID = billerName + "-orig"
	require.NoError(t, p.AddTransactionToItem(tx, p.MainItem().ID))
	require.NoError(t, p.MarkPending())
	require.NoError(t, p.FinishProcessing())
	return p
}

// newRedirectedPurchase builds an aggregate waiting on a third-party return,
// with one staged pending transaction.
func newRedirectedPurchase(t *testing.T, billerName string) (*domain.PurchaseProcess, *domain.Transaction) {
	t.Helper()
	p := testutil.NewValidTestPurchase(billerName)
	tx := domain.NewTransaction(billerName, domain.TransactionPending, true)
	require.NoError(t, p.AddTransactionToItem(tx, p.MainItem().ID))
	require.NoError(t, p.Redirect())
	return p, tx
}
