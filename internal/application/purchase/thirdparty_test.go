package purchase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/cassiomorais/purchases/internal/application/purchase"
	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	domain "github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/nextaction"
	"github.com/cassiomorais/purchases/internal/testutil"
)

func TestThirdPartyPostback_ApprovedFinishes(t *testing.T) {
	store := testutil.NewMockSessionStore()
	publisher := testutil.NewMockOutcomePublisher()
	archiver := testutil.NewMockArchiver()
	uc := app.NewThirdPartyPostbackUseCase(store, publisher, archiver, nopLogger())

	p, tx := newRedirectedPurchase(t, "epoch")
	p.PostbackURL = "https://merchant.example.com/postback"
	sessionID := seedSession(t, store, p)

	result, err := uc.Execute(context.Background(), app.ThirdPartyPostbackCommand{
		SessionID:     sessionID,
		TransactionID: tx.ID.String(),
		Approved:      true,
		BillerTxID:    "ep-77",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateProcessed, result.State)
	assert.Equal(t, nextaction.TypeFinishProcess, result.NextAction.ActionType())

	persisted := storedAggregate(t, store, sessionID)
	settled := persisted.TransactionByID(tx.ID)
	require.NotNil(t, settled)
	assert.Equal(t, domain.TransactionApproved, settled.State)
	assert.Equal(t, "ep-77", settled.BillerTxID)

	events := publisher.Published()
	require.Len(t, events, 1)
	assert.Equal(t, "approved", events[0].Resolution)
	assert.Equal(t, "https://merchant.example.com/postback", events[0].PostbackURL)
	assert.Contains(t, archiver.Archived, sessionID)
}

func TestThirdPartyPostback_DeclinedFinishes(t *testing.T) {
	store := testutil.NewMockSessionStore()
	publisher := testutil.NewMockOutcomePublisher()
	uc := app.NewThirdPartyPostbackUseCase(store, publisher, nil, nopLogger())

	p, tx := newRedirectedPurchase(t, "epoch")
	sessionID := seedSession(t, store, p)

	result, err := uc.Execute(context.Background(), app.ThirdPartyPostbackCommand{
		SessionID:     sessionID,
		TransactionID: tx.ID.String(),
		Approved:      false,
		Reason:        "customer cancelled",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateProcessed, result.State)
	persisted := storedAggregate(t, store, sessionID)
	assert.Equal(t, domain.TransactionDeclined, persisted.TransactionByID(tx.ID).State)

	events := publisher.Published()
	require.Len(t, events, 1)
	assert.Equal(t, "declined", events[0].Resolution)
	assert.Equal(t, "customer cancelled", events[0].Reason)
}

func TestThirdPartyPostback_DuplicateIssuesRestart(t *testing.T) {
	store := testutil.NewMockSessionStore()
	publisher := testutil.NewMockOutcomePublisher()
	uc := app.NewThirdPartyPostbackUseCase(store, publisher, nil, nopLogger())

	p, tx := newRedirectedPurchase(t, "epoch")
	p.RedirectURL = "https://merchant.example.com/return"
	sessionID := seedSession(t, store, p)

	cmd := app.ThirdPartyPostbackCommand{
		SessionID:     sessionID,
		TransactionID: tx.ID.String(),
		Approved:      true,
		BillerTxID:    "ep-77",
	}
	_, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)

	// Redelivery of the same outcome must not reprocess the transaction.
	result, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, nextaction.TypeRestartProcess, result.NextAction.ActionType())
	assert.Equal(t, "https://merchant.example.com/return", result.RedirectURL)

	persisted := storedAggregate(t, store, sessionID)
	assert.Equal(t, domain.TransactionApproved, persisted.TransactionByID(tx.ID).State)
	assert.Len(t, publisher.Published(), 1)
}

func TestThirdPartyPostback_UnknownTransaction(t *testing.T) {
	store := testutil.NewMockSessionStore()
	uc := app.NewThirdPartyPostbackUseCase(store, nil, nil, nopLogger())

	p, _ := newRedirectedPurchase(t, "epoch")
	sessionID := seedSession(t, store, p)

	_, err := uc.Execute(context.Background(), app.ThirdPartyPostbackCommand{
		SessionID:     sessionID,
		TransactionID: "0e4f3856-54f9-4cf2-8b40-4a3a55e4b02f",
		Approved:      true,
	})
	assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
}

func TestThirdPartyPostback_SessionNotFound(t *testing.T) {
	uc := app.NewThirdPartyPostbackUseCase(testutil.NewMockSessionStore(), nil, nil, nopLogger())

	_, err := uc.Execute(context.Background(), app.ThirdPartyPostbackCommand{
		SessionID:     "missing",
		TransactionID: "0e4f3856-54f9-4cf2-8b40-4a3a55e4b02f",
	})
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestThirdPartyRebill_SpawnsFollowUpSession(t *testing.T) {
	store := testutil.NewMockSessionStore()
	publisher := testutil.NewMockOutcomePublisher()
	uc := app.NewThirdPartyRebillUseCase(store, publisher, nil, nopLogger())

	original := newProcessedPurchase(t, "epoch")
	original.PostbackURL = "https://merchant.example.com/postback"
	sessionID := seedSession(t, store, original)

	result, err := uc.Execute(context.Background(), app.ThirdPartyRebillCommand{
		SessionID:  sessionID,
		BillerTxID: "ep-rebill-1",
		Approved:   true,
	})
	require.NoError(t, err)

	assert.NotEqual(t, sessionID, result.SessionID)
	assert.Equal(t, domain.StateProcessed, result.State)
	assert.Equal(t, nextaction.TypeFinishProcess, result.NextAction.ActionType())

	followUp := storedAggregate(t, store, result.SessionID)
	assert.True(t, followUp.ExistingMember)
	assert.Equal(t, original.EntrySiteID, followUp.EntrySiteID)
	assert.Equal(t, []string{"epoch"}, followUp.Cascade.Billers)
	assert.Equal(t, "https://merchant.example.com/postback", followUp.PostbackURL)

	txs := followUp.MainItem().Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionApproved, txs[0].State)
	assert.Equal(t, "ep-rebill-1", txs[0].BillerTxID)

	// Original session is untouched.
	assert.Len(t, storedAggregate(t, store, sessionID).MainItem().Transactions(), 1)

	events := publisher.Published()
	require.Len(t, events, 1)
	assert.Equal(t, result.SessionID, events[0].SessionID)
}

func TestThirdPartyRebill_DeclinedRecorded(t *testing.T) {
	store := testutil.NewMockSessionStore()
	uc := app.NewThirdPartyRebillUseCase(store, nil, nil, nopLogger())

	sessionID := seedSession(t, store, newProcessedPurchase(t, "epoch"))

	result, err := uc.Execute(context.Background(), app.ThirdPartyRebillCommand{
		SessionID:  sessionID,
		BillerTxID: "ep-rebill-2",
	})
	require.NoError(t, err)

	followUp := storedAggregate(t, store, result.SessionID)
	assert.Equal(t, domain.TransactionDeclined, followUp.MainItem().LastTransaction().State)
}

func TestThirdPartyRebill_RequiresProcessedSession(t *testing.T) {
	store := testutil.NewMockSessionStore()
	uc := app.NewThirdPartyRebillUseCase(store, nil, nil, nopLogger())

	sessionID := seedSession(t, store, testutil.NewValidTestPurchase("epoch"))

	_, err := uc.Execute(context.Background(), app.ThirdPartyRebillCommand{SessionID: sessionID, Approved: true})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidState)
}

func TestThirdPartyRebill_RejectsForeignCommand(t *testing.T) {
	uc := app.NewThirdPartyRebillUseCase(testutil.NewMockSessionStore(), nil, nil, nopLogger())

	_, err := uc.Execute(context.Background(), app.InitPurchaseCommand{})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCommand)
}
