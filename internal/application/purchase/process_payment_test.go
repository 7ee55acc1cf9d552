package purchase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/cassiomorais/purchases/internal/application/purchase"
	"github.com/cassiomorais/purchases/internal/billers"
	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	domain "github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/nextaction"
	"github.com/cassiomorais/purchases/internal/testutil"
)

type processFixture struct {
	store     *testutil.MockSessionStore
	publisher *testutil.MockOutcomePublisher
	archiver  *testutil.MockArchiver
	fraud     *testutil.MockFraudAdvisor
	uc        *app.ProcessNewPaymentUseCase
}

func newProcessFixture(factory *billers.Factory, cfg app.Config) *processFixture {
	if cfg.MaxBillerSubmits == 0 {
		cfg.MaxBillerSubmits = 1
	}
	f := &processFixture{
		store:     testutil.NewMockSessionStore(),
		publisher: testutil.NewMockOutcomePublisher(),
		archiver:  testutil.NewMockArchiver(),
		fraud:     testutil.NewMockFraudAdvisor(),
	}
	f.uc = app.NewProcessNewPaymentUseCase(f.store, factory, f.fraud, f.publisher, f.archiver, cfg, nopLogger())
	return f
}

func newCardCommand(sessionID string) app.ProcessNewPaymentCommand {
	return app.ProcessNewPaymentCommand{
		SessionID:    sessionID,
		CardToken:    "tok-test",
		CardBin:      "411111",
		CardLastFour: "1111",
	}
}

func TestProcessNewPayment_Approved(t *testing.T) {
	factory := billers.NewFactory(instantBiller("rocketgate", billers.WithScriptedResults(approved("rg-1"))))
	f := newProcessFixture(factory, app.Config{})
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("rocketgate"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)

	assert.Equal(t, domain.StateProcessed, result.State)
	assert.Equal(t, nextaction.TypeFinishProcess, result.NextAction.ActionType())

	persisted := storedAggregate(t, f.store, sessionID)
	assert.Equal(t, domain.StateProcessed, persisted.State)
	last := persisted.MainItem().LastTransaction()
	require.NotNil(t, last)
	assert.Equal(t, domain.TransactionApproved, last.State)
	assert.Equal(t, "rg-1", last.BillerTxID)

	events := f.publisher.Published()
	require.Len(t, events, 1)
	assert.Equal(t, sessionID, events[0].SessionID)
	assert.Equal(t, "approved", events[0].Resolution)
	assert.Contains(t, f.archiver.Archived, sessionID)
}

func TestProcessNewPayment_DeclineAdvancesCascade(t *testing.T) {
	factory := billers.NewFactory(
		instantBiller("rocketgate", billers.WithScriptedResults(declined("insufficient funds"))),
		instantBiller("netbilling", billers.WithScriptedResults(approved("nb-1"))),
	)
	f := newProcessFixture(factory, app.Config{})
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("rocketgate", "netbilling"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)
	assert.Equal(t, domain.StateProcessed, result.State)

	persisted := storedAggregate(t, f.store, sessionID)
	txs := persisted.MainItem().Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "rocketgate", txs[0].BillerName)
	assert.Equal(t, domain.TransactionDeclined, txs[0].State)
	assert.Equal(t, "netbilling", txs[1].BillerName)
	assert.Equal(t, domain.TransactionApproved, txs[1].State)
}

func TestProcessNewPayment_SameBillerRetriesBeforeAdvance(t *testing.T) {
	factory := billers.NewFactory(
		instantBiller("rocketgate", billers.WithScriptedResults(declined("soft decline"), approved("rg-2"))),
	)
	f := newProcessFixture(factory, app.Config{MaxBillerSubmits: 2})
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("rocketgate"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)
	assert.Equal(t, domain.StateProcessed, result.State)

	persisted := storedAggregate(t, f.store, sessionID)
	txs := persisted.MainItem().Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "rocketgate", txs[0].BillerName)
	assert.Equal(t, "rocketgate", txs[1].BillerName)
}

func TestProcessNewPayment_ExhaustedCascade(t *testing.T) {
	factory := billers.NewFactory(
		instantBiller("rocketgate", billers.WithScriptedResults(declined("no"))),
		instantBiller("netbilling", billers.WithScriptedResults(declined("no"))),
	)
	f := newProcessFixture(factory, app.Config{})
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("rocketgate", "netbilling"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)

	assert.Equal(t, domain.StateCascadeBillersExhausted, result.State)
	assert.Equal(t, nextaction.TypeRedirectToFallbackProcessor, result.NextAction.ActionType())
	assert.Empty(t, f.publisher.Published())
	assert.Equal(t, domain.StateCascadeBillersExhausted, storedAggregate(t, f.store, sessionID).State)
}

func TestProcessNewPayment_CrossSellsSettleOnWinningBiller(t *testing.T) {
	factory := billers.NewFactory(
		instantBiller("rocketgate", billers.WithScriptedResults(approved("rg-main"), approved("rg-cross"))),
	)
	f := newProcessFixture(factory, app.Config{})

	p := testutil.NewTestPurchase("rocketgate")
	p.Items = append(p.Items, testutil.NewTestItem("bundle-2", "site-2", 995, "USD", false))
	sessionID := seedSession(t, f.store, p)

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)
	assert.Equal(t, domain.StateProcessed, result.State)

	persisted := storedAggregate(t, f.store, sessionID)
	require.Len(t, persisted.Items, 2)
	crossTx := persisted.Items[1].LastTransaction()
	require.NotNil(t, crossTx)
	assert.Equal(t, "rocketgate", crossTx.BillerName)
	assert.Equal(t, domain.TransactionApproved, crossTx.State)
	assert.Equal(t, "rg-cross", crossTx.BillerTxID)
}

func TestProcessNewPayment_CrossSellDeclineDoesNotCascade(t *testing.T) {
	factory := billers.NewFactory(
		instantBiller("rocketgate", billers.WithScriptedResults(approved("rg-main"), declined("cross declined"))),
		instantBiller("netbilling"),
	)
	f := newProcessFixture(factory, app.Config{})

	p := testutil.NewTestPurchase("rocketgate", "netbilling")
	p.Items = append(p.Items, testutil.NewTestItem("bundle-2", "site-2", 995, "USD", false))
	sessionID := seedSession(t, f.store, p)

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)
	assert.Equal(t, domain.StateProcessed, result.State)

	persisted := storedAggregate(t, f.store, sessionID)
	crossTx := persisted.Items[1].LastTransaction()
	require.NotNil(t, crossTx)
	assert.Equal(t, "rocketgate", crossTx.BillerName)
	assert.Equal(t, domain.TransactionDeclined, crossTx.State)
}

func TestProcessNewPayment_ThreeDMandatedPends(t *testing.T) {
	factory := billers.NewFactory(instantBiller("rocketgate", billers.WithThreeDSupport(true)))
	f := newProcessFixture(factory, app.Config{ThreeDMandated: true})
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("rocketgate"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)

	assert.Equal(t, domain.StatePending, result.State)
	assert.Equal(t, nextaction.TypeDeviceDetectionThreeD, result.NextAction.ActionType())

	persisted := storedAggregate(t, f.store, sessionID)
	last := persisted.MainItem().LastTransaction()
	require.NotNil(t, last)
	assert.Equal(t, domain.TransactionPending, last.State)
	require.NotNil(t, last.ThreeD)
	assert.Equal(t, 2, last.ThreeD.Version)
	require.NotNil(t, last.DeviceCollection)
	assert.Empty(t, f.publisher.Published())
}

func TestProcessNewPayment_ThreeDMandateRemovesIncapableBiller(t *testing.T) {
	factory := billers.NewFactory(
		instantBiller("netbilling"),
		instantBiller("rocketgate", billers.WithThreeDSupport(true), billers.WithScriptedResults(
			&billers.ChargeResult{
				BillerTxID: "rg-3ds",
				Status:     billers.StatusPending,
				ThreeD:     &billers.ThreeDChallenge{Version: 2, StepUpURL: "https://acs.example.com/step-up", StepUpJWT: "jwt"},
			},
		)),
	)
	f := newProcessFixture(factory, app.Config{ThreeDMandated: true})
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("netbilling", "rocketgate"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, result.State)

	persisted := storedAggregate(t, f.store, sessionID)
	assert.Equal(t, []string{"netbilling"}, persisted.Cascade.RemovedBillersForThreeD)
	last := persisted.MainItem().LastTransaction()
	require.NotNil(t, last)
	assert.Equal(t, "rocketgate", last.BillerName)
}

func TestProcessNewPayment_ThirdPartyRedirects(t *testing.T) {
	factory := billers.NewFactory(instantBiller("epoch", billers.WithThirdParty("https://pay.epoch.example/entry")))
	f := newProcessFixture(factory, app.Config{})
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("epoch"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)

	assert.Equal(t, domain.StateRedirected, result.State)
	require.Equal(t, nextaction.TypeRedirectToURL, result.NextAction.ActionType())
	redirect := result.NextAction.(nextaction.RedirectToURL)
	assert.Equal(t, "https://pay.epoch.example/entry?session="+sessionID, redirect.URL)

	persisted := storedAggregate(t, f.store, sessionID)
	assert.Equal(t, domain.StateRedirected, persisted.State)
	last := persisted.MainItem().LastTransaction()
	require.NotNil(t, last)
	assert.Equal(t, domain.TransactionPending, last.State)
	assert.Equal(t, domain.PaymentTypeThirdParty, persisted.PaymentInfo.Type)
	assert.Equal(t, "https://pay.epoch.example/entry?session="+sessionID, persisted.PaymentInfo.ThirdPartyURL)
	assert.Empty(t, f.publisher.Published())
}

func TestProcessNewPayment_BlacklistBlocks(t *testing.T) {
	factory := billers.NewFactory(instantBiller("rocketgate"))
	f := newProcessFixture(factory, app.Config{FraudChecksEnabled: true})
	f.fraud.ProcessAdvice = domain.FraudAdvice{Blacklist: true}
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("rocketgate"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)

	assert.Equal(t, domain.StateBlockedDueToFraudAdvice, result.State)
	assert.Equal(t, nextaction.TypeRestartProcess, result.NextAction.ActionType())
	assert.Empty(t, f.publisher.Published())

	persisted := storedAggregate(t, f.store, sessionID)
	assert.Equal(t, domain.StateBlockedDueToFraudAdvice, persisted.State)
	assert.Empty(t, persisted.MainItem().Transactions())
}

func TestProcessNewPayment_HardBlockRecommendationBlocks(t *testing.T) {
	factory := billers.NewFactory(instantBiller("rocketgate"))
	f := newProcessFixture(factory, app.Config{FraudChecksEnabled: true})
	f.fraud.ProcessRecs = domain.FraudRecommendationCollection{
		{Severity: domain.SeverityBlock, Code: "100", Message: "Blacklist"},
	}
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("rocketgate"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)
	assert.Equal(t, domain.StateBlockedDueToFraudAdvice, result.State)
}

func TestProcessNewPayment_FraudOutageProceeds(t *testing.T) {
	factory := billers.NewFactory(instantBiller("rocketgate", billers.WithScriptedResults(approved("rg-1"))))
	f := newProcessFixture(factory, app.Config{FraudChecksEnabled: true})
	f.fraud.AdviseOnProcessErr = assert.AnError
	sessionID := seedSession(t, f.store, testutil.NewTestPurchase("rocketgate"))

	result, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	require.NoError(t, err)
	assert.Equal(t, domain.StateProcessed, result.State)
}

func TestProcessNewPayment_SessionNotFound(t *testing.T) {
	factory := billers.NewFactory(instantBiller("rocketgate"))
	f := newProcessFixture(factory, app.Config{})

	_, err := f.uc.Execute(context.Background(), newCardCommand("missing"))
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestProcessNewPayment_RedirectedSessionRejectsReprocess(t *testing.T) {
	factory := billers.NewFactory(instantBiller("epoch", billers.WithThirdParty("https://pay.epoch.example/entry")))
	f := newProcessFixture(factory, app.Config{})
	p, _ := newRedirectedPurchase(t, "epoch")
	sessionID := seedSession(t, f.store, p)

	_, err := f.uc.Execute(context.Background(), newCardCommand(sessionID))
	assert.ErrorIs(t, err, domainErrors.ErrIllegalStateTransition)
}

func TestProcessNewPayment_RejectsForeignCommand(t *testing.T) {
	factory := billers.NewFactory(instantBiller("rocketgate"))
	f := newProcessFixture(factory, app.Config{})

	_, err := f.uc.Execute(context.Background(), app.InitPurchaseCommand{})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCommand)
}

func TestProcessExistingPayment_TemplateApproved(t *testing.T) {
	factory := billers.NewFactory(instantBiller("rocketgate", billers.WithScriptedResults(approved("rg-1"))))
	store := testutil.NewMockSessionStore()
	publisher := testutil.NewMockOutcomePublisher()
	uc := app.NewProcessExistingPaymentUseCase(store, factory, testutil.NewMockFraudAdvisor(), publisher, nil,
		app.Config{MaxBillerSubmits: 1}, nopLogger())

	p := testutil.NewTestPurchase("rocketgate")
	p.PaymentTemplates = []domain.PaymentTemplate{{TemplateID: "tpl-1", CardLastFour: "1111"}}
	sessionID := seedSession(t, store, p)

	result, err := uc.Execute(context.Background(), app.ProcessExistingPaymentCommand{SessionID: sessionID, TemplateID: "tpl-1"})
	require.NoError(t, err)

	assert.Equal(t, domain.StateProcessed, result.State)
	require.Len(t, publisher.Published(), 1)

	persisted := storedAggregate(t, store, sessionID)
	assert.Equal(t, domain.PaymentTypeTemplate, persisted.PaymentInfo.Type)
	assert.Equal(t, "tpl-1", persisted.PaymentInfo.TemplateID)
	last := persisted.MainItem().LastTransaction()
	require.NotNil(t, last)
	assert.False(t, last.NewCCUsed)
}

func TestProcessExistingPayment_UnknownTemplateRejected(t *testing.T) {
	factory := billers.NewFactory(instantBiller("rocketgate"))
	store := testutil.NewMockSessionStore()
	uc := app.NewProcessExistingPaymentUseCase(store, factory, testutil.NewMockFraudAdvisor(), nil, nil,
		app.Config{MaxBillerSubmits: 1}, nopLogger())

	p := testutil.NewTestPurchase("rocketgate")
	p.PaymentTemplates = []domain.PaymentTemplate{{TemplateID: "tpl-1"}}
	sessionID := seedSession(t, store, p)

	_, err := uc.Execute(context.Background(), app.ProcessExistingPaymentCommand{SessionID: sessionID, TemplateID: "tpl-9"})

	var verr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}
