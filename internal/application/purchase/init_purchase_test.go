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

func initCommand() app.InitPurchaseCommand {
	return app.InitPurchaseCommand{
		EntrySiteID:    "site-1",
		Currency:       "USD",
		PublicKeyIndex: 1,
		MainItem:       app.InitItem{BundleID: "bundle-1", SiteID: "site-1", AmountCents: 2995},
		User:           app.UserDetails{Email: "buyer@example.com", Country: "US", IPAddress: "198.51.100.7"},
		RedirectURL:    "https://merchant.example.com/return",
		PostbackURL:    "https://merchant.example.com/postback",
	}
}

func TestInitPurchase_HappyPath(t *testing.T) {
	store := testutil.NewMockSessionStore()
	factory := billers.NewFactory(instantBiller("rocketgate"), instantBiller("netbilling"))
	resolver := &testutil.MockCascadeResolver{Billers: []string{"rocketgate", "netbilling"}}
	uc := app.NewInitPurchaseUseCase(store, resolver, factory, testutil.NewMockFraudAdvisor(), app.Config{}, nopLogger())

	result, err := uc.Execute(context.Background(), initCommand())
	require.NoError(t, err)

	assert.Equal(t, domain.StateCreated, result.State)
	assert.Equal(t, 1, result.PublicKeyIndex)
	assert.Equal(t, nextaction.TypeRenderGateway, result.NextAction.ActionType())

	persisted := storedAggregate(t, store, result.SessionID)
	assert.Equal(t, domain.StateCreated, persisted.State)
	assert.Equal(t, []string{"rocketgate", "netbilling"}, persisted.Cascade.Billers)
	assert.Equal(t, "https://merchant.example.com/postback", persisted.PostbackURL)
	require.Len(t, persisted.Items, 1)
	assert.True(t, persisted.Items[0].IsMain)
}

func TestInitPurchase_CrossSellsStaged(t *testing.T) {
	store := testutil.NewMockSessionStore()
	factory := billers.NewFactory(instantBiller("rocketgate"))
	resolver := &testutil.MockCascadeResolver{Billers: []string{"rocketgate"}}
	uc := app.NewInitPurchaseUseCase(store, resolver, factory, testutil.NewMockFraudAdvisor(), app.Config{}, nopLogger())

	cmd := initCommand()
	cmd.CrossSells = []app.InitItem{
		{BundleID: "bundle-2", SiteID: "site-2", AmountCents: 995, RebillAmountCents: 1495, RebillFrequency: 30},
	}

	result, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)

	persisted := storedAggregate(t, store, result.SessionID)
	require.Len(t, persisted.Items, 2)
	cross := persisted.Items[1]
	assert.False(t, cross.IsMain)
	assert.Equal(t, "bundle-2", cross.BundleID)
	require.NotNil(t, cross.Rebill)
	assert.Equal(t, int64(1495), cross.Rebill.AmountCents)
}

func TestInitPurchase_ThirdPartyBillerDirectives(t *testing.T) {
	store := testutil.NewMockSessionStore()
	withMethods := billers.NewFactory(instantBiller("epoch",
		billers.WithThirdParty("https://pay.epoch.example/entry"),
		billers.WithPaymentMethods("sepa", "giropay"),
	))
	resolver := &testutil.MockCascadeResolver{Billers: []string{"epoch"}}
	uc := app.NewInitPurchaseUseCase(store, resolver, withMethods, testutil.NewMockFraudAdvisor(), app.Config{}, nopLogger())

	result, err := uc.Execute(context.Background(), initCommand())
	require.NoError(t, err)
	assert.Equal(t, nextaction.TypeRenderGatewayOtherPayments, result.NextAction.ActionType())

	withoutMethods := billers.NewFactory(instantBiller("epoch",
		billers.WithThirdParty("https://pay.epoch.example/entry"),
	))
	uc = app.NewInitPurchaseUseCase(store, resolver, withoutMethods, testutil.NewMockFraudAdvisor(), app.Config{}, nopLogger())

	result, err = uc.Execute(context.Background(), initCommand())
	require.NoError(t, err)
	assert.Equal(t, nextaction.TypeRedirectToURL, result.NextAction.ActionType())
}

func TestInitPurchase_BlacklistAdviceRestarts(t *testing.T) {
	store := testutil.NewMockSessionStore()
	factory := billers.NewFactory(instantBiller("rocketgate"))
	resolver := &testutil.MockCascadeResolver{Billers: []string{"rocketgate"}}
	fraud := testutil.NewMockFraudAdvisor()
	fraud.InitAdvice = domain.FraudAdvice{Blacklist: true}
	uc := app.NewInitPurchaseUseCase(store, resolver, factory, fraud, app.Config{FraudChecksEnabled: true}, nopLogger())

	result, err := uc.Execute(context.Background(), initCommand())
	require.NoError(t, err)

	assert.Equal(t, nextaction.TypeRestartProcess, result.NextAction.ActionType())
	assert.Equal(t, domain.StateCreated, result.State)
}

func TestInitPurchase_FraudOutageDegradesToRender(t *testing.T) {
	store := testutil.NewMockSessionStore()
	factory := billers.NewFactory(instantBiller("rocketgate"))
	resolver := &testutil.MockCascadeResolver{Billers: []string{"rocketgate"}}
	fraud := testutil.NewMockFraudAdvisor()
	fraud.AdviseOnInitErr = assert.AnError
	uc := app.NewInitPurchaseUseCase(store, resolver, factory, fraud, app.Config{FraudChecksEnabled: true}, nopLogger())

	result, err := uc.Execute(context.Background(), initCommand())
	require.NoError(t, err)
	assert.Equal(t, nextaction.TypeRenderGateway, result.NextAction.ActionType())

	persisted := storedAggregate(t, store, result.SessionID)
	assert.Nil(t, persisted.FraudAdvice)
}

func TestInitPurchase_EmptyCascade(t *testing.T) {
	store := testutil.NewMockSessionStore()
	factory := billers.NewFactory(instantBiller("rocketgate"))
	resolver := &testutil.MockCascadeResolver{Err: domainErrors.ErrEmptyCascade}
	uc := app.NewInitPurchaseUseCase(store, resolver, factory, testutil.NewMockFraudAdvisor(), app.Config{}, nopLogger())

	_, err := uc.Execute(context.Background(), initCommand())
	assert.ErrorIs(t, err, domainErrors.ErrEmptyCascade)
}

func TestInitPurchase_RejectsForeignCommand(t *testing.T) {
	store := testutil.NewMockSessionStore()
	factory := billers.NewFactory(instantBiller("rocketgate"))
	resolver := &testutil.MockCascadeResolver{Billers: []string{"rocketgate"}}
	uc := app.NewInitPurchaseUseCase(store, resolver, factory, testutil.NewMockFraudAdvisor(), app.Config{}, nopLogger())

	_, err := uc.Execute(context.Background(), app.ProcessNewPaymentCommand{SessionID: "s-1"})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCommand)
}
