package session_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/session"
	"github.com/cassiomorais/purchases/internal/testutil"
)

func TestSerialize_StampsCurrentVersion(t *testing.T) {
	raw, err := session.Serialize(testutil.NewTestPurchase())
	require.NoError(t, err)

	doc := decode(t, raw)
	assert.Equal(t, float64(purchase.CurrentSchemaVersion), doc["version"])
}

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	p := testutil.NewValidTestPurchase("rocketgate", "netbilling", "epoch")
	p.PostbackURL = "https://merchant.example.com/postback"
	p.RedirectURL = "https://merchant.example.com/return"
	p.TrafficSource = "AFF"
	p.ExistingMember = true
	require.NoError(t, p.MarkPending())

	tx := purchase.NewTransaction("rocketgate", purchase.TransactionPending, true)
	tx.BillerTxID = "rg-42"
	tx.AttachThreeD(purchase.ThreeDInfo{
		Version:   2,
		StepUpURL: "https://acs.example.com/step-up",
		StepUpJWT: "jwt-step-up",
	})
	tx.AttachDeviceCollection("https://acs.example.com/collect", "jwt-collect")
	require.NoError(t, p.AddTransactionToItem(tx, p.MainItem().ID))

	raw, err := session.Serialize(p)
	require.NoError(t, err)
	got, err := session.Deserialize(raw)
	require.NoError(t, err)

	assert.Equal(t, p.SessionID, got.SessionID)
	assert.Equal(t, purchase.StatePending, got.State)
	assert.Equal(t, p.EntrySiteID, got.EntrySiteID)
	assert.Equal(t, p.Currency, got.Currency)
	assert.Equal(t, p.PublicKeyIndex, got.PublicKeyIndex)
	assert.Equal(t, p.PostbackURL, got.PostbackURL)
	assert.Equal(t, p.RedirectURL, got.RedirectURL)
	assert.Equal(t, "AFF", got.TrafficSource)
	assert.True(t, got.ExistingMember)
	assert.Equal(t, p.UserInfo, got.UserInfo)
	assert.Equal(t, p.PaymentInfo, got.PaymentInfo)
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Second)

	require.NotNil(t, got.FraudAdvice)
	assert.Equal(t, *p.FraudAdvice, *got.FraudAdvice)

	require.NotNil(t, got.Cascade)
	assert.Equal(t, p.Cascade.Billers, got.Cascade.Billers)
	assert.Equal(t, p.Cascade.CurrentBillerPosition, got.Cascade.CurrentBillerPosition)
	assert.Equal(t, p.Cascade.CurrentBillerSubmit, got.Cascade.CurrentBillerSubmit)

	require.Len(t, got.Items, 1)
	item := got.Items[0]
	assert.Equal(t, p.MainItem().ID, item.ID)
	assert.Equal(t, "bundle-1", item.BundleID)
	assert.Equal(t, int64(2995), item.Amount.ValueCents)
	assert.True(t, item.IsMain)

	gotTx := got.TransactionByID(tx.ID)
	require.NotNil(t, gotTx)
	assert.Equal(t, purchase.TransactionPending, gotTx.State)
	assert.Equal(t, "rocketgate", gotTx.BillerName)
	assert.Equal(t, "rg-42", gotTx.BillerTxID)
	assert.True(t, gotTx.NewCCUsed)
	require.NotNil(t, gotTx.ThreeD)
	assert.Equal(t, 2, gotTx.ThreeD.Version)
	assert.Equal(t, "jwt-step-up", gotTx.ThreeD.StepUpJWT)
	require.NotNil(t, gotTx.DeviceCollection)
	assert.Equal(t, "https://acs.example.com/collect", gotTx.DeviceCollection.URL)
	assert.Equal(t, "jwt-collect", gotTx.DeviceCollection.JWT)
}

func TestSerializeDeserialize_RoundTripRebillAndTemplates(t *testing.T) {
	p := testutil.NewTestPurchase()
	p.MainItem().Rebill = &purchase.RebillTerms{AmountCents: 1995, Frequency: 30}
	p.PaymentTemplates = []purchase.PaymentTemplate{{
		TemplateID:   "tpl-1",
		CardBin:      "411111",
		CardLastFour: "1111",
		ExpMonth:     4,
		ExpYear:      2028,
		BillerName:   "rocketgate",
	}}
	p.FraudRecommendations = purchase.FraudRecommendationCollection{
		{Severity: purchase.SeverityBlock, Code: "100", Message: "Blacklist"},
	}

	raw, err := session.Serialize(p)
	require.NoError(t, err)
	got, err := session.Deserialize(raw)
	require.NoError(t, err)

	require.NotNil(t, got.MainItem().Rebill)
	assert.Equal(t, int64(1995), got.MainItem().Rebill.AmountCents)
	assert.Equal(t, 30, got.MainItem().Rebill.Frequency)
	assert.Equal(t, p.PaymentTemplates, got.PaymentTemplates)
	assert.Equal(t, p.FraudRecommendations, got.FraudRecommendations)
}

func TestDeserialize_MigratesOldVersions(t *testing.T) {
	id := uuid.New()
	itemID := uuid.New()
	raw := `{
		"version": 1,
		"sessionId": "` + id.String() + `",
		"state": "created",
		"cascade": {"billers": ["rocketgate"], "removedBillersFor3DS": "netbilling"},
		"items": [{"itemId": "` + itemID.String() + `", "bundleId": "b-1", "amountCents": 2995, "currency": "USD", "isMain": true, "transactionCollection": []}],
		"userInfo": {},
		"paymentInfo": {},
		"entrySiteId": "site-1",
		"currency": "USD"
	}`

	got, err := session.Deserialize(raw)
	require.NoError(t, err)

	assert.Equal(t, id, got.SessionID)
	assert.Equal(t, purchase.StateCreated, got.State)
	assert.Equal(t, purchase.CurrentSchemaVersion, got.Version)
	assert.Equal(t, "ALL", got.TrafficSource)
	assert.Equal(t, []string{"netbilling"}, got.Cascade.RemovedBillersForThreeD)
	require.Len(t, got.Items, 1)
	assert.Equal(t, itemID, got.Items[0].ID)
}

func TestDeserialize_UnknownState(t *testing.T) {
	raw := `{"version": 3, "sessionId": "` + uuid.NewString() + `", "state": "limbo", "cascade": {"billers": []}}`
	_, err := session.Deserialize(raw)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidState)
}

func TestDeserialize_BadSessionID(t *testing.T) {
	raw := `{"version": 3, "sessionId": "not-a-uuid", "state": "created", "cascade": {"billers": []}}`
	_, err := session.Deserialize(raw)
	assert.ErrorIs(t, err, domainErrors.ErrSessionConversion)
}

func TestDeserialize_BadTransactionID(t *testing.T) {
	raw := `{
		"version": 3,
		"sessionId": "` + uuid.NewString() + `",
		"state": "pending",
		"cascade": {"billers": ["rocketgate"]},
		"initializedItemCollection": [{
			"itemId": "` + uuid.NewString() + `",
			"bundleId": "b-1", "amountCents": 1, "currency": "USD", "isMain": true,
			"transactionCollection": [{"transactionId": "nope", "state": "pending", "billerName": "rocketgate"}]
		}]
	}`
	_, err := session.Deserialize(raw)
	assert.ErrorIs(t, err, domainErrors.ErrSessionConversion)
}

func TestDeserialize_Corrupt(t *testing.T) {
	_, err := session.Deserialize(`{broken`)
	assert.ErrorIs(t, err, domainErrors.ErrSessionConversion)
}
