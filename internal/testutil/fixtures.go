package testutil

import (
	"github.com/cassiomorais/purchases/internal/domain/purchase"
)

// NewTestItem builds an initialized item for tests.
func NewTestItem(bundleID, siteID string, amountCents int64, currency string, isMain bool) *purchase.InitializedItem {
	item, err := purchase.NewInitializedItem(bundleID, "", siteID, purchase.Amount{
		ValueCents: amountCents,
		Currency:   currency,
	}, false, isMain)
	if err != nil {
		panic(err)
	}
	return item
}

// NewTestPurchase builds an aggregate in the created state with one main
// item and the given cascade.
func NewTestPurchase(billers ...string) *purchase.PurchaseProcess {
	if len(billers) == 0 {
		billers = []string{"rocketgate", "netbilling"}
	}
	cascade, err := purchase.NewCascade(billers)
	if err != nil {
		panic(err)
	}

	p, err := purchase.NewPurchaseProcess(
		"site-1",
		"USD",
		0,
		[]*purchase.InitializedItem{NewTestItem("bundle-1", "site-1", 2995, "USD", true)},
		cascade,
		purchase.UserInfo{Email: "buyer@example.com", Country: "US", IPAddress: "198.51.100.7"},
	)
	if err != nil {
		panic(err)
	}
	return p
}

// NewValidTestPurchase builds an aggregate advanced to the valid state with
// card payment info and empty fraud advice attached.
func NewValidTestPurchase(billers ...string) *purchase.PurchaseProcess {
	p := NewTestPurchase(billers...)
	if err := p.SetPaymentInfo(purchase.PaymentInfo{
		Type:         purchase.PaymentTypeNewCard,
		CardToken:    "tok-test",
		CardBin:      "411111",
		CardLastFour: "1111",
	}); err != nil {
		panic(err)
	}
	if err := p.AttachFraudAdvice(purchase.FraudAdvice{}); err != nil {
		panic(err)
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}
