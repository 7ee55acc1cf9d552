package billers

import (
	"context"
	"fmt"

	"github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
)

// StaticCascadeResolver computes the ordered biller list for a session from
// a configured order, filtered against the registered billers. The order is
// computed once per session at init and never changes afterwards.
type StaticCascadeResolver struct {
	factory *Factory
	// order is the configured cascade order; empty entries and unregistered
	// billers are dropped.
	order []string
	// currencyOverrides maps a currency code to a dedicated order.
	currencyOverrides map[string][]string
}

// NewStaticCascadeResolver creates a resolver with a default order and
// optional per-currency overrides.
func NewStaticCascadeResolver(factory *Factory, order []string, currencyOverrides map[string][]string) *StaticCascadeResolver {
	return &StaticCascadeResolver{
		factory:           factory,
		order:             order,
		currencyOverrides: currencyOverrides,
	}
}

// BillersFor returns the eligible, ordered biller list for the purchase.
// Template payments settle on-session only, so third-party billers are
// filtered out for them.
func (r *StaticCascadeResolver) BillersFor(_ context.Context, siteID, currency string, paymentType purchase.PaymentType) ([]string, error) {
	order := r.order
	if override, ok := r.currencyOverrides[currency]; ok {
		order = override
	}
	if len(order) == 0 {
		order = r.factory.Names()
	}

	var eligible []string
	for _, name := range order {
		if name == "" {
			continue
		}
		if _, _, err := r.factory.Get(name); err != nil {
			continue
		}
		if paymentType == purchase.PaymentTypeTemplate && r.factory.IsThirdParty(name) {
			continue
		}
		eligible = append(eligible, name)
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("no eligible billers for site %s currency %s: %w", siteID, currency, errors.ErrEmptyCascade)
	}
	return eligible, nil
}
