package billers

import (
	"fmt"
	"time"

	"github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// Factory holds the registered billers and one circuit breaker per biller.
// It also implements purchase.BillerDirectory for the cascade resolver.
type Factory struct {
	billers         map[string]Biller
	circuitBreakers map[string]*gobreaker.CircuitBreaker[*ChargeResult]
}

func NewFactory(billersList ...Biller) *Factory {
	f := &Factory{
		billers:         make(map[string]Biller),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[*ChargeResult]),
	}

	if len(billersList) == 0 {
		f.Register(NewMockBiller("rocketgate",
			WithLatency(150*time.Millisecond),
			WithThreeDSupport(true),
		))
		f.Register(NewMockBiller("netbilling",
			WithLatency(250*time.Millisecond),
		))
		f.Register(NewMockBiller("epoch",
			WithLatency(300*time.Millisecond),
			WithThirdParty("https://pay.epoch.example/entry"),
			WithPaymentMethods("sepa", "giropay"),
		))
	} else {
		for _, b := range billersList {
			f.Register(b)
		}
	}

	return f
}

func (f *Factory) Register(b Biller) {
	f.billers[b.Name()] = b
	f.circuitBreakers[b.Name()] = gobreaker.NewCircuitBreaker[*ChargeResult](gobreaker.Settings{
		Name:        b.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// Get returns the biller and its circuit breaker by cascade name.
func (f *Factory) Get(name string) (Biller, *gobreaker.CircuitBreaker[*ChargeResult], error) {
	b, ok := f.billers[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown biller %q: %w", name, errors.ErrBillerNotFound)
	}
	return b, f.circuitBreakers[name], nil
}

// Names returns the registered biller names.
func (f *Factory) Names() []string {
	names := make([]string, 0, len(f.billers))
	for name := range f.billers {
		names = append(names, name)
	}
	return names
}

// IsThirdParty implements purchase.BillerDirectory.
func (f *Factory) IsThirdParty(name string) bool {
	b, ok := f.billers[name]
	return ok && b.IsThirdParty()
}

// SupportsThreeDSecure implements purchase.BillerDirectory.
func (f *Factory) SupportsThreeDSecure(name string) bool {
	b, ok := f.billers[name]
	return ok && b.SupportsThreeDSecure()
}
