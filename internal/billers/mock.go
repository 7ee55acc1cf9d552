package billers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/google/uuid"
)

// MockBiller simulates a payment biller for tests and local runs.
type MockBiller struct {
	name           string
	declineRate    float64 // 0.0 to 1.0
	timeoutRate    float64 // 0.0 to 1.0
	latency        time.Duration
	thirdParty     bool
	redirectBase   string
	threeDSupport  bool
	threeDVersion  int
	paymentMethods []string

	// scripted overrides the random outcome; each Charge call consumes one
	// entry until the slice is exhausted.
	scripted []*ChargeResult
}

type MockBillerOption func(*MockBiller)

func WithDeclineRate(rate float64) MockBillerOption {
	return func(b *MockBiller) { b.declineRate = rate }
}

func WithTimeoutRate(rate float64) MockBillerOption {
	return func(b *MockBiller) { b.timeoutRate = rate }
}

func WithLatency(d time.Duration) MockBillerOption {
	return func(b *MockBiller) { b.latency = d }
}

func WithThirdParty(redirectBase string) MockBillerOption {
	return func(b *MockBiller) {
		b.thirdParty = true
		b.redirectBase = redirectBase
	}
}

func WithThreeDSupport(supported bool) MockBillerOption {
	return func(b *MockBiller) {
		b.threeDSupport = supported
		if b.threeDVersion == 0 {
			b.threeDVersion = 2
		}
	}
}

func WithThreeDVersion(version int) MockBillerOption {
	return func(b *MockBiller) { b.threeDVersion = version }
}

func WithPaymentMethods(methods ...string) MockBillerOption {
	return func(b *MockBiller) { b.paymentMethods = methods }
}

func WithScriptedResults(results ...*ChargeResult) MockBillerOption {
	return func(b *MockBiller) { b.scripted = results }
}

func NewMockBiller(name string, opts ...MockBillerOption) *MockBiller {
	b := &MockBiller{
		name:    name,
		latency: 100 * time.Millisecond,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *MockBiller) Name() string { return b.name }

func (b *MockBiller) IsThirdParty() bool { return b.thirdParty }

func (b *MockBiller) SupportsThreeDSecure() bool { return b.threeDSupport }

func (b *MockBiller) AvailablePaymentMethods() []string { return b.paymentMethods }

func (b *MockBiller) RedirectURL(sessionID string) string {
	if !b.thirdParty {
		return ""
	}
	return fmt.Sprintf("%s?session=%s", b.redirectBase, sessionID)
}

func (b *MockBiller) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	select {
	case <-time.After(b.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if len(b.scripted) > 0 {
		result := b.scripted[0]
		b.scripted = b.scripted[1:]
		return result, nil
	}

	if rand.Float64() < b.timeoutRate {
		return nil, domainErrors.NewTransientError(domainErrors.ErrBillerTimeout)
	}

	if rand.Float64() < b.declineRate {
		return &ChargeResult{
			Status:        StatusDeclined,
			DeclineReason: fmt.Sprintf("%s: simulated decline for session %s", b.name, req.SessionID),
		}, nil
	}

	if req.ThreeDRequested && b.threeDSupport {
		result := &ChargeResult{
			BillerTxID:      b.txID(),
			Status:          StatusPending,
			AuthenticateURL: fmt.Sprintf("https://3ds.%s.example/authenticate", b.name),
		}
		if b.threeDVersion >= 2 {
			result.ThreeD = &ThreeDChallenge{
				Version:   2,
				StepUpURL: fmt.Sprintf("https://3ds.%s.example/step-up", b.name),
				StepUpJWT: fmt.Sprintf("jwt_%s", uuid.New().String()[:8]),
			}
			result.DeviceCollection = &DeviceCollection{
				URL: fmt.Sprintf("https://3ds.%s.example/device", b.name),
				JWT: fmt.Sprintf("dcjwt_%s", uuid.New().String()[:8]),
			}
		} else {
			result.ThreeD = &ThreeDChallenge{
				Version:   1,
				StepUpURL: fmt.Sprintf("https://3ds.%s.example/acs", b.name),
				MD:        fmt.Sprintf("md_%s", uuid.New().String()[:8]),
			}
		}
		return result, nil
	}

	return &ChargeResult{
		BillerTxID: b.txID(),
		Status:     StatusApproved,
	}, nil
}

func (b *MockBiller) CompleteAuthentication(ctx context.Context, sessionID, billerTxID string) (*ChargeResult, error) {
	select {
	case <-time.After(b.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if len(b.scripted) > 0 {
		result := b.scripted[0]
		b.scripted = b.scripted[1:]
		return result, nil
	}

	return &ChargeResult{
		BillerTxID: billerTxID,
		Status:     StatusApproved,
	}, nil
}

func (b *MockBiller) txID() string {
	return fmt.Sprintf("%s_txn_%s", b.name, uuid.New().String()[:8])
}
