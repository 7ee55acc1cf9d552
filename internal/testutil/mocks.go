package testutil

import (
	"context"
	"sync"

	app "github.com/cassiomorais/purchases/internal/application/purchase"
	"github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/session"
)

// --- Session Store Mock ---

// MockSessionStore is an in-memory implementation of session.Store.
type MockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Info

	LoadFunc func(ctx context.Context, sessionID string) (*session.Info, error)
	SaveFunc func(ctx context.Context, info *session.Info) error

	SaveCount int
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[string]*session.Info),
	}
}

// Put pre-populates the store with a session envelope.
func (m *MockSessionStore) Put(info *session.Info) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[info.SessionID] = info
}

func (m *MockSessionStore) Load(ctx context.Context, sessionID string) (*session.Info, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.sessions[sessionID]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	copied := *info
	return &copied, nil
}

func (m *MockSessionStore) Save(ctx context.Context, info *session.Info) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, info)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *info
	m.sessions[info.SessionID] = &copied
	m.SaveCount++
	return nil
}

// Payload returns the stored payload for a session, or "" if absent.
func (m *MockSessionStore) Payload(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.sessions[sessionID]
	if !ok {
		return ""
	}
	return info.Payload
}

// --- Outcome Publisher Mock ---

// MockOutcomePublisher records published outcome events.
type MockOutcomePublisher struct {
	mu     sync.Mutex
	Events []app.OutcomeEvent

	PublishFunc func(ctx context.Context, event app.OutcomeEvent) error
}

func NewMockOutcomePublisher() *MockOutcomePublisher {
	return &MockOutcomePublisher{}
}

func (m *MockOutcomePublisher) PublishOutcome(ctx context.Context, event app.OutcomeEvent) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// Published returns a snapshot of the recorded events.
func (m *MockOutcomePublisher) Published() []app.OutcomeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]app.OutcomeEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

// --- Archiver Mock ---

// MockArchiver records archived terminal payloads.
type MockArchiver struct {
	mu       sync.Mutex
	Archived map[string]string

	ArchiveFunc func(ctx context.Context, sessionID, state, payload string) error
}

func NewMockArchiver() *MockArchiver {
	return &MockArchiver{Archived: make(map[string]string)}
}

func (m *MockArchiver) Archive(ctx context.Context, sessionID, state, payload string) error {
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, sessionID, state, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Archived[sessionID] = payload
	return nil
}

// --- Fraud Advisor Mock ---

// MockFraudAdvisor returns configured advice without calling anything.
type MockFraudAdvisor struct {
	InitAdvice         purchase.FraudAdvice
	InitRecs           purchase.FraudRecommendationCollection
	ProcessAdvice      purchase.FraudAdvice
	ProcessRecs        purchase.FraudRecommendationCollection
	AdviseOnInitErr    error
	AdviseOnProcessErr error
}

func NewMockFraudAdvisor() *MockFraudAdvisor {
	return &MockFraudAdvisor{}
}

func (m *MockFraudAdvisor) AdviseOnInit(ctx context.Context, user purchase.UserInfo, entrySiteID string) (purchase.FraudAdvice, purchase.FraudRecommendationCollection, error) {
	return m.InitAdvice, m.InitRecs, m.AdviseOnInitErr
}

func (m *MockFraudAdvisor) AdviseOnProcess(ctx context.Context, user purchase.UserInfo, entrySiteID string) (purchase.FraudAdvice, purchase.FraudRecommendationCollection, error) {
	return m.ProcessAdvice, m.ProcessRecs, m.AdviseOnProcessErr
}

// --- Cascade Resolver Mock ---

// MockCascadeResolver returns a fixed biller order.
type MockCascadeResolver struct {
	Billers []string
	Err     error
}

func (m *MockCascadeResolver) BillersFor(ctx context.Context, siteID, currency string, paymentType purchase.PaymentType) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Billers, nil
}
