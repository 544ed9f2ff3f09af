package usecase_test

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
	"github.com/bibbank/phishguard/pkg/events"
)

// --- Mock implementations ---

type mockModel struct {
	name      string
	scoreFunc func(ctx context.Context, req model.URLRequest, f model.FeatureSet) (float64, error)
	calls     atomic.Int32
}

func (m *mockModel) Name() string { return m.name }

func (m *mockModel) Score(ctx context.Context, req model.URLRequest, f model.FeatureSet) (float64, error) {
	m.calls.Add(1)
	return m.scoreFunc(ctx, req, f)
}

func fixedModel(name string, p float64) *mockModel {
	return &mockModel{name: name, scoreFunc: func(context.Context, model.URLRequest, model.FeatureSet) (float64, error) {
		return p, nil
	}}
}

type mockVerdictStore struct {
	mu      sync.Mutex
	entries map[string]model.CacheEntry
	deleted []valueobject.Fingerprint
}

func newMockVerdictStore() *mockVerdictStore {
	return &mockVerdictStore{entries: make(map[string]model.CacheEntry)}
}

func (m *mockVerdictStore) Get(_ context.Context, fp valueobject.Fingerprint) (*model.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[fp.String()]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *mockVerdictStore) Put(_ context.Context, entry model.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Fingerprint.String()] = entry
	return nil
}

func (m *mockVerdictStore) Delete(_ context.Context, fps ...valueobject.Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fp := range fps {
		delete(m.entries, fp.String())
		m.deleted = append(m.deleted, fp)
	}
	return nil
}

func (m *mockVerdictStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type mockEventPublisher struct {
	mu              sync.Mutex
	publishedEvents []events.DomainEvent
	publishFunc     func(ctx context.Context, evts ...events.DomainEvent) error
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

func (m *mockEventPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.publishedEvents))
	for _, e := range m.publishedEvents {
		out = append(out, e.EventType())
	}
	return out
}

type mockFeedbackRepository struct {
	saved        *model.Feedback
	saveFunc     func(ctx context.Context, fb *model.Feedback) error
	findByIDFunc func(ctx context.Context, id uuid.UUID) (*model.Feedback, error)
}

func (m *mockFeedbackRepository) Save(ctx context.Context, fb *model.Feedback) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, fb)
	}
	m.saved = fb
	return nil
}

func (m *mockFeedbackRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Feedback, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, model.ErrNotFound
}

func (m *mockFeedbackRepository) FindByURL(_ context.Context, _ string, _ int) ([]*model.Feedback, error) {
	return nil, nil
}

type mockDecider struct {
	decideFunc func(ctx context.Context, req model.URLRequest) (*model.Verdict, error)
	calls      atomic.Int32
}

func (m *mockDecider) Decide(ctx context.Context, req model.URLRequest) (*model.Verdict, error) {
	m.calls.Add(1)
	return m.decideFunc(ctx, req)
}

type mockPageFetcher struct {
	fetchFunc func(ctx context.Context, pageURL string, limit int) ([]string, error)
}

func (m *mockPageFetcher) FetchLinks(ctx context.Context, pageURL string, limit int) ([]string, error) {
	return m.fetchFunc(ctx, pageURL, limit)
}

type mockInvalidator struct {
	invalidated []valueobject.Fingerprint
}

func (m *mockInvalidator) Invalidate(_ context.Context, fps ...valueobject.Fingerprint) error {
	m.invalidated = append(m.invalidated, fps...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
