package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
	"github.com/bibbank/phishguard/pkg/events"
)

// VerdictStore is the key-value backend of the result cache.
// Get returns nil, nil on a miss.
type VerdictStore interface {
	Get(ctx context.Context, fp valueobject.Fingerprint) (*model.CacheEntry, error)
	Put(ctx context.Context, entry model.CacheEntry) error
	Delete(ctx context.Context, fps ...valueobject.Fingerprint) error
}

// FeedbackRepository persists user feedback on verdicts.
type FeedbackRepository interface {
	Save(ctx context.Context, feedback *model.Feedback) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Feedback, error)
	FindByURL(ctx context.Context, url string, limit int) ([]*model.Feedback, error)
}

// EventPublisher defines the interface for publishing domain events.
type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}
