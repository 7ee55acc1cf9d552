package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/session"
)

const sessionKeyPrefix = "purchase:session:"

// SessionRepository persists session envelopes in Redis with a TTL.
// Saves are plain SETs; there is no concurrency token, the last write wins.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{client: client, ttl: ttl}
}

type sessionRecord struct {
	SessionID string    `json:"sessionId"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *SessionRepository) Load(ctx context.Context, sessionID string) (*session.Info, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session record %s: %w", sessionID, err)
	}

	return &session.Info{
		SessionID: rec.SessionID,
		Payload:   rec.Payload,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (r *SessionRepository) Save(ctx context.Context, info *session.Info) error {
	now := time.Now().UTC()
	rec := sessionRecord{
		SessionID: info.SessionID,
		Payload:   info.Payload,
		CreatedAt: info.CreatedAt,
		UpdatedAt: now,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session record %s: %w", info.SessionID, err)
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+info.SessionID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", info.SessionID, err)
	}
	return nil
}
