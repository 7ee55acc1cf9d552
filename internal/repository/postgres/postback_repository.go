package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostbackAttempt records one delivery attempt against a merchant postback URL.
type PostbackAttempt struct {
	ID          uuid.UUID
	SessionID   string
	PostbackURL string
	Attempt     int
	StatusCode  int
	Success     bool
	LastError   string
	AttemptedAt time.Time
}

// PostbackRepository logs postback delivery attempts in PostgreSQL.
type PostbackRepository struct {
	pool *pgxpool.Pool
}

// NewPostbackRepository creates a new PostbackRepository.
func NewPostbackRepository(pool *pgxpool.Pool) *PostbackRepository {
	return &PostbackRepository{pool: pool}
}

// RecordAttempt inserts a delivery attempt row.
func (r *PostbackRepository) RecordAttempt(ctx context.Context, a *PostbackAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO postback_attempts
		 (id, session_id, postback_url, attempt, status_code, success, last_error, attempted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.SessionID, a.PostbackURL, a.Attempt, a.StatusCode, a.Success, a.LastError, a.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert postback attempt: %w", err)
	}
	return nil
}

// ListBySessionID returns all attempts for a session, oldest first.
func (r *PostbackRepository) ListBySessionID(ctx context.Context, sessionID string) ([]PostbackAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, postback_url, attempt, status_code, success, last_error, attempted_at
		 FROM postback_attempts WHERE session_id = $1 ORDER BY attempted_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list postback attempts: %w", err)
	}
	defer rows.Close()

	var attempts []PostbackAttempt
	for rows.Next() {
		var a PostbackAttempt
		if err := rows.Scan(&a.ID, &a.SessionID, &a.PostbackURL, &a.Attempt, &a.StatusCode, &a.Success, &a.LastError, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scan postback attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postback attempts: %w", err)
	}
	return attempts, nil
}
