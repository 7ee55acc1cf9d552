package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
)

// ArchivedSession is a durable copy of a terminal session payload. The live
// session in Redis expires with its TTL; the archive does not.
type ArchivedSession struct {
	SessionID  string
	State      string
	Payload    string
	ArchivedAt time.Time
}

// ArchiveRepository stores terminal session payloads in PostgreSQL.
type ArchiveRepository struct {
	pool *pgxpool.Pool
}

// NewArchiveRepository creates a new ArchiveRepository.
func NewArchiveRepository(pool *pgxpool.Pool) *ArchiveRepository {
	return &ArchiveRepository{pool: pool}
}

// Archive upserts the terminal payload for a session. Re-archiving the same
// session overwrites the previous row; terminal payloads only move forward.
func (r *ArchiveRepository) Archive(ctx context.Context, sessionID, state, payload string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_archive (session_id, state, payload, archived_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id)
		 DO UPDATE SET state = EXCLUDED.state, payload = EXCLUDED.payload, archived_at = EXCLUDED.archived_at`,
		sessionID, state, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}
	return nil
}

// GetBySessionID retrieves an archived session.
func (r *ArchiveRepository) GetBySessionID(ctx context.Context, sessionID string) (*ArchivedSession, error) {
	var a ArchivedSession
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, state, payload, archived_at
		 FROM session_archive WHERE session_id = $1`,
		sessionID,
	).Scan(&a.SessionID, &a.State, &a.Payload, &a.ArchivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get archived session: %w", err)
	}
	return &a, nil
}
