// Package session defines the persistence contract for purchase sessions:
// the envelope that crosses the store boundary, the versioned payload codec
// and the schema version converter. The aggregate itself never crosses the
// store boundary; only the serialized payload does.
package session

import (
	"context"
	"time"
)

// Info is the persistence envelope. It is the only thing that crosses the
// session store boundary.
type Info struct {
	SessionID string
	Payload   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the load/save contract for session persistence.
//
// The load-mutate-save cycle carries no optimistic-concurrency token: two
// concurrent requests against the same session id can race and the later
// write wins silently. Sessions are expected to be driven by one client,
// sequentially.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Info, error)
	Save(ctx context.Context, info *Info) error
}
