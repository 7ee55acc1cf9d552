package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/session"
	"github.com/rs/zerolog"
)

// sessionGateway wraps the session store with the serialize/convert steps so
// handlers only see the aggregate.
type sessionGateway struct {
	store session.Store
	log   zerolog.Logger
}

func newSessionGateway(store session.Store, log zerolog.Logger) *sessionGateway {
	return &sessionGateway{store: store, log: log}
}

// load fetches and rehydrates the aggregate, migrating older payloads to the
// current schema version on the way in.
func (g *sessionGateway) load(ctx context.Context, sessionID string) (*purchase.PurchaseProcess, error) {
	info, err := g.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	p, err := session.Deserialize(info.Payload)
	if err != nil {
		return nil, fmt.Errorf("rehydrate session %s: %w", sessionID, err)
	}
	return p, nil
}

// persist writes the aggregate back. Handlers call this in a deferred path so
// partial progress, such as an appended transaction before a late validation
// error, is never lost.
func (g *sessionGateway) persist(ctx context.Context, p *purchase.PurchaseProcess) {
	if p == nil {
		return
	}
	payload, err := session.Serialize(p)
	if err != nil {
		g.log.Error().Err(err).Str("session_id", p.SessionID.String()).Msg("Failed to serialize session")
		return
	}
	info := &session.Info{
		SessionID: p.SessionID.String(),
		Payload:   payload,
		CreatedAt: p.CreatedAt,
		UpdatedAt: time.Now(),
	}
	if err := g.store.Save(ctx, info); err != nil {
		g.log.Error().Err(err).Str("session_id", p.SessionID.String()).Msg("Failed to persist session")
	}
}

// payloadOf serializes without saving, for archiving terminal sessions.
func (g *sessionGateway) payloadOf(p *purchase.PurchaseProcess) (string, error) {
	return session.Serialize(p)
}
