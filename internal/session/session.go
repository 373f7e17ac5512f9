// Package session provides per-user conversation session storage with expiry.
//
// A session is a JSON blob of conversation state plus bounded message
// history, keyed by the user's canonical phone number. Backends are a
// Redis store for deployments and an in-memory store for tests and
// single-process development.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Luks-code/luna-sub000/internal/models"
)

// DefaultTTL is the session expiry applied when none is configured.
const DefaultTTL = 30 * time.Minute

// Store is the session store contract consumed by the orchestrator.
// Get returns nil with no error when no session exists; expiry and
// first-contact are indistinguishable to callers.
type Store interface {
	Get(ctx context.Context, userID string) (*models.SessionBlob, error)
	Put(ctx context.Context, userID string, blob *models.SessionBlob) error
	Delete(ctx context.Context, userID string) error
}

// decodeBlob parses a stored session payload. It tolerates the legacy
// payload shape (a bare ConversationState with no history wrapper) by
// treating it as state with empty history. This is a one-time migration
// read-path; writes always use the wrapped shape.
func decodeBlob(payload []byte) (*models.SessionBlob, error) {
	var blob models.SessionBlob
	if err := json.Unmarshal(payload, &blob); err != nil {
		return nil, err
	}
	if blob.State.Mode != "" {
		if blob.MessageHistory == nil {
			blob.MessageHistory = []models.ConversationMessage{}
		}
		return &blob, nil
	}

	// No "state" wrapper present: try the legacy bare-state shape.
	var legacy models.ConversationState
	if err := json.Unmarshal(payload, &legacy); err != nil || legacy.Mode == "" {
		// Neither shape decoded to something usable; start fresh rather
		// than failing the turn on a corrupt payload.
		slog.Warn("session.decodeBlob: unrecognized session payload, starting fresh")
		return models.NewSessionBlob(), nil
	}
	slog.Debug("session.decodeBlob: migrated legacy bare-state payload")
	return &models.SessionBlob{
		State:          legacy,
		MessageHistory: []models.ConversationMessage{},
	}, nil
}
