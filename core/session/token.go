package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tbaiguzhinov/pizza-bot/core/logger"
)

const tokenKey = "catalog:token"

// Token is the catalog bearer token with its absolute expiry.
type Token struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// AuthFunc obtains a fresh token from the catalog authentication endpoint.
type AuthFunc func(ctx context.Context) (Token, error)

// TokenManager owns the process-wide catalog token lifecycle. The token is
// persisted in the Store as a single JSON record so reads never observe a
// half-written value/expiry pair. Refresh is serialized by a mutex;
// authenticating twice is harmless so concurrent callers after a store
// race merely waste one request.
type TokenManager struct {
	store Store
	auth  AuthFunc
	now   func() time.Time

	mu sync.Mutex
}

// NewTokenManager constructs a manager backed by the given store and
// authentication call.
func NewTokenManager(store Store, auth AuthFunc) *TokenManager {
	return &TokenManager{store: store, auth: auth, now: time.Now}
}

// Token returns a bearer token valid at the time of the call, refreshing
// it first when the stored expiry has passed.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	tok, ok, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	if ok && m.now().Unix() < tok.ExpiresAt {
		return tok.Value, nil
	}
	return m.refresh(ctx)
}

// Prime forces an initial authentication, seeding the stored token before
// the first inbound event is served.
func (m *TokenManager) Prime(ctx context.Context) error {
	_, err := m.refresh(ctx)
	return err
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if tok, ok, err := m.load(ctx); err != nil {
		return "", err
	} else if ok && m.now().Unix() < tok.ExpiresAt {
		return tok.Value, nil
	}

	tok, err := m.auth(ctx)
	if err != nil {
		return "", fmt.Errorf("authenticate catalog: %w", err)
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	if err := m.store.Set(ctx, tokenKey, raw); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	logger.Info(ctx, "session", "token.refreshed",
		slog.Int64("expires_at", tok.ExpiresAt),
	)
	return tok.Value, nil
}

func (m *TokenManager) load(ctx context.Context) (Token, bool, error) {
	raw, err := m.store.Get(ctx, tokenKey)
	if err != nil {
		return Token{}, false, fmt.Errorf("load token: %w", err)
	}
	if len(raw) == 0 {
		return Token{}, false, nil
	}
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		// corrupt record forces re-authentication
		return Token{}, false, nil
	}
	return tok, tok.Value != "", nil
}
