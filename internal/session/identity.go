// Package session issues the per-tab session token the storefront API keys cart
// state by.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/logging"
	"storefront/internal/store"

	"github.com/google/uuid"
)

// StorageKey is where the token lives in the tab-scoped store.
const StorageKey = "session-id"

// Token is an opaque session identifier.
type Token string

func (t Token) String() string { return string(t) }

// Identity hands out the session token, creating it on first use.
type Identity struct {
	mu    sync.Mutex
	store store.KV
	now   func() time.Time
}

// NewIdentity returns an Identity backed by a tab-scoped store.
func NewIdentity(kv store.KV) *Identity {
	return &Identity{store: kv, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (i *Identity) WithClock(now func() time.Time) *Identity {
	i.now = now
	return i
}

// GetOrCreate returns the stored token, generating and storing one if absent.
// Once set the token is never regenerated.
func (i *Identity) GetOrCreate() (Token, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	existing, ok, err := i.store.Get(StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	if ok && existing != "" {
		return Token(existing), nil
	}

	tok := newToken(i.now())
	if err := i.store.Set(StorageKey, string(tok)); err != nil {
		return "", fmt.Errorf("failed to store session token: %w", err)
	}
	logging.Session("issued session token %s", tok)
	logging.AuditWithSession(tok.String()).SessionCreate(tok.String())
	return tok, nil
}

// GetOrCreateSessionID is the package-level form of Identity.GetOrCreate.
func GetOrCreateSessionID(kv store.KV) (Token, error) {
	return NewIdentity(kv).GetOrCreate()
}

// newToken builds "session-<unix millis>-<9 char suffix>".
func newToken(now time.Time) Token {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return Token(fmt.Sprintf("session-%d-%s", now.UnixMilli(), suffix))
}
