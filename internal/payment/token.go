package payment

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/a11yscan/internal/model"
)

const (
	// DefaultTokenWindow is how long a download token stays valid after
	// the payment completes.
	DefaultTokenWindow = 30 * time.Minute

	// tokenBytes is the amount of randomness in a token.
	tokenBytes = 32
)

// sessionLookup returns a copy of a live session.
type sessionLookup func(sessionID string) (model.Snapshot, bool)

// Issuer mints and resolves one-time download tokens.
// Tokens are kept only as SHA3-256 digests. A token refers to its session
// weakly: once the session is purged the token no longer resolves.
type Issuer struct {
	mu     sync.Mutex
	tokens map[[32]byte]string

	window time.Duration
	now    func() time.Time
	lookup sessionLookup
}

func newIssuer(lookup sessionLookup, window time.Duration, now func() time.Time) *Issuer {
	return &Issuer{
		tokens: make(map[[32]byte]string),
		window: window,
		now:    now,
		lookup: lookup,
	}
}

func digest(token string) [32]byte {
	return sha3.Sum256([]byte(token))
}

// Issue mints a new unguessable token bound to sessionID.
func (i *Issuer) Issue(sessionID string) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	i.mu.Lock()
	i.tokens[digest(token)] = sessionID
	i.mu.Unlock()

	return token, nil
}

// Resolve returns the session a token grants access to, including the
// cached document if one has been stored. The token is valid only while
// the session is COMPLETED and less than the token window has passed since
// completion. Expired or orphaned tokens are removed.
func (i *Issuer) Resolve(token string) (model.Snapshot, error) {
	if token == "" {
		return model.Snapshot{}, ErrTokenNotFound
	}
	key := digest(token)

	i.mu.Lock()
	sessionID, ok := i.tokens[key]
	i.mu.Unlock()
	if !ok {
		return model.Snapshot{}, ErrTokenNotFound
	}

	snap, ok := i.lookup(sessionID)
	if !ok || !snap.Completed() || snap.CompletedAt == nil || i.now().Sub(*snap.CompletedAt) >= i.window {
		i.mu.Lock()
		delete(i.tokens, key)
		i.mu.Unlock()
		return model.Snapshot{}, ErrTokenNotFound
	}

	return snap, nil
}

// Revoke removes a token. Unknown tokens are ignored.
func (i *Issuer) Revoke(token string) {
	if token == "" {
		return
	}
	i.mu.Lock()
	delete(i.tokens, digest(token))
	i.mu.Unlock()
}

// Len returns the number of live token mappings.
func (i *Issuer) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.tokens)
}
