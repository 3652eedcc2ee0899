package payment

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

// TestTokenWindow tests resolution around the expiry boundary.
func TestTokenWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		valid   bool
	}{
		{name: "immediately", elapsed: 0, valid: true},
		{name: "29 minutes", elapsed: 29 * time.Minute, valid: true},
		{name: "exactly 30 minutes", elapsed: 30 * time.Minute, valid: false},
		{name: "31 minutes", elapsed: 31 * time.Minute, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clock := newFakeClock()
			s := NewStore(WithClock(clock.Now), WithStoreLogger(quietLogger()))
			id := createSession(t, s)

			res, err := s.Verify(context.Background(), id)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			clock.Advance(tt.elapsed)

			snap, err := s.Tokens().Resolve(res.DownloadToken)
			if tt.valid {
				if err != nil {
					t.Fatalf("expected token to resolve, got %v", err)
				}
				if snap.SessionID != id {
					t.Errorf("got session %q, expected %q", snap.SessionID, id)
				}
				return
			}
			if !errors.Is(err, ErrTokenNotFound) || !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrTokenNotFound, got %v", err)
			}
			if n := s.Tokens().Len(); n != 0 {
				t.Errorf("expected expired mapping to be removed, %d left", n)
			}
		})
	}
}

// TestTokenResolve tests the remaining resolution paths.
func TestTokenResolve(t *testing.T) {
	t.Parallel()

	t.Run("unknown and empty tokens", func(t *testing.T) {
		t.Parallel()
		s := NewStore(WithStoreLogger(quietLogger()))
		for _, tok := range []string{"", "not-a-token"} {
			if _, err := s.Tokens().Resolve(tok); !errors.Is(err, ErrTokenNotFound) {
				t.Errorf("Resolve(%q): expected ErrTokenNotFound, got %v", tok, err)
			}
		}
	})

	t.Run("returns cached document", func(t *testing.T) {
		t.Parallel()
		s := NewStore(WithStoreLogger(quietLogger()))
		id := createSession(t, s)
		res, _ := s.Verify(context.Background(), id)
		if err := s.StoreDocument(id, "report.md", []byte("# report")); err != nil {
			t.Fatalf("StoreDocument failed: %v", err)
		}

		snap, err := s.Tokens().Resolve(res.DownloadToken)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if string(snap.CachedDocument) != "# report" {
			t.Errorf("got document %q", snap.CachedDocument)
		}
	})

	t.Run("revoked token", func(t *testing.T) {
		t.Parallel()
		s := NewStore(WithStoreLogger(quietLogger()))
		id := createSession(t, s)
		res, _ := s.Verify(context.Background(), id)

		s.Tokens().Revoke(res.DownloadToken)
		if _, err := s.Tokens().Resolve(res.DownloadToken); !errors.Is(err, ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("token for pending session", func(t *testing.T) {
		t.Parallel()
		s := NewStore(WithGateway(&fakeGateway{}), WithStoreLogger(quietLogger()))
		id := createSession(t, s)

		tok, err := s.Tokens().Issue(id)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if _, err := s.Tokens().Resolve(tok); !errors.Is(err, ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})
}

// TestTokenIssue tests the token format.
func TestTokenIssue(t *testing.T) {
	t.Parallel()

	s := NewStore(WithStoreLogger(quietLogger()))
	a, err := s.Tokens().Issue("pay_a")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	b, _ := s.Tokens().Issue("pay_a")
	if a == b {
		t.Error("expected distinct tokens")
	}

	raw, err := base64.RawURLEncoding.DecodeString(a)
	if err != nil {
		t.Fatalf("token is not unpadded base64url: %v", err)
	}
	if len(raw) != tokenBytes {
		t.Errorf("got %d random bytes, expected %d", len(raw), tokenBytes)
	}
}
