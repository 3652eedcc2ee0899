package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/a11yscan/internal/model"
)

const (
	// DefaultRetention is how long a session is kept after creation.
	DefaultRetention = 2 * time.Hour

	// DefaultAmount is the report price in whole ILS.
	DefaultAmount int64 = 79

	sessionIDPrefix  = "pay_"
	sessionIDBytes   = 6
	descriptionLimit = 60
)

// CreateRequest asks for a new payment session.
type CreateRequest struct {
	URL      string
	Email    string
	Standard model.Standard
	Locale   model.Locale
}

// CreateResult is returned by Create.
type CreateResult struct {
	SessionID  string `json:"session_id"`
	PaymentURL string `json:"payment_url"`
	DemoMode   bool   `json:"demo_mode"`
}

// VerificationResult is returned by Verify.
type VerificationResult struct {
	SessionID     string              `json:"session_id"`
	Status        model.PaymentStatus `json:"status"`
	DownloadToken string              `json:"token,omitempty"`
	Email         string              `json:"email"`
	ScanURL       string              `json:"scan_url"`
	DemoMode      bool                `json:"demo_mode"`
}

// session is the live record. mu is held for the whole completion
// transition, including the gateway query.
type session struct {
	mu      sync.Mutex
	data    model.Snapshot
	removed bool
}

// Store owns all payment sessions.
// A Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	gateway     Gateway
	tokens      *Issuer
	amount      int64
	retention   time.Duration
	tokenWindow time.Duration
	frontendURL string
	backendURL  string
	onComplete  func(sessionID string)
	now         func() time.Time
	logger      *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithGateway sets the payment gateway. Without one the store runs in
// demo mode and every verification succeeds.
func WithGateway(g Gateway) StoreOption {
	return func(s *Store) {
		s.gateway = g
	}
}

// WithAmount sets the price in whole ILS.
func WithAmount(amount int64) StoreOption {
	return func(s *Store) {
		if amount > 0 {
			s.amount = amount
		}
	}
}

// WithRetention sets how long sessions are kept after creation.
func WithRetention(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithTokenWindow sets how long download tokens stay valid.
func WithTokenWindow(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.tokenWindow = d
		}
	}
}

// WithFrontendURL sets the base URL for checkout redirects.
func WithFrontendURL(u string) StoreOption {
	return func(s *Store) {
		s.frontendURL = strings.TrimRight(u, "/")
	}
}

// WithBackendURL sets the base URL the gateway posts notifications to.
func WithBackendURL(u string) StoreOption {
	return func(s *Store) {
		s.backendURL = strings.TrimRight(u, "/")
	}
}

// WithOnComplete registers a function called once per session, after it
// becomes COMPLETED. It runs outside all store locks.
func WithOnComplete(fn func(sessionID string)) StoreOption {
	return func(s *Store) {
		s.onComplete = fn
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions:    make(map[string]*session),
		amount:      DefaultAmount,
		retention:   DefaultRetention,
		tokenWindow: DefaultTokenWindow,
		frontendURL: "http://localhost:8080",
		backendURL:  "http://localhost:8080",
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = newIssuer(s.snapshot, s.tokenWindow, s.now)
	return s
}

// Tokens returns the download token issuer.
func (s *Store) Tokens() *Issuer {
	return s.tokens
}

// DemoMode reports whether the store runs without a gateway.
func (s *Store) DemoMode() bool {
	return s.gateway == nil
}

// Create opens a new PENDING session. Expired sessions are swept first;
// an expired session locked by an in-flight Verify survives until a later sweep.
func (s *Store) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	s.Sweep()

	if err := validateTarget(req.URL); err != nil {
		return nil, err
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	if req.Standard == "" {
		req.Standard = model.StandardIL5568
	}
	if req.Locale == "" {
		req.Locale = model.LocaleHE
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	data := model.Snapshot{
		SessionID:     id,
		ScanTargetURL: req.URL,
		BuyerEmail:    addr.Address,
		Amount:        s.amount,
		Currency:      model.CurrencyILS,
		Status:        model.PaymentPending,
		DemoMode:      s.DemoMode(),
		Standard:      req.Standard,
		Locale:        req.Locale,
		CreatedAt:     s.now(),
	}

	if s.gateway == nil {
		data.PaymentURL = s.successURL(id) + "&demo=1"
	} else {
		charge, err := s.gateway.CreateCharge(ctx, ChargeRequest{
			Amount:        s.amount,
			Currency:      model.CurrencyILS,
			Description:   description(req.URL),
			SuccessURL:    s.successURL(id),
			CancelURL:     s.frontendURL + "/?payment=cancelled",
			WebhookURL:    s.backendURL + "/api/v1/payment/webhook",
			CorrelationID: id,
			BuyerEmail:    addr.Address,
		})
		if err != nil {
			s.logger.Error("failed to create charge", "session_id", id, "error", err)
			return nil, err
		}
		data.PaymentURL = charge.URL
		data.RemoteChargeRef = charge.Ref
	}

	s.mu.Lock()
	s.sessions[id] = &session{data: data}
	s.mu.Unlock()

	s.logger.Info("payment session created", "session_id", id, "demo", data.DemoMode)
	return &CreateResult{SessionID: id, PaymentURL: data.PaymentURL, DemoMode: data.DemoMode}, nil
}

// Verify completes a session if the gateway confirms payment. Repeated
// calls on a COMPLETED session return the same token. A gateway failure
// leaves the session PENDING and is not reported as an error.
func (s *Store) Verify(ctx context.Context, sessionID string) (*VerificationResult, error) {
	sess := s.lookup(sessionID)
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	sess.mu.Lock()
	if sess.removed {
		sess.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	newly := false
	if !sess.data.Completed() {
		paid := s.gateway == nil
		if !paid {
			var err error
			paid, err = s.gateway.QueryCharge(ctx, sess.data.RemoteChargeRef)
			if err != nil {
				s.logger.Warn("payment verification failed", "session_id", sessionID, "error", err)
				paid = false
			}
		}
		if paid {
			if err := s.complete(sess); err != nil {
				sess.mu.Unlock()
				return nil, err
			}
			newly = true
		}
	}
	result := &VerificationResult{
		SessionID:     sess.data.SessionID,
		Status:        sess.data.Status,
		DownloadToken: sess.data.DownloadToken,
		Email:         sess.data.BuyerEmail,
		ScanURL:       sess.data.ScanTargetURL,
		DemoMode:      sess.data.DemoMode,
	}
	sess.mu.Unlock()

	if newly {
		s.completed(sessionID)
	}
	return result, nil
}

// HandleNotification applies a gateway callback. It returns true when the
// session is COMPLETED afterwards, including when it already was.
func (s *Store) HandleNotification(_ context.Context, n Notification) bool {
	if n.CorrelationID == "" {
		s.logger.Warn("notification without session id")
		return false
	}
	sess := s.lookup(n.CorrelationID)
	if sess == nil {
		s.logger.Warn("notification for unknown session", "session_id", n.CorrelationID)
		return false
	}
	if !n.Paid() {
		s.logger.Info("notification reports unpaid", "session_id", n.CorrelationID, "status", n.Status)
		return false
	}

	sess.mu.Lock()
	if sess.removed {
		sess.mu.Unlock()
		return false
	}
	if sess.data.Completed() {
		sess.mu.Unlock()
		return true
	}
	if err := s.complete(sess); err != nil {
		sess.mu.Unlock()
		s.logger.Error("failed to complete session", "session_id", n.CorrelationID, "error", err)
		return false
	}
	sess.mu.Unlock()

	s.completed(n.CorrelationID)
	return true
}

// Get returns a copy of a session.
func (s *Store) Get(sessionID string) (model.Snapshot, error) {
	snap, ok := s.snapshot(sessionID)
	if !ok {
		return model.Snapshot{}, ErrSessionNotFound
	}
	return snap, nil
}

// StoreDocument caches the rendered report and its file name for a
// session. The first stored document wins; later calls are no-ops.
func (s *Store) StoreDocument(sessionID, name string, doc []byte) error {
	sess := s.lookup(sessionID)
	if sess == nil {
		return ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.removed {
		return ErrSessionNotFound
	}
	if sess.data.CachedDocument == nil {
		sess.data.CachedDocument = append([]byte(nil), doc...)
		sess.data.DocumentName = name
	}
	return nil
}

// Sweep purges sessions older than the retention window and revokes their
// tokens. Sessions busy with a transition are left for the next sweep.
// It returns the number of purged sessions.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.retention)

	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.data.CreatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	purged := 0
	for _, id := range expired {
		sess := s.lookup(id)
		if sess == nil || !sess.mu.TryLock() {
			continue
		}
		if !sess.removed {
			sess.removed = true
			s.tokens.Revoke(sess.data.DownloadToken)
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
			purged++
		}
		sess.mu.Unlock()
	}

	if purged > 0 {
		s.logger.Debug("payment sessions purged", "count", purged)
	}
	return purged
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) lookup(sessionID string) *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

func (s *Store) snapshot(sessionID string) (model.Snapshot, bool) {
	sess := s.lookup(sessionID)
	if sess == nil {
		return model.Snapshot{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.removed {
		return model.Snapshot{}, false
	}
	return sess.data.Clone(), true
}

// complete moves a PENDING session to COMPLETED and mints its token.
// sess.mu must be held.
func (s *Store) complete(sess *session) error {
	token, err := s.tokens.Issue(sess.data.SessionID)
	if err != nil {
		return err
	}
	now := s.now()
	sess.data.Status = model.PaymentCompleted
	sess.data.CompletedAt = &now
	sess.data.DownloadToken = token
	s.logger.Info("payment completed", "session_id", sess.data.SessionID)
	return nil
}

func (s *Store) completed(sessionID string) {
	if s.onComplete != nil {
		s.onComplete(sessionID)
	}
}

func (s *Store) successURL(sessionID string) string {
	return s.frontendURL + "/payment-success.html?session_id=" + url.QueryEscape(sessionID)
}

func newSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return sessionIDPrefix + hex.EncodeToString(buf), nil
}

func validateTarget(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

func description(target string) string {
	r := []rune(target)
	if len(r) > descriptionLimit {
		r = r[:descriptionLimit]
	}
	return "דוח נגישות – " + string(r)
}
