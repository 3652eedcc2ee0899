package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nao1215/a11yscan/internal/mail"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
	"github.com/nao1215/a11yscan/internal/report"
)

// ErrNotCompleted is returned when delivery is requested for an unpaid
// session.
var ErrNotCompleted = errors.New("payment session is not completed")

const defaultRenderTimeout = 2 * time.Minute

// Document is a rendered report ready for download.
type Document struct {
	Name        string
	ContentType string
	Bytes       []byte
}

// SessionStore is the part of the payment store delivery needs.
type SessionStore interface {
	Get(sessionID string) (model.Snapshot, error)
	StoreDocument(sessionID, name string, doc []byte) error
}

// TokenResolver maps a download token to its paid session.
type TokenResolver interface {
	Resolve(token string) (model.Snapshot, error)
}

// Service turns paid sessions into report documents.
type Service struct {
	sessions SessionStore
	tokens   TokenResolver
	scanner  pipeline.Scanner
	mailer   mail.Mailer
	logger   *slog.Logger
	renders  singleflight.Group

	renderTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMailer sets the mailer used by Deliver.
func WithMailer(m mail.Mailer) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderTimeout bounds one scan and render of a paid report.
func WithRenderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.renderTimeout = d
		}
	}
}

// NewService creates a Service.
func NewService(sessions SessionStore, tokens TokenResolver, scanner pipeline.Scanner, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		tokens:   tokens,
		scanner:  scanner,
		logger:   slog.Default(),

		renderTimeout: defaultRenderTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Redeem returns the document a download token grants. The first
// redemption scans the page and caches the document on the session; later
// ones return the cached copy.
func (s *Service) Redeem(ctx context.Context, token string) (*Document, error) {
	snap, err := s.tokens.Resolve(token)
	if err != nil {
		return nil, err
	}
	return s.document(ctx, snap)
}

// Deliver emails the report for a completed session. Mail failures are
// logged and do not affect the payment; only render failures are
// returned.
func (s *Service) Deliver(ctx context.Context, sessionID string) error {
	snap, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if !snap.Completed() {
		return ErrNotCompleted
	}

	doc, err := s.document(ctx, snap)
	if err != nil {
		return err
	}

	if s.mailer == nil {
		s.logger.Warn("report not emailed", "session_id", sessionID, "error", mail.ErrNotConfigured)
		return nil
	}

	err = s.mailer.Send(ctx, message(snap, doc))
	switch {
	case err == nil:
		s.logger.Info("report emailed", "session_id", sessionID)
	case errors.Is(err, mail.ErrNotConfigured):
		s.logger.Warn("report not emailed", "session_id", sessionID, "error", err)
	default:
		s.logger.Error("failed to email report", "session_id", sessionID, "error", err)
	}
	return nil
}

func (s *Service) document(ctx context.Context, snap model.Snapshot) (*Document, error) {
	if snap.CachedDocument != nil {
		return cached(snap), nil
	}

	// The render outlives the caller that started it. A cancelled caller
	// stops waiting; the other waiters still get the document.
	ch := s.renders.DoChan(snap.SessionID, func() (any, error) {
		current, err := s.sessions.Get(snap.SessionID)
		if err == nil && current.CachedDocument != nil {
			return cached(current), nil
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.renderTimeout)
		defer cancel()
		r, err := s.scanner.Assemble(rctx, snap.ScanTargetURL, snap.Standard, snap.Locale)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", snap.ScanTargetURL, err)
		}
		data, err := report.Render(r)
		if err != nil {
			return nil, fmt.Errorf("failed to render report: %w", err)
		}
		name := report.FileName(r)
		if err := s.sessions.StoreDocument(snap.SessionID, name, data); err != nil {
			s.logger.Warn("failed to cache report", "session_id", snap.SessionID, "error", err)
		}
		return &Document{Name: name, ContentType: report.ContentTypeMarkdown, Bytes: data}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.logger.Error("report generation failed", "session_id", snap.SessionID, "error", res.Err)
			return nil, res.Err
		}
		return res.Val.(*Document), nil
	}
}

func cached(snap model.Snapshot) *Document {
	return &Document{
		Name:        snap.DocumentName,
		ContentType: report.ContentTypeMarkdown,
		Bytes:       snap.CachedDocument,
	}
}

func message(snap model.Snapshot, doc *Document) mail.Message {
	subject := "דוח הנגישות שלך מוכן"
	body := "<p>שלום,</p><p>מצורף דוח הנגישות עבור %s.</p><p>הדוח מבוסס על סריקה אוטומטית ואינו מהווה ייעוץ משפטי.</p>"
	if snap.Locale == model.LocaleEN {
		subject = "Your accessibility report is ready"
		body = "<p>Hello,</p><p>Attached is the accessibility report for %s.</p><p>The report is based on an automated scan and is not legal advice.</p>"
	}
	return mail.Message{
		To:             snap.BuyerEmail,
		Subject:        subject,
		HTMLBody:       fmt.Sprintf(body, html.EscapeString(snap.ScanTargetURL)),
		Attachment:     doc.Bytes,
		AttachmentName: doc.Name,
		AttachmentType: doc.ContentType,
	}
}
