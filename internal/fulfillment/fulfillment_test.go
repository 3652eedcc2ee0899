package fulfillment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/a11yscan/internal/mail"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/payment"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingScanner returns a fixed report and counts scans.
type countingScanner struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (s *countingScanner) Assemble(_ context.Context, rawURL string, standard model.Standard, locale model.Locale) (*model.ScanReport, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	if s.err != nil {
		return nil, s.err
	}
	return &model.ScanReport{
		ScanID:    "scan_aaaaaaaaaaaa",
		URL:       rawURL,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Standard:  standard,
		Locale:    locale,
		Score:     100,
		Risk:      model.Risk{Level: model.RiskLow},
	}, nil
}

// gatedScanner blocks until released or until its context ends.
type gatedScanner struct {
	calls   atomic.Int32
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newGatedScanner() *gatedScanner {
	return &gatedScanner{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedScanner) Assemble(ctx context.Context, rawURL string, standard model.Standard, locale model.Locale) (*model.ScanReport, error) {
	s.calls.Add(1)
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &model.ScanReport{
		ScanID:    "scan_bbbbbbbbbbbb",
		URL:       rawURL,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Standard:  standard,
		Locale:    locale,
		Score:     90,
		Risk:      model.Risk{Level: model.RiskLow},
	}, nil
}

// recordingMailer records sent messages.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

// paidSession creates a demo store with one completed session.
func paidSession(t *testing.T) (*payment.Store, string, string) {
	t.Helper()
	store := payment.NewStore(payment.WithStoreLogger(quietLogger()))
	res, err := store.Create(context.Background(), payment.CreateRequest{
		URL:    "https://example.co.il",
		Email:  "buyer@example.com",
		Locale: model.LocaleEN,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	v, err := store.Verify(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	return store, res.SessionID, v.DownloadToken
}

// TestRedeem tests exchanging a token for the document.
func TestRedeem(t *testing.T) {
	t.Parallel()

	t.Run("renders once then serves the cache", func(t *testing.T) {
		t.Parallel()
		store, id, token := paidSession(t)
		scanner := &countingScanner{}
		svc := NewService(store, store.Tokens(), scanner, WithLogger(quietLogger()))

		first, err := svc.Redeem(context.Background(), token)
		if err != nil {
			t.Fatalf("Redeem failed: %v", err)
		}
		if first.Name != "accessibility-report-scan_aaaaaaaaaaaa.md" {
			t.Errorf("got name %q", first.Name)
		}
		if !strings.HasPrefix(first.ContentType, "text/markdown") {
			t.Errorf("got content type %q", first.ContentType)
		}
		if !strings.Contains(string(first.Bytes), "https://example.co.il") {
			t.Error("expected document to mention the scanned URL")
		}

		second, err := svc.Redeem(context.Background(), token)
		if err != nil {
			t.Fatalf("second Redeem failed: %v", err)
		}
		if string(second.Bytes) != string(first.Bytes) || second.Name != first.Name {
			t.Error("expected cached document on second redeem")
		}
		if n := scanner.calls.Load(); n != 1 {
			t.Errorf("expected one scan, got %d", n)
		}

		snap, _ := store.Get(id)
		if snap.CachedDocument == nil {
			t.Error("expected document to be cached on the session")
		}
	})

	t.Run("concurrent redeems share one scan", func(t *testing.T) {
		t.Parallel()
		store, _, token := paidSession(t)
		scanner := &countingScanner{delay: 20 * time.Millisecond}
		svc := NewService(store, store.Tokens(), scanner, WithLogger(quietLogger()))

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Redeem(context.Background(), token); err != nil {
					t.Errorf("Redeem failed: %v", err)
				}
			}()
		}
		wg.Wait()

		if n := scanner.calls.Load(); n != 1 {
			t.Errorf("expected one scan, got %d", n)
		}
	})

	t.Run("cancelled caller does not fail the shared render", func(t *testing.T) {
		t.Parallel()
		store, _, token := paidSession(t)
		scanner := newGatedScanner()
		svc := NewService(store, store.Tokens(), scanner, WithLogger(quietLogger()))

		ctx, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := svc.Redeem(ctx, token)
			firstErr <- err
		}()
		<-scanner.started

		type outcome struct {
			doc *Document
			err error
		}
		second := make(chan outcome, 1)
		go func() {
			doc, err := svc.Redeem(context.Background(), token)
			second <- outcome{doc, err}
		}()

		cancel()
		if err := <-firstErr; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled for the cancelled caller, got %v", err)
		}
		close(scanner.release)

		got := <-second
		if got.err != nil {
			t.Fatalf("Redeem failed: %v", got.err)
		}
		if got.doc.Name != "accessibility-report-scan_bbbbbbbbbbbb.md" {
			t.Errorf("got name %q", got.doc.Name)
		}
		if n := scanner.calls.Load(); n != 1 {
			t.Errorf("expected one scan, got %d", n)
		}
	})

	t.Run("render timeout", func(t *testing.T) {
		t.Parallel()
		store, _, token := paidSession(t)
		svc := NewService(store, store.Tokens(), newGatedScanner(),
			WithLogger(quietLogger()), WithRenderTimeout(10*time.Millisecond))

		if _, err := svc.Redeem(context.Background(), token); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()
		store, _, _ := paidSession(t)
		svc := NewService(store, store.Tokens(), &countingScanner{}, WithLogger(quietLogger()))

		if _, err := svc.Redeem(context.Background(), "bogus"); !errors.Is(err, payment.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("scan failure keeps the session completed", func(t *testing.T) {
		t.Parallel()
		store, id, token := paidSession(t)
		svc := NewService(store, store.Tokens(), &countingScanner{err: errors.New("blocked")}, WithLogger(quietLogger()))

		if _, err := svc.Redeem(context.Background(), token); err == nil {
			t.Fatal("expected error")
		}
		snap, _ := store.Get(id)
		if !snap.Completed() {
			t.Error("expected session to stay COMPLETED")
		}
		if _, err := store.Tokens().Resolve(token); err != nil {
			t.Errorf("expected token to remain valid, got %v", err)
		}
	})
}

// TestDeliver tests emailing the report.
func TestDeliver(t *testing.T) {
	t.Parallel()

	t.Run("sends report as attachment", func(t *testing.T) {
		t.Parallel()
		store, id, _ := paidSession(t)
		mailer := &recordingMailer{}
		svc := NewService(store, store.Tokens(), &countingScanner{}, WithMailer(mailer), WithLogger(quietLogger()))

		if err := svc.Deliver(context.Background(), id); err != nil {
			t.Fatalf("Deliver failed: %v", err)
		}
		if len(mailer.sent) != 1 {
			t.Fatalf("expected one message, got %d", len(mailer.sent))
		}
		msg := mailer.sent[0]
		if msg.To != "buyer@example.com" || msg.Subject != "Your accessibility report is ready" {
			t.Errorf("unexpected message %+v", msg)
		}
		if msg.AttachmentName != "accessibility-report-scan_aaaaaaaaaaaa.md" || len(msg.Attachment) == 0 {
			t.Errorf("unexpected attachment %q (%d bytes)", msg.AttachmentName, len(msg.Attachment))
		}
	})

	t.Run("mail failures are swallowed", func(t *testing.T) {
		t.Parallel()

		for _, mailErr := range []error{mail.ErrNotConfigured, &mail.DeliveryError{Op: "send", Err: errors.New("refused")}} {
			store, id, _ := paidSession(t)
			svc := NewService(store, store.Tokens(), &countingScanner{}, WithMailer(&recordingMailer{err: mailErr}), WithLogger(quietLogger()))

			if err := svc.Deliver(context.Background(), id); err != nil {
				t.Errorf("expected nil for %v, got %v", mailErr, err)
			}
			snap, _ := store.Get(id)
			if !snap.Completed() {
				t.Error("expected session to stay COMPLETED")
			}
		}
	})

	t.Run("no mailer", func(t *testing.T) {
		t.Parallel()
		store, id, _ := paidSession(t)
		svc := NewService(store, store.Tokens(), &countingScanner{}, WithLogger(quietLogger()))

		if err := svc.Deliver(context.Background(), id); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("pending session", func(t *testing.T) {
		t.Parallel()
		store := payment.NewStore(payment.WithStoreLogger(quietLogger()))
		res, err := store.Create(context.Background(), payment.CreateRequest{URL: "https://example.co.il", Email: "a@example.com"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		svc := NewService(store, store.Tokens(), &countingScanner{}, WithLogger(quietLogger()))

		if err := svc.Deliver(context.Background(), res.SessionID); !errors.Is(err, ErrNotCompleted) {
			t.Errorf("expected ErrNotCompleted, got %v", err)
		}
	})
}
