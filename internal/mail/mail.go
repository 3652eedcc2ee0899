package mail

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrNotConfigured is returned when no SMTP host or sender is set.
var ErrNotConfigured = errors.New("mail delivery is not configured")

// DeliveryError reports a transient failure talking to the mail server.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail delivery failed: %s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Message is one outgoing email with an optional attachment.
type Message struct {
	To             string
	Subject        string
	HTMLBody       string
	Attachment     []byte
	AttachmentName string
	AttachmentType string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay. Authentication is used
// when a username is configured; the server must then offer STARTTLS.
type SMTPMailer struct {
	cfg      SMTPConfig
	attempts uint64
	backoff  time.Duration
	logger   *slog.Logger
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Option configures an SMTPMailer.
type Option func(*SMTPMailer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *SMTPMailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRetry sets how many times a failed delivery is attempted in total
// and the initial backoff between attempts.
func WithRetry(attempts uint64, backoff time.Duration) Option {
	return func(m *SMTPMailer) {
		if attempts > 0 {
			m.attempts = attempts
		}
		if backoff > 0 {
			m.backoff = backoff
		}
	}
}

// NewSMTPMailer creates a mailer. Configuration is checked on Send.
func NewSMTPMailer(cfg SMTPConfig, opts ...Option) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	m := &SMTPMailer{
		cfg:      cfg,
		attempts: 3,
		backoff:  time.Second,
		logger:   slog.Default(),
		send:     smtp.SendMail,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configured reports whether the mailer can send.
func (m *SMTPMailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.From != ""
}

// Send delivers msg, retrying transient failures with exponential backoff.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	from, err := mail.ParseAddress(m.cfg.From)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	body, err := Build(from.String(), to.Address, msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	backoff := retry.WithMaxRetries(m.attempts-1, retry.NewExponential(m.backoff))
	attempt := 0
	err = retry.Do(ctx, backoff, func(_ context.Context) error {
		attempt++
		if err := m.send(addr, auth, from.Address, []string{to.Address}, body); err != nil {
			m.logger.Debug("mail attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return &DeliveryError{Op: "send", Err: err}
	}

	m.logger.Info("mail sent", "attempts", attempt)
	return nil
}

// Build renders msg as a MIME message. With an attachment the message is
// multipart/mixed; otherwise it is a single text/html part.
func Build(from, to string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	header := textproto.MIMEHeader{}
	header.Set("From", from)
	header.Set("To", to)
	header.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header.Set("MIME-Version", "1.0")

	if len(msg.Attachment) == 0 {
		header.Set("Content-Type", "text/html; charset=utf-8")
		header.Set("Content-Transfer-Encoding", "base64")
		writeHeader(&buf, header)
		writeBase64(&buf, []byte(msg.HTMLBody))
		return buf.Bytes(), nil
	}

	boundary, err := newBoundary()
	if err != nil {
		return nil, err
	}
	header.Set("Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": boundary}))
	writeHeader(&buf, header)

	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("failed to set boundary: %w", err)
	}

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create body part: %w", err)
	}
	writeBase64(part, []byte(msg.HTMLBody))

	contentType := msg.AttachmentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	part, err = mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": msg.AttachmentName})},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment part: %w", err)
	}
	writeBase64(part, msg.Attachment)

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(w *bytes.Buffer, header textproto.MIMEHeader) {
	for _, k := range []string{"From", "To", "Subject", "MIME-Version", "Content-Type", "Content-Transfer-Encoding"} {
		if v := header.Get(k); v != "" {
			fmt.Fprintf(w, "%s: %s\r\n", k, v)
		}
	}
	w.WriteString("\r\n")
}

// writeBase64 writes data base64-encoded in 76 character lines.
func writeBase64(w io.Writer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		_, _ = w.Write([]byte(encoded[:76] + "\r\n"))
		encoded = encoded[76:]
	}
	_, _ = w.Write([]byte(encoded + "\r\n"))
}

func newBoundary() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate boundary: %w", err)
	}
	return "a11yscan-" + hex.EncodeToString(buf), nil
}
