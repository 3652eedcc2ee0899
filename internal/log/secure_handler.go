package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// secretKeys are attribute keys whose values are always fully masked.
var secretKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,

	"password":      true,
	"smtp_password": true,
	"secret":        true,
	"token":         true,
	"pdf_token":     true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"page_code":     true,
	"pagecode":      true,
	"user_id":       true,
	"userid":        true,
}

// partialKeys are attribute keys whose values are shortened, keeping
// enough to correlate log lines.
var partialKeys = map[string]bool{
	"session_id":  true,
	"sessionid":   true,
	"email":       true,
	"buyer_email": true,
	"to":          true,
}

// secretKeywords mark a key as secret when they appear anywhere in it.
// The bare word "key" is not one of them.
var secretKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// secretPatterns mark a string value as secret regardless of its key.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^[A-Za-z0-9]{32,}$`),
	// unpadded base64url of 32 or more random bytes, as download tokens are
	regexp.MustCompile(`^[A-Za-z0-9_-]{43,}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

var emailPattern = regexp.MustCompile(`([A-Za-z0-9._%+-])[A-Za-z0-9._%+-]*@([A-Za-z0-9.-]+\.[A-Za-z]{2,})`)

// MaskValue replaces secret values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks secrets before records
// reach it. Download tokens, gateway credentials and SMTP passwords are
// fully masked; session ids and email addresses are shortened.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler wraps slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs masks attrs before attaching them.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized)}
}

// WithGroup delegates to the wrapped handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			sanitized[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	key := strings.ToLower(a.Key)
	if secretKeys[key] || containsSecretKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	value := a.Value.String()
	if partialKeys[key] {
		return slog.String(a.Key, shorten(value))
	}
	if isSecretValue(value) {
		return slog.String(a.Key, MaskValue)
	}
	if emailPattern.MatchString(value) {
		return slog.String(a.Key, maskEmails(value))
	}
	return a
}

func containsSecretKeyword(key string) bool {
	for _, keyword := range secretKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSecretValue(value string) bool {
	for _, pattern := range secretPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// shorten keeps an email's first letter and domain, or the first eight
// characters of anything else.
func shorten(value string) string {
	if strings.Contains(value, "@") {
		return maskEmails(value)
	}
	const keep = 8
	if len(value) <= keep {
		return value
	}
	return value[:keep] + "***"
}

func maskEmails(value string) string {
	return emailPattern.ReplaceAllString(value, "$1***@$2")
}

func newLogger(handler slog.Handler) *slog.Logger {
	return slog.New(NewSecureHandler(handler))
}

// NewSecureLogger returns a text logger for command line use. It logs at
// Debug when verbose and at Warn otherwise.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return newLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewSecureJSONLogger returns a JSON logger for the server. It logs at
// Debug when verbose and at Info otherwise.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return newLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
