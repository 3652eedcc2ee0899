package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Renderer opens rendering sessions.
type Renderer interface {
	// Open acquires a session. The caller must Close it.
	Open(ctx context.Context) (Session, error)
}

// Session is one page-loading context.
type Session interface {
	// Navigate loads the page at rawURL.
	Navigate(ctx context.Context, rawURL string) error

	// Document returns the loaded page.
	Document() (*Document, error)

	// Close releases the session. It is safe to call more than once.
	Close() error
}

const (
	defaultUserAgent      = "Mozilla/5.0 (compatible; a11yscan/1.0; +https://github.com/nao1215/a11yscan)"
	defaultMaxBodySize    = 5 * 1024 * 1024
	defaultMaxRedirects   = 10
	defaultMaxStyleSheets = 5
)

// HTTPRenderer loads pages over HTTP and parses them without executing
// scripts. It is safe for concurrent use.
type HTTPRenderer struct {
	client         *http.Client
	userAgent      string
	maxBodySize    int64
	maxStyleSheets int
	logger         *slog.Logger
}

// Option configures an HTTPRenderer.
type Option func(*HTTPRenderer)

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(client *http.Client) Option {
	return func(r *HTTPRenderer) {
		r.client = client
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *HTTPRenderer) {
		r.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(r *HTTPRenderer) {
		if size > 0 {
			r.maxBodySize = size
		}
	}
}

// WithMaxStyleSheets limits how many linked style sheets are fetched per
// page. Zero disables fetching.
func WithMaxStyleSheets(n int) Option {
	return func(r *HTTPRenderer) {
		if n >= 0 {
			r.maxStyleSheets = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *HTTPRenderer) {
		r.logger = logger
	}
}

// NewHTTPRenderer creates a renderer with sane defaults.
func NewHTTPRenderer(opts ...Option) *HTTPRenderer {
	r := &HTTPRenderer{
		userAgent:      defaultUserAgent,
		maxBodySize:    defaultMaxBodySize,
		maxStyleSheets: defaultMaxStyleSheets,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= defaultMaxRedirects {
					return fmt.Errorf("stopped after %d redirects", defaultMaxRedirects)
				}
				return nil
			},
		}
	}
	return r
}

// Open returns a new session.
func (r *HTTPRenderer) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyTransportError(err)
	}
	return &httpSession{renderer: r}, nil
}

type httpSession struct {
	renderer *HTTPRenderer

	mu     sync.Mutex
	doc    *Document
	closed bool
}

// Navigate fetches and parses the page, then fetches linked style sheets
// best-effort.
func (s *httpSession) Navigate(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: invalid URL %q", ErrNavigation, rawURL)
	}

	body, resp, err := s.renderer.fetch(ctx, u.String(), "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return err
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		return err
	}
	if !isHTML(resp.Header.Get("Content-Type"), body) {
		return fmt.Errorf("%w: %s", ErrNotHTML, resp.Header.Get("Content-Type"))
	}

	doc, err := Parse(resp.Request.URL.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	doc.StatusCode = resp.StatusCode

	s.renderer.loadStyleSheets(ctx, doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.doc = doc
	return nil
}

func (s *httpSession) Document() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.doc == nil {
		return nil, ErrNoDocument
	}
	return s.doc, nil
}

func (s *httpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.doc = nil
	return nil
}

// fetch performs a GET and reads at most maxBodySize bytes of the body.
func (r *HTTPRenderer) fetch(ctx context.Context, target, accept string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "he,en;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize))
	if err != nil {
		return nil, nil, classifyTransportError(err)
	}
	return body, resp, nil
}

// loadStyleSheets adds linked style sheets to doc. Failures are logged and
// ignored.
func (r *HTTPRenderer) loadStyleSheets(ctx context.Context, doc *Document) {
	links := doc.LinkedStyleSheets()
	if len(links) > r.maxStyleSheets {
		links = links[:r.maxStyleSheets]
	}
	for _, href := range links {
		if ctx.Err() != nil {
			return
		}
		body, resp, err := r.fetch(ctx, href, "text/css,*/*;q=0.1")
		if err != nil {
			r.logger.Debug("style sheet fetch failed", "url", href, "error", err)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			r.logger.Debug("style sheet fetch failed", "url", href, "status", resp.StatusCode)
			continue
		}
		doc.AddStyleSheet(string(body))
	}
}

// checkStatus maps an HTTP status to a navigation error.
func checkStatus(code int) error {
	switch {
	case code >= 200 && code <= 299:
		return nil
	case code == http.StatusUnauthorized,
		code == http.StatusForbidden,
		code == http.StatusTooManyRequests,
		code == http.StatusUnavailableForLegalReasons:
		return fmt.Errorf("%w: status %d", ErrBlocked, code)
	default:
		return fmt.Errorf("%w: status %d", ErrNavigation, code)
	}
}

// classifyTransportError wraps client errors with a sentinel.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNavigation, err)
}

func isHTML(contentType string, body []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
