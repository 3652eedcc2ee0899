package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nao1215/a11yscan/internal/fulfillment"
	"github.com/nao1215/a11yscan/internal/payment"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

const (
	defaultMaxRequestBody  = 1 << 20 // 1MB
	defaultShutdownTimeout = 15 * time.Second
	defaultDeliveryTimeout = 3 * time.Minute
	readHeaderTimeout      = 10 * time.Second
)

// Payments is the payment session store as seen by the HTTP layer.
type Payments interface {
	Create(ctx context.Context, req payment.CreateRequest) (*payment.CreateResult, error)
	Verify(ctx context.Context, sessionID string) (*payment.VerificationResult, error)
	HandleNotification(ctx context.Context, n payment.Notification) bool
	DemoMode() bool
}

// Fulfiller turns paid sessions into documents.
type Fulfiller interface {
	Redeem(ctx context.Context, token string) (*fulfillment.Document, error)
	Deliver(ctx context.Context, sessionID string) error
}

// Server serves the scan and payment API.
type Server struct {
	scanner   pipeline.Scanner
	payments  Payments
	fulfiller Fulfiller
	logger    *slog.Logger

	version         string
	allowedOrigins  []string
	maxRequestBody  int64
	shutdownTimeout time.Duration
	deliveryTimeout time.Duration

	// paymentErr, when set, is returned by every payment route.
	paymentErr error

	deliveries sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by the health routes.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithAllowedOrigins sets the origins allowed to call the API from a
// browser. The default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithPaymentError makes every payment route fail with err. serve uses it
// when the gateway settings are incomplete so that scanning keeps working.
func WithPaymentError(err error) Option {
	return func(s *Server) {
		s.paymentErr = err
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithDeliveryTimeout bounds one background report delivery.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.deliveryTimeout = d
		}
	}
}

// New creates a Server.
func New(scanner pipeline.Scanner, payments Payments, fulfiller Fulfiller, opts ...Option) *Server {
	s := &Server{
		scanner:         scanner,
		payments:        payments,
		fulfiller:       fulfiller,
		logger:          slog.Default(),
		version:         "dev",
		allowedOrigins:  []string{"*"},
		maxRequestBody:  defaultMaxRequestBody,
		shutdownTimeout: defaultShutdownTimeout,
		deliveryTimeout: defaultDeliveryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.cors)

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scan", s.handleScan)

		r.Route("/payment", func(r chi.Router) {
			r.Post("/create", s.handleCreatePayment)
			r.Get("/verify/{sessionID}", s.handleVerifyPayment)
			r.Post("/webhook", s.handleWebhook)
		})

		r.Get("/report/{token}", s.handleReport)
	})
	return r
}

// OnPaymentComplete emails the report for sessionID in the background.
// It is meant to be passed to payment.WithOnComplete. Shutdown waits for
// deliveries still in flight.
func (s *Server) OnPaymentComplete(sessionID string) {
	s.deliveries.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.deliveryTimeout)
		defer cancel()
		if err := s.fulfiller.Deliver(ctx, sessionID); err != nil {
			s.logger.Error("report delivery failed", "session_id", sessionID, "error", err)
		}
	})
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully and waits for background deliveries.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "demo", s.payments.DemoMode())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	s.deliveries.Wait()
	return nil
}

// logRequests logs one line per request. It logs the route pattern rather
// than the path so that download tokens stay out of the log.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.logger.Info("request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Expose-Headers", "Content-Disposition")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
