package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/fulfillment"
	seclog "github.com/nao1215/a11yscan/internal/log"
	"github.com/nao1215/a11yscan/internal/mail"
	"github.com/nao1215/a11yscan/internal/payment"
	"github.com/nao1215/a11yscan/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan and paid report API over HTTP",
		Long: `Serve starts the HTTP API used by the web frontend.

Free scans return the JSON report. Paid reports go through the Meshulam
payment gateway; once a payment completes, the report is rendered and sent
to the buyer's email, and a download link valid for 30 minutes is issued.

Gateway credentials and the SMTP password are read from the environment
only, optionally through a .env file:
  MESHULAM_PAGE_CODE, MESHULAM_USER_ID, MESHULAM_API_KEY, MESHULAM_SANDBOX
  SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM
  FRONTEND_URL, BACKEND_URL, PAYMENT_AMOUNT

Without gateway credentials the server runs in demo mode and every payment
completes immediately.

Examples:
  # Serve on the default address (:8080)
  a11yscan serve

  # Serve on another port and allow one frontend origin
  a11yscan serve --listen :9000 --allowed-origin https://scan.example.co.il`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "a", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().StringSlice("allowed-origin", nil,
		"Browser origin allowed to call the API (repeatable, default any)")
	cmd.Flags().String("env-file", config.DefaultEnvFile,
		"Dotenv file to load before reading the environment")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	logger := seclog.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	origins, err := cmd.Flags().GetStringSlice("allowed-origin")
	if err != nil {
		return err
	}

	srv := newServer(cfg, logger, server.WithAllowedOrigins(origins...))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.ListenAddress)
}

// buildServeConfig layers the config file, the dotenv file, the
// environment and the flags, then validates the result.
func buildServeConfig(cmd *cobra.Command, lookup func(string) (string, bool)) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	if err := loadFileConfig(cmd, cfg); err != nil {
		return nil, err
	}

	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
			return nil, err
		}
	}

	if err := cfg.ValidateServe(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// newServer wires the payment store, fulfillment and scanner into a
// Server. Incomplete gateway credentials do not stop the server; payment
// routes answer with the configuration error instead.
func newServer(cfg *config.Config, logger *slog.Logger, opts ...server.Option) *server.Server {
	scanner := newSiteScanner(cfg, logger)

	var srv *server.Server
	storeOpts := []payment.StoreOption{
		payment.WithAmount(int64(cfg.Payment.Amount)),
		payment.WithRetention(cfg.Payment.Retention),
		payment.WithTokenWindow(cfg.Payment.TokenWindow),
		payment.WithFrontendURL(cfg.FrontendURL),
		payment.WithBackendURL(cfg.BackendURL),
		payment.WithStoreLogger(logger),
		payment.WithOnComplete(func(sessionID string) {
			srv.OnPaymentComplete(sessionID)
		}),
	}

	gateway, gatewayErr := newGateway(cfg.Payment, logger)
	if gateway != nil {
		storeOpts = append(storeOpts, payment.WithGateway(gateway))
	}
	if gatewayErr != nil {
		logger.Error("payment gateway disabled", "error", gatewayErr)
		opts = append(opts, server.WithPaymentError(gatewayErr))
	}
	store := payment.NewStore(storeOpts...)

	fulfillOpts := []fulfillment.Option{fulfillment.WithLogger(logger)}
	if cfg.SMTP.Host != "" {
		fulfillOpts = append(fulfillOpts, fulfillment.WithMailer(mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, mail.WithLogger(logger))))
	} else {
		logger.Warn("smtp is not configured; reports will not be emailed")
	}
	fulfiller := fulfillment.NewService(store, store.Tokens(), scanner, fulfillOpts...)

	opts = append([]server.Option{
		server.WithLogger(logger),
		server.WithVersion(getVersion()),
	}, opts...)
	srv = server.New(scanner, store, fulfiller, opts...)
	return srv
}

// newGateway returns the Meshulam gateway, or nil in demo mode. A
// non-nil error means the credentials are incomplete.
func newGateway(p config.PaymentConfig, logger *slog.Logger) (payment.Gateway, error) {
	if p.PageCode == "" && p.UserID == "" && p.APIKey == "" {
		logger.Warn("payment gateway credentials not set; running in demo mode")
		return nil, nil //nolint:nilnil // demo mode has no gateway
	}
	g, err := payment.NewMeshulamGateway(payment.MeshulamConfig{
		PageCode: p.PageCode,
		UserID:   p.UserID,
		APIKey:   p.APIKey,
		Sandbox:  p.Sandbox,
	}, payment.WithGatewayLogger(logger))
	if err != nil {
		return nil, err
	}
	return g, nil
}
