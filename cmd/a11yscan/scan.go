package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/database"
	seclog "github.com/nao1215/a11yscan/internal/log"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
	"github.com/nao1215/a11yscan/internal/report"
	"github.com/nao1215/a11yscan/internal/rules"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "Scan web pages for accessibility defects",
		Long: `Scan loads each page, runs the automated rule engine and the interactive
checks, and prints a report with the score, the legal risk level and every
finding.

Examples:
  # Scan a single page against IS 5568 with a Hebrew report
  a11yscan scan https://example.co.il

  # Scan against WCAG 2.2 AA with an English report
  a11yscan scan --standard WCAG_2_2_AA --locale en https://example.com

  # Scan several pages, three at a time
  a11yscan scan --batch 3 https://a.co.il https://b.co.il https://c.co.il

  # Write a Markdown report to a file
  a11yscan scan --markdown -o report.md https://example.co.il

  # Do not archive the result
  a11yscan scan --no-save https://example.co.il

Configuration file (.a11yscan) example:
  defaults:
    standard: IL_5568
    locale: he
  sites:
    shop.example.co.il:
      timeout: 90s
      userAgent: "Mozilla/5.0 (compatible; a11yscan)"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("standard", "s", string(config.DefaultStandard),
		"Accessibility standard: IL_5568 or WCAG_2_2_AA")
	cmd.Flags().StringP("locale", "l", string(config.DefaultLocale),
		"Report language: he or en")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each scan")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")
	cmd.Flags().String("user-agent", "",
		"User-Agent sent when loading pages")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-save", false,
		"Do not archive scan reports in the local database")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateScan(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *database.ReportDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	out, closeOut, err := openOutput(cmd.OutOrStdout(), cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOut()

	s := &scanRun{
		cfg:     cfg,
		scanner: newSiteScanner(cfg, logger),
		db:      db,
		writer:  newReportWriter(cfg, out, cfg.ReportFile == ""),
		status:  cmd.ErrOrStderr(),
		logger:  logger,
	}
	return s.run(ctx)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadFileConfig finds and loads the config file into cfg.
// An explicit --config path that does not exist is an error; otherwise a
// missing file leaves cfg unchanged.
func loadFileConfig(cmd *cobra.Command, cfg *config.Config) error {
	var path string
	if f := cmd.Flags().Lookup("config"); f != nil {
		path = f.Value.String()
	}
	cfg.ConfigFilePath = path

	found := config.FindConfigFile(path)
	if found == "" {
		if path != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
		}
		cfg.File = &config.File{Sites: make(map[string]config.SiteConfig)}
		return nil
	}

	file, err := config.LoadConfigFile(found)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	file.Apply(cfg)
	cfg.File = file
	return nil
}

// buildConfig creates a Config from defaults, the config file and the
// command flags, in that order. Flags override the file only when set.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	if err := loadFileConfig(cmd, cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("standard") {
		v, err := flags.GetString("standard")
		if err != nil {
			return nil, err
		}
		if cfg.Standard, err = model.ParseStandard(v); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}
	if flags.Changed("locale") {
		v, err := flags.GetString("locale")
		if err != nil {
			return nil, err
		}
		if cfg.Locale, err = model.ParseLocale(v); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}
	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return nil, err
		}
		cfg.Timeout = v
	}
	if flags.Changed("user-agent") {
		v, err := flags.GetString("user-agent")
		if err != nil {
			return nil, err
		}
		cfg.UserAgent = v
	}

	var err error
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	cfg.Targets = args
	return cfg, nil
}

// setupLogger creates a logger that redacts credentials, emails and
// tokens before writing to stderr.
func setupLogger(verbose bool) *slog.Logger {
	return seclog.NewSecureLogger(os.Stderr, verbose)
}

// siteScanner applies per-site settings from the config file before
// delegating to an Assembler built for those settings.
type siteScanner struct {
	cfg *config.Config

	// build creates the scanner for one set of site settings.
	build func(site config.SiteConfig) pipeline.Scanner
}

func newSiteScanner(cfg *config.Config, logger *slog.Logger) *siteScanner {
	return &siteScanner{
		cfg: cfg,
		build: func(site config.SiteConfig) pipeline.Scanner {
			return newAssembler(cfg, site, logger)
		},
	}
}

// newAssembler wires the HTTP renderer and the static rule engine into an
// Assembler. Site settings override the global ones.
func newAssembler(cfg *config.Config, site config.SiteConfig, logger *slog.Logger) *pipeline.Assembler {
	timeout := cfg.Timeout
	if site.Timeout > 0 {
		timeout = site.Timeout
	}
	userAgent := cfg.UserAgent
	if site.UserAgent != "" {
		userAgent = site.UserAgent
	}

	rendererOpts := []browser.Option{browser.WithLogger(logger)}
	if userAgent != "" {
		rendererOpts = append(rendererOpts, browser.WithUserAgent(userAgent))
	}
	if cfg.MaxBodySize > 0 {
		rendererOpts = append(rendererOpts, browser.WithMaxBodySize(cfg.MaxBodySize))
	}

	return pipeline.NewAssembler(
		browser.NewHTTPRenderer(rendererOpts...),
		rules.NewStaticEngine(rules.WithLogger(logger)),
		pipeline.WithLogger(logger),
		pipeline.WithTimeout(timeout),
	)
}

// siteConfig returns the settings for rawURL's host.
func (s *siteScanner) siteConfig(rawURL string) config.SiteConfig {
	if s.cfg.File == nil {
		return config.SiteConfig{}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return s.cfg.File.Defaults
	}
	return s.cfg.File.GetSiteConfig(u.Hostname())
}

// Assemble scans rawURL. A site's standard and locale replace the ones
// passed in; an unparseable site value is an error.
func (s *siteScanner) Assemble(ctx context.Context, rawURL string, standard model.Standard, locale model.Locale) (*model.ScanReport, error) {
	site := s.siteConfig(rawURL)
	if site.Standard != "" {
		std, err := model.ParseStandard(site.Standard)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", rawURL, err)
		}
		standard = std
	}
	if site.Locale != "" {
		l, err := model.ParseLocale(site.Locale)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", rawURL, err)
		}
		locale = l
	}
	return s.build(site).Assemble(ctx, rawURL, standard, locale)
}

// newReportWriter selects the output format. Color is used for the text
// report on a terminal only.
func newReportWriter(cfg *config.Config, out io.Writer, terminal bool) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewVersionedJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewTextWriter(out,
			report.WithVerbose(cfg.Verbose),
			report.WithColor(terminal && isTerminal(out)),
		)
	}
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// openOutput returns stdout, or the report file created with owner-only
// permissions.
func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck
}

// scanRun holds what one invocation of scan needs.
type scanRun struct {
	cfg     *config.Config
	scanner pipeline.Scanner
	db      *database.ReportDB
	writer  report.Writer
	status  io.Writer
	logger  *slog.Logger

	// mu serializes report output and archiving in batch mode.
	mu     sync.Mutex
	failed int
}

// run scans every target and returns an error when any scan failed.
func (s *scanRun) run(ctx context.Context) error {
	if len(s.cfg.Targets) > 1 && s.cfg.BatchSize > 1 {
		if err := s.runBatch(ctx); err != nil {
			return err
		}
	} else if err := s.runSequential(ctx); err != nil {
		return err
	}

	if s.failed > 0 {
		return fmt.Errorf("%d of %d scans failed", s.failed, len(s.cfg.Targets))
	}
	return nil
}

func (s *scanRun) runSequential(ctx context.Context) error {
	for _, target := range s.cfg.Targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(s.status, "Scanning %s...\n", target)
		start := time.Now()
		rep, err := s.scanner.Assemble(ctx, target, s.cfg.Standard, s.cfg.Locale)
		if err == nil {
			fmt.Fprintf(s.status, "Scan completed in %s\n\n", time.Since(start).Round(time.Millisecond))
		}
		s.handle(ctx, target, rep, err)
	}
	return nil
}

func (s *scanRun) runBatch(ctx context.Context) error {
	fmt.Fprintf(s.status, "Starting batch scan of %d targets (concurrency: %d)...\n\n",
		len(s.cfg.Targets), s.cfg.BatchSize)
	start := time.Now()

	bp := pipeline.NewBatchProcessor(s.scanner,
		pipeline.WithConcurrency(s.cfg.BatchSize),
		pipeline.WithBatchLogger(s.logger),
	)
	var done int
	err := bp.ProcessBatchWithCallback(ctx, s.cfg.Targets, s.cfg.Standard, s.cfg.Locale,
		func(r pipeline.BatchResult, _ int) {
			s.mu.Lock()
			done++
			fmt.Fprintf(s.status, "[%d/%d] %s\n", done, len(s.cfg.Targets), r.URL)
			s.mu.Unlock()
			s.handle(ctx, r.URL, r.Report, r.Err)
		})

	fmt.Fprintf(s.status, "\nBatch scan completed in %s\n", time.Since(start).Round(time.Millisecond))
	return err
}

// handle writes and archives one result. Failures are reported and
// counted, never fatal.
func (s *scanRun) handle(ctx context.Context, target string, rep *model.ScanReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.failed++
		fmt.Fprintf(s.status, "Scan error for %s: %s\n", target, describeScanError(err, s.cfg.Locale))
		s.logger.Debug("scan failed", "url", target, "error", err)
		return
	}

	if _, err := s.writer.Write(rep); err != nil {
		s.logger.Error("report failed", "url", target, "error", err)
	}
	if s.db == nil {
		return
	}
	if err := s.db.SaveScanReport(ctx, rep); err != nil {
		s.logger.Error("failed to save scan report", "url", target, "error", err)
		return
	}
	s.logger.Info("scan report saved to database", "url", target, "scan_id", rep.ScanID)
}

// describeScanError returns the localized message for a scan failure and
// the error text otherwise.
func describeScanError(err error, locale model.Locale) string {
	var failure *pipeline.ScanFailure
	if errors.As(err, &failure) {
		return fmt.Sprintf("%s (%s)", failure.UserMessage(locale), failure.Reason)
	}
	return err.Error()
}
