package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/a11yscan/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "a11yscan"

	// DefaultTimeout bounds one scan, including page rendering and the
	// interactive checks. Pages that load heavy third-party scripts rarely
	// need more than this.
	DefaultTimeout = 45 * time.Second

	// DefaultStandard is the Israeli accessibility standard.
	DefaultStandard = model.StandardIL5568

	// DefaultLocale is Hebrew.
	DefaultLocale = model.LocaleHE

	// DefaultBatchSize is the number of URLs scanned concurrently.
	DefaultBatchSize = 5

	// DefaultMaxBodySize limits how much of a page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultListenAddress is where serve listens.
	DefaultListenAddress = ":8080"

	// DefaultAmount is the report price in ILS.
	DefaultAmount = 79

	// DefaultRetention is how long a payment session lives.
	DefaultRetention = 2 * time.Hour

	// DefaultTokenWindow is how long a download token stays valid after
	// payment completes.
	DefaultTokenWindow = 30 * time.Minute

	// DefaultSMTPPort is the submission port.
	DefaultSMTPPort = 587
)

// Config holds all configuration options for a11yscan.
// It is populated from the config file, the environment and CLI flags, in
// increasing order of precedence.
type Config struct {
	// Targets is the list of URLs to scan.
	Targets []string

	// Standard is the accessibility standard scans are evaluated against.
	Standard model.Standard

	// Locale is the language of report text.
	Locale model.Locale

	// Timeout bounds one scan.
	Timeout time.Duration

	// BatchSize is the number of concurrent scans.
	BatchSize int

	// UserAgent overrides the renderer's User-Agent when set.
	UserAgent string

	// MaxBodySize is the maximum page size in bytes to read.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit config file path.
	ConfigFilePath string

	// File holds what was loaded from the config file.
	File *File

	// JSONReport and MarkdownReport select the scan output format.
	// They are mutually exclusive; neither means the text report.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is the output path. Empty means stdout.
	ReportFile string

	// DBDir is the directory of the scan archive.
	DBDir string

	// SaveToDB archives scan reports.
	SaveToDB bool

	// ListenAddress is the serve address.
	ListenAddress string

	// FrontendURL is where buyers return after paying.
	FrontendURL string

	// BackendURL is the public base URL of this server, used for the
	// gateway webhook.
	BackendURL string

	// Payment holds the gateway settings.
	Payment PaymentConfig

	// SMTP holds the outgoing mail settings.
	SMTP SMTPConfig
}

// PaymentConfig holds the payment gateway settings. With no credentials
// the server runs in demo mode.
type PaymentConfig struct {
	PageCode    string
	UserID      string
	APIKey      string
	Sandbox     bool
	Amount      int
	Retention   time.Duration
	TokenWindow time.Duration
}

// Configured reports whether all gateway credentials are present.
func (p PaymentConfig) Configured() bool {
	return p.PageCode != "" && p.UserID != "" && p.APIKey != ""
}

// SMTPConfig holds the outgoing mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Standard:      DefaultStandard,
		Locale:        DefaultLocale,
		Timeout:       DefaultTimeout,
		BatchSize:     DefaultBatchSize,
		MaxBodySize:   DefaultMaxBodySize,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
		ListenAddress: DefaultListenAddress,
		FrontendURL:   "http://localhost:8080",
		BackendURL:    "http://localhost:8080",
		Payment: PaymentConfig{
			Sandbox:     true,
			Amount:      DefaultAmount,
			Retention:   DefaultRetention,
			TokenWindow: DefaultTokenWindow,
		},
		SMTP: SMTPConfig{
			Port: DefaultSMTPPort,
		},
	}
}

// XDGDataDir returns the XDG data directory for a11yscan.
// On Linux: ~/.local/share/a11yscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for a11yscan.
// On Linux: ~/.config/a11yscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the settings shared by all commands.
// It returns the first problem found.
func (c *Config) Validate() error {
	if !c.Standard.Valid() {
		return ErrInvalidStandard
	}
	if !c.Locale.Valid() {
		return ErrInvalidLocale
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ValidateScan additionally requires at least one target.
func (c *Config) ValidateScan() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}

// ValidateServe additionally checks the server settings.
// Partial gateway credentials are left for the payment store to report,
// so that the server can still start and answer with a configuration error.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ListenAddress == "" {
		return ErrInvalidListenAddress
	}
	for _, raw := range []string{c.FrontendURL, c.BackendURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidBaseURL
		}
	}
	if c.Payment.Amount <= 0 {
		return ErrInvalidAmount
	}
	if c.Payment.Retention <= 0 || c.Payment.TokenWindow <= 0 {
		return ErrInvalidRetention
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return ErrInvalidSMTPPort
	}
	return nil
}
