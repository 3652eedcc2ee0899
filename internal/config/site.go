package config

import (
	"strings"
	"time"
)

// SiteConfig holds scan settings for a single host.
type SiteConfig struct {
	// Standard overrides the scan standard for this site.
	Standard string `yaml:"standard,omitempty"`

	// Locale overrides the report language for this site.
	Locale string `yaml:"locale,omitempty"`

	// Timeout overrides the scan timeout for this site.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent overrides the renderer's User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// ServerFile is the server section of the config file.
type ServerFile struct {
	Listen      string `yaml:"listen,omitempty"`
	FrontendURL string `yaml:"frontendURL,omitempty"`
	BackendURL  string `yaml:"backendURL,omitempty"`
}

// PaymentFile is the payment section of the config file.
// Gateway credentials are read from the environment only.
type PaymentFile struct {
	Sandbox     *bool         `yaml:"sandbox,omitempty"`
	Amount      int           `yaml:"amount,omitempty"`
	Retention   time.Duration `yaml:"retention,omitempty"`
	TokenWindow time.Duration `yaml:"tokenWindow,omitempty"`
}

// SMTPFile is the smtp section of the config file.
// The password is read from the environment only.
type SMTPFile struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	From     string `yaml:"from,omitempty"`
}

// File represents the structure of the .a11yscan configuration file.
type File struct {
	// Defaults applies to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps host names, such as "example.co.il", to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	Server  ServerFile  `yaml:"server,omitempty"`
	Payment PaymentFile `yaml:"payment,omitempty"`
	SMTP    SMTPFile    `yaml:"smtp,omitempty"`
}

// GetSiteConfig returns the settings for host, merged over the defaults.
// A leading "www." is ignored when looking host up.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	host = strings.ToLower(host)
	site, ok := cf.Sites[host]
	if !ok {
		site, ok = cf.Sites[strings.TrimPrefix(host, "www.")]
	}
	if !ok {
		return result
	}

	if site.Standard != "" {
		result.Standard = site.Standard
	}
	if site.Locale != "" {
		result.Locale = site.Locale
	}
	if site.Timeout != 0 {
		result.Timeout = site.Timeout
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	return result
}

// Apply copies the file's server, payment and smtp settings, and its
// default scan settings, into c. Fields the file leaves empty keep their
// current values. Unparseable standards and locales are returned as errors
// by Validate.
func (cf *File) Apply(c *Config) {
	if cf.Defaults.Standard != "" {
		c.Standard = normalizeStandard(cf.Defaults.Standard)
	}
	if cf.Defaults.Locale != "" {
		c.Locale = normalizeLocale(cf.Defaults.Locale)
	}
	if cf.Defaults.Timeout > 0 {
		c.Timeout = cf.Defaults.Timeout
	}
	if cf.Defaults.UserAgent != "" {
		c.UserAgent = cf.Defaults.UserAgent
	}

	setString(&c.ListenAddress, cf.Server.Listen)
	setString(&c.FrontendURL, cf.Server.FrontendURL)
	setString(&c.BackendURL, cf.Server.BackendURL)

	if cf.Payment.Sandbox != nil {
		c.Payment.Sandbox = *cf.Payment.Sandbox
	}
	if cf.Payment.Amount != 0 {
		c.Payment.Amount = cf.Payment.Amount
	}
	if cf.Payment.Retention != 0 {
		c.Payment.Retention = cf.Payment.Retention
	}
	if cf.Payment.TokenWindow != 0 {
		c.Payment.TokenWindow = cf.Payment.TokenWindow
	}

	setString(&c.SMTP.Host, cf.SMTP.Host)
	setString(&c.SMTP.Username, cf.SMTP.Username)
	setString(&c.SMTP.From, cf.SMTP.From)
	if cf.SMTP.Port != 0 {
		c.SMTP.Port = cf.SMTP.Port
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
