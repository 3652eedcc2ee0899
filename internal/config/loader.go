package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/a11yscan/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".a11yscan"

// xdgConfigFile is the file name looked up in the XDG config directory.
const xdgConfigFile = "config.yaml"

// DefaultEnvFile is the dotenv file loaded by serve.
const DefaultEnvFile = ".env"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if specified
//  2. .a11yscan in the current directory
//  3. .a11yscan in the user's home directory
//  4. config.yaml in the XDG config directory
//
// It returns an empty string if nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// LoadDotEnv loads variables from the given dotenv files into the process
// environment. Missing files are skipped and variables that are already
// set are left alone.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

// ApplyEnv overrides c with environment variables read through lookup,
// which is usually os.LookupEnv. Gateway credentials and the SMTP password
// can only be set this way.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str("MESHULAM_PAGE_CODE", &c.Payment.PageCode)
	str("MESHULAM_USER_ID", &c.Payment.UserID)
	str("MESHULAM_API_KEY", &c.Payment.APIKey)
	str("FRONTEND_URL", &c.FrontendURL)
	str("BACKEND_URL", &c.BackendURL)
	str("SMTP_HOST", &c.SMTP.Host)
	str("SMTP_USERNAME", &c.SMTP.Username)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)

	if v, ok := lookup("MESHULAM_SANDBOX"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: MESHULAM_SANDBOX=%q", ErrInvalidEnv, v)
		}
		c.Payment.Sandbox = b
	}
	for name, dst := range map[string]*int{
		"PAYMENT_AMOUNT": &c.Payment.Amount,
		"SMTP_PORT":      &c.SMTP.Port,
	} {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, name, v)
		}
		*dst = n
	}
	return nil
}

// normalizeStandard accepts any case. Unknown names pass through so that
// Validate can report them.
func normalizeStandard(s string) model.Standard {
	if std, err := model.ParseStandard(s); err == nil {
		return std
	}
	return model.Standard(s)
}

func normalizeLocale(s string) model.Locale {
	if l, err := model.ParseLocale(s); err == nil {
		return l
	}
	return model.Locale(s)
}
