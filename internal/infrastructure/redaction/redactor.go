// Package redaction scrubs secrets from displayed member values and log
// output.
package redaction

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// Placeholder replaces a secret when hash mode is off.
const Placeholder = "[REDACTED]"

// Redactor masks secrets in strings. All fields are read-only after
// construction, so it is safe for concurrent use.
type Redactor struct {
	patterns []*regexp.Regexp
	hashMode bool
	salt     string

	// nil when disabled or when the default rules failed to load
	detector *detect.Detector
}

// Config holds the configuration for the Redactor.
type Config struct {
	// Extra patterns to redact, e.g. "INT-[A-Z0-9]{16}".
	Patterns []string `mapstructure:"patterns" yaml:"patterns"`
	// HashMode replaces secrets with a salted HMAC prefix instead of the
	// placeholder, so equal secrets stay correlatable.
	HashMode bool   `mapstructure:"hash_mode" yaml:"hash_mode"`
	Salt     string `mapstructure:"salt" yaml:"salt"`
	// DisableGitleaks keeps only the built-in and custom patterns.
	DisableGitleaks bool `mapstructure:"disable_gitleaks" yaml:"disable_gitleaks"`
}

// New creates a Redactor. A gitleaks rule set that fails to load is logged
// and the redactor falls back to regex patterns.
func New(cfg Config, logger *slog.Logger) (*Redactor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Redactor{
		hashMode: cfg.HashMode,
		salt:     cfg.Salt,
		patterns: make([]*regexp.Regexp, 0, len(cfg.Patterns)+len(defaultPatterns)),
	}

	if !cfg.DisableGitleaks {
		detector, err := newGitleaksDetector()
		if err != nil {
			logger.Warn("gitleaks rules unavailable, using regex patterns only", "error", err)
		} else {
			r.detector = detector
		}
	}

	for _, p := range defaultPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile default pattern %s: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile custom pattern %s: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}

	return r, nil
}

// newGitleaksDetector loads the gitleaks default rule set.
func newGitleaksDetector() (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(config.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to read gitleaks config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gitleaks config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("failed to translate gitleaks config: %w", err)
	}

	return detect.NewDetector(cfg), nil
}

// Scrub replaces secrets in s. Gitleaks findings are replaced first, then
// the regex patterns.
func (r *Redactor) Scrub(s string) string {
	if s == "" {
		return ""
	}

	result := s
	if r.detector != nil {
		for _, finding := range r.detector.Detect(detect.Fragment{Raw: result}) {
			if finding.Secret == "" {
				continue
			}
			result = strings.ReplaceAll(result, finding.Secret, r.mask(finding.Secret))
		}
	}

	for _, re := range r.patterns {
		result = re.ReplaceAllStringFunc(result, r.mask)
	}
	return result
}

// HasGitleaks reports whether the gitleaks rule set is active.
func (r *Redactor) HasGitleaks() bool { return r.detector != nil }

func (r *Redactor) mask(secret string) string {
	if r.hashMode {
		return r.hash(secret)
	}
	return Placeholder
}

// hash returns a truncated HMAC-SHA256 of the secret, "[hmac:<16 hex>]".
// The salt is the key; without one equal secrets still hash equally.
func (r *Redactor) hash(secret string) string {
	mac := hmac.New(sha256.New, []byte(r.salt))
	mac.Write([]byte(secret))
	return fmt.Sprintf("[hmac:%s]", hex.EncodeToString(mac.Sum(nil))[:16])
}

// defaultPatterns match common high-confidence secrets.
var defaultPatterns = []string{
	// AWS access key ID
	`\b((?:AKIA|ABIA|ACCA|ASIA)[0-9A-Z]{16})\b`,
	`-----BEGIN [A-Z ]+ PRIVATE KEY-----`,
	// GitHub token
	`gh[pousr]_[A-Za-z0-9_]{36,255}`,
	// Slack token
	`xox[baprs]-([0-9a-zA-Z]{10,48})?`,
}
