package bruteguard

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the complete Engine configuration. Start from [DefaultConfig] and override
// what you need; [Builder.Build] runs [Config.Validate].
type Config struct {
	Cache      CacheConfig
	Protection ProtectionConfig
	Store      StoreConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the key namespace in the shared cache.
type CacheConfig struct {
	// KeyPrefix namespaces every key: "{prefix}:failed:ip:{id}" and "{prefix}:soft:ip:{id}".
	KeyPrefix string
	// DisableKeyScan hides pattern scanning from the Engine even when the store supports
	// it. Listing then returns empty results.
	DisableKeyScan bool
}

/*
====================================
PROTECTION CONFIG
====================================
*/

// ProtectionConfig holds the escalation thresholds and entry lifetimes.
type ProtectionConfig struct {
	// SoftLimit is the failed-attempt count at which a challenge becomes mandatory.
	SoftLimit int
	// BanLimit is the failed-attempt count at which the identifier is banned.
	BanLimit int
	// BanWindow is the TTL of the failed-attempt counter and the reported ban duration.
	BanWindow time.Duration
	// SoftChallengeTTL is the TTL of the challenge-passed flag.
	SoftChallengeTTL time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls how the Engine treats its cache store.
type StoreConfig struct {
	// FailOpen makes Validate treat unreadable state as "no record" instead of
	// returning ErrStoreUnavailable. Writes always report errors.
	FailOpen bool
	// OperationTimeout bounds each Engine call against the store. Zero disables it.
	OperationTimeout time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the stock configuration: prefix "bfp", challenge after 3
// failures, ban after 10, both windows 24h, fail-closed with a 250ms store timeout.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			KeyPrefix: "bfp",
		},
		Protection: ProtectionConfig{
			SoftLimit:        3,
			BanLimit:         10,
			BanWindow:        24 * time.Hour,
			SoftChallengeTTL: 24 * time.Hour,
		},
		Store: StoreConfig{
			FailOpen:         false,
			OperationTimeout: 250 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Engine cannot run with.
func (c *Config) Validate() error {
	// Cache
	if strings.TrimSpace(c.Cache.KeyPrefix) == "" {
		return errors.New("Cache KeyPrefix must be set")
	}
	if strings.ContainsAny(c.Cache.KeyPrefix, `*?[]\`) {
		return errors.New("Cache KeyPrefix must not contain glob metacharacters")
	}

	// Protection
	if c.Protection.SoftLimit <= 0 {
		return errors.New("Protection SoftLimit must be > 0")
	}
	if c.Protection.BanLimit <= 0 {
		return errors.New("Protection BanLimit must be > 0")
	}
	if err := validateWindow("Protection BanWindow", c.Protection.BanWindow); err != nil {
		return err
	}
	if err := validateWindow("Protection SoftChallengeTTL", c.Protection.SoftChallengeTTL); err != nil {
		return err
	}

	// Store
	if c.Store.OperationTimeout < 0 {
		return errors.New("Store OperationTimeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}

func validateWindow(name string, d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("%s must be >= 1s", name)
	}
	if d%time.Second != 0 {
		return fmt.Errorf("%s must be a whole number of seconds", name)
	}
	return nil
}

/*
====================================
LINT
====================================
*/

// LintSeverity ranks lint findings.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	case LintHigh:
		return "high"
	default:
		return "unknown"
	}
}

// LintWarning is one finding. Code is stable and safe to match on.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the finding codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// AtLeast returns the findings with severity >= min.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Below returns the findings with severity < max.
func (r LintResult) Below(max LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity < max {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports configurations that validate but are probably mistakes. It never fails.
func (c *Config) Lint() LintResult {
	var ws LintResult

	if c.Protection.SoftLimit >= c.Protection.BanLimit {
		ws = append(ws, LintWarning{
			Code:     "soft_challenge_unreachable",
			Severity: LintHigh,
			Message:  "SoftLimit >= BanLimit: identifiers are banned before any challenge is asked",
		})
	}
	if c.Store.FailOpen {
		ws = append(ws, LintWarning{
			Code:     "fail_open_enabled",
			Severity: LintWarn,
			Message:  "Store.FailOpen allows every attempt while the cache is unreachable",
		})
	}
	if c.Protection.BanWindow > 0 && c.Protection.BanWindow < time.Minute {
		ws = append(ws, LintWarning{
			Code:     "ban_window_short",
			Severity: LintWarn,
			Message:  "BanWindow under one minute barely slows down a brute-force client",
		})
	}
	if c.Protection.SoftChallengeTTL < c.Protection.BanWindow {
		ws = append(ws, LintWarning{
			Code:     "soft_ttl_shorter_than_ban",
			Severity: LintInfo,
			Message:  "a passed challenge expires before the failure counter does; clients will be asked again",
		})
	}
	if c.Cache.DisableKeyScan {
		ws = append(ws, LintWarning{
			Code:     "key_scan_disabled",
			Severity: LintInfo,
			Message:  "ListBannedIdentifiers and ListChallengedIdentifiers always return empty results",
		})
	}
	if c.Store.OperationTimeout == 0 {
		ws = append(ws, LintWarning{
			Code:     "timeout_disabled",
			Severity: LintWarn,
			Message:  "store calls are bounded only by the caller context",
		})
	}

	return ws
}
