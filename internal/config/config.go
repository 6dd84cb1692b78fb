// Package config loads bruteguardd settings from a YAML file with a BRUTEGUARD_*
// environment overlay.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/bruteguard"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "BRUTEGUARD_"

type Config struct {
	Server     Server     `yaml:"server"`
	Redis      Redis      `yaml:"redis"`
	Protection Protection `yaml:"protection"`
	Store      Store      `yaml:"store"`
	Audit      Audit      `yaml:"audit"`
	Metrics    Metrics    `yaml:"metrics"`
	Log        Log        `yaml:"log"`
}

type Server struct {
	ListenAddr            string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	AdminRateLimit        int    `yaml:"admin_rate_limit" env:"ADMIN_RATE_LIMIT"`
	AdminRateWindowSecs   int    `yaml:"admin_rate_window_seconds" env:"ADMIN_RATE_WINDOW_SECONDS"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" env:"REQUEST_TIMEOUT_SECONDS"`
}

// Redis selects the backend. An empty Addrs list runs the daemon on the in-process store.
type Redis struct {
	Addrs    []string `yaml:"addrs" env:"REDIS_ADDR" envSeparator:","`
	Password string   `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int      `yaml:"db" env:"REDIS_DB"`
}

type Protection struct {
	KeyPrefix               string `yaml:"key_prefix" env:"KEY_PREFIX"`
	DisableKeyScan          bool   `yaml:"disable_key_scan" env:"DISABLE_KEY_SCAN"`
	SoftLimit               int    `yaml:"soft_limit" env:"SOFT_LIMIT"`
	BanLimit                int    `yaml:"ban_limit" env:"BAN_LIMIT"`
	BanWindowSeconds        int    `yaml:"ban_window_seconds" env:"BAN_WINDOW_SECONDS"`
	SoftChallengeTTLSeconds int    `yaml:"soft_challenge_ttl_seconds" env:"SOFT_CHALLENGE_TTL_SECONDS"`
}

type Store struct {
	FailOpen           bool `yaml:"fail_open" env:"FAIL_OPEN"`
	OperationTimeoutMS int  `yaml:"operation_timeout_ms" env:"STORE_TIMEOUT_MS"`
}

type Audit struct {
	Enabled    bool `yaml:"enabled" env:"AUDIT_ENABLED"`
	BufferSize int  `yaml:"buffer_size" env:"AUDIT_BUFFER_SIZE"`
	DropIfFull bool `yaml:"drop_if_full" env:"AUDIT_DROP_IF_FULL"`
}

type Metrics struct {
	Enabled           bool `yaml:"enabled" env:"METRICS_ENABLED"`
	LatencyHistograms bool `yaml:"latency_histograms" env:"METRICS_LATENCY_HISTOGRAMS"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Default mirrors bruteguard.DefaultConfig and adds daemon settings.
func Default() Config {
	lib := bruteguard.DefaultConfig()
	return Config{
		Server: Server{
			ListenAddr:            ":8081",
			AdminRateLimit:        120,
			AdminRateWindowSecs:   60,
			RequestTimeoutSeconds: 15,
		},
		Protection: Protection{
			KeyPrefix:               lib.Cache.KeyPrefix,
			SoftLimit:               lib.Protection.SoftLimit,
			BanLimit:                lib.Protection.BanLimit,
			BanWindowSeconds:        int(lib.Protection.BanWindow / time.Second),
			SoftChallengeTTLSeconds: int(lib.Protection.SoftChallengeTTL / time.Second),
		},
		Store: Store{
			FailOpen:           lib.Store.FailOpen,
			OperationTimeoutMS: int(lib.Store.OperationTimeout / time.Millisecond),
		},
		Audit: Audit{
			BufferSize: lib.Audit.BufferSize,
			DropIfFull: lib.Audit.DropIfFull,
		},
		Metrics: Metrics{Enabled: true},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (skipped when
// path is empty), then a .env file in the working directory, then BRUTEGUARD_* variables.
// Variables already present in the environment win over .env entries.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks daemon settings and the derived engine configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		return errors.New("server.listen_addr is required")
	}
	if c.Server.AdminRateLimit < 0 || c.Server.AdminRateWindowSecs < 0 {
		return errors.New("server admin rate settings must be >= 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return errors.New("server.request_timeout_seconds must be > 0")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	engineCfg := c.ToEngineConfig()
	return engineCfg.Validate()
}

// ToEngineConfig maps the daemon settings onto the library configuration.
func (c Config) ToEngineConfig() bruteguard.Config {
	cfg := bruteguard.DefaultConfig()
	cfg.Cache.KeyPrefix = c.Protection.KeyPrefix
	cfg.Cache.DisableKeyScan = c.Protection.DisableKeyScan
	cfg.Protection.SoftLimit = c.Protection.SoftLimit
	cfg.Protection.BanLimit = c.Protection.BanLimit
	cfg.Protection.BanWindow = time.Duration(c.Protection.BanWindowSeconds) * time.Second
	cfg.Protection.SoftChallengeTTL = time.Duration(c.Protection.SoftChallengeTTLSeconds) * time.Second
	cfg.Store.FailOpen = c.Store.FailOpen
	cfg.Store.OperationTimeout = time.Duration(c.Store.OperationTimeoutMS) * time.Millisecond
	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize
	cfg.Audit.DropIfFull = c.Audit.DropIfFull
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.LatencyHistograms
	return cfg
}

// AdminRateWindow returns the admin API throttling window.
func (c Config) AdminRateWindow() time.Duration {
	return time.Duration(c.Server.AdminRateWindowSecs) * time.Second
}

// RequestTimeout returns the per-request deadline of the admin API.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// SlogLevel parses Log.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the daemon logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
