package bruteguard

import (
	"errors"
	"log/slog"

	internalaudit "github.com/MrEthical07/bruteguard/internal/audit"
	internalmetrics "github.com/MrEthical07/bruteguard/internal/metrics"
	"github.com/MrEthical07/bruteguard/internal/policy"
	"github.com/MrEthical07/bruteguard/internal/tracker"
	"github.com/MrEthical07/bruteguard/store"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  store.Store
	logger *slog.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis backs the Engine with a go-redis client (standalone, sentinel or cluster).
// The caller keeps ownership of the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore backs the Engine with any [store.Store]. It takes precedence over WithRedis.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithLogger sets the structured logger. The default is slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. Call [Engine.Close]
// when done to flush audit events.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := b.store
	if s == nil {
		if b.redis == nil {
			return nil, errors.New("store or redis client required")
		}
		s = store.NewRedis(b.redis)
	}
	if cfg.Cache.DisableKeyScan {
		s = store.WithoutScan(s)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config: cfg,
		store:  s,
		tracker: tracker.New(s, tracker.Config{
			Prefix:    cfg.Cache.KeyPrefix,
			BanWindow: cfg.Protection.BanWindow,
			SoftTTL:   cfg.Protection.SoftChallengeTTL,
		}),
		policy: policy.Config{
			SoftLimit:        cfg.Protection.SoftLimit,
			BanLimit:         cfg.Protection.BanLimit,
			BanWindowSeconds: int64(cfg.Protection.BanWindow.Seconds()),
		},
		logger: logger.With(slog.String("component", "bruteguard")),
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})

	for _, w := range cfg.Lint().AtLeast(LintWarn) {
		engine.logger.Warn("config lint", slog.String("code", w.Code), slog.String("detail", w.Message))
	}

	b.built = true

	return engine, nil
}
