package eduAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/eduAuth/internal/audit"
	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/MrEthical07/eduAuth/session"
	"github.com/MrEthical07/eduAuth/transport"
	"github.com/MrEthical07/eduAuth/validation"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Builder assembles a [Client]. It can be used once.
type Builder struct {
	config Config

	storage    Storage
	redis      redis.UniversalClient
	httpClient *http.Client
	navigator  Navigator
	logger     *slog.Logger
	auditSink  AuditSink

	interceptors []transport.Interceptor

	built bool
}

// New returns a builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage supplies the snapshot storage directly. It takes precedence
// over Config.Storage.Backend and is not closed by the client.
func (b *Builder) WithStorage(s Storage) *Builder {
	b.storage = s
	return b
}

// WithRedis supplies the client used by the redis backend. The client stays
// owned by the caller.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient replaces the HTTP client used for API calls.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithNavigator supplies the host's navigation. Without one the client keeps
// an in-memory navigator starting at the login view.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithLogger sets the logger. Records pass through a redacting handler.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit sink. Events flow only when Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithInterceptor appends an outgoing request interceptor.
func (b *Builder) WithInterceptor(fn transport.Interceptor) *Builder {
	if fn != nil {
		b.interceptors = append(b.interceptors, fn)
	}
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, opens storage, wires the transport to
// the session store and restores the persisted session.
func (b *Builder) Build(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.Discard()
	if b.logger != nil {
		log = slog.New(logging.NewRedactor(b.logger.Handler()))
	}

	storage, closeStorage, err := b.openStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	persist := session.NewPersistence(storage, cfg.Storage.SnapshotKey, cfg.Storage.LegacyTokenKey)

	nav := b.navigator
	if nav == nil {
		nav = session.NewMemoryNavigator(cfg.Views.Login)
	}

	store := session.NewStore(persist,
		session.WithNavigator(nav),
		session.WithLoginView(cfg.Views.Login),
		session.WithLogger(log),
	)

	metrics := NewMetrics(cfg.Metrics)
	signals := transport.NewSignals()
	validator := validation.New(cfg.Validation.Locale)

	opts := transport.Options{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout,
		UserAgent:    cfg.API.UserAgent,
		HTTPClient:   b.httpClient,
		Tokens:       persist,
		Signals:      signals,
		Logger:       log,
		RateLimit:    rate.Limit(cfg.API.RateLimit),
		Burst:        cfg.API.Burst,
		Interceptors: b.interceptors,
		Messages:     transportMessages(validator),
	}
	if metrics.Enabled() {
		opts.Observer = metrics
	}
	api, err := transport.New(opts)
	if err != nil {
		_ = closeStorage()
		return nil, fmt.Errorf("build api client: %w", err)
	}

	c := &Client{
		config:       cfg,
		store:        store,
		api:          api,
		signals:      signals,
		validator:    validator,
		nav:          nav,
		metrics:      metrics,
		log:          log,
		closeStorage: closeStorage,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	c.initFlows()
	c.unsubscribe = signals.Subscribe(c.handleUnauthorized)

	if _, err := c.flow.Rehydrate(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("rehydrate session: %w", err)
	}

	b.built = true
	return c, nil
}

func (b *Builder) openStorage(ctx context.Context, cfg StorageConfig) (Storage, func() error, error) {
	noop := func() error { return nil }
	if b.storage != nil {
		return b.storage, noop, nil
	}

	switch cfg.Backend {
	case StorageFile:
		fs, err := session.NewFileStorage(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open file storage: %w", err)
		}
		return fs, noop, nil

	case StorageSQLite:
		db, err := session.OpenSQLiteStorage(ctx, cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return db, db.Close, nil

	case StorageRedis:
		if b.redis != nil {
			return session.NewRedisStorage(b.redis, cfg.RedisPrefix, cfg.RedisTTL), noop, nil
		}
		if cfg.RedisAddr == "" {
			return nil, nil, ErrRedisRequired
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("%w: ping %s: %v", session.ErrRedisUnavailable, cfg.RedisAddr, err)
		}
		return session.NewRedisStorage(rdb, cfg.RedisPrefix, cfg.RedisTTL), rdb.Close, nil
	}

	return session.NewMemoryStorage(), noop, nil
}
