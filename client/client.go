// Package client wires the full stack into one entry point: storage,
// gateway, session store, expiry clock, response cache, data-changed bus,
// route guards, and the interceptor pipeline around an *http.Client.
//
// Concrete components are built from Config defaults and replaced via
// Option functions, so tests swap in the fake package without touching the
// wiring.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gestion "github.com/Abraham03/gestion-go"
	"github.com/Abraham03/gestion-go/audit"
	"github.com/Abraham03/gestion-go/broadcast"
	"github.com/Abraham03/gestion-go/cache"
	"github.com/Abraham03/gestion-go/gateway"
	"github.com/Abraham03/gestion-go/guard"
	"github.com/Abraham03/gestion-go/metrics"
	"github.com/Abraham03/gestion-go/session"
	"github.com/Abraham03/gestion-go/storage"
	"github.com/Abraham03/gestion-go/token"
	"github.com/Abraham03/gestion-go/transport"
)

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the address of the backend (e.g. "https://api.example.com").
	// Required unless a Gateway is injected.
	BaseURL string

	// CacheTTL controls how long GET responses are cached. Default: 5 minutes.
	CacheTTL time.Duration

	// ClockInterval is how often the session clock inspects the token.
	// Default: 60 seconds.
	ClockInterval time.Duration

	// WarnWindow is how close to expiry the clock warns the user.
	// Default: 5 minutes.
	WarnWindow time.Duration

	// EnableMetrics turns on Prometheus collectors. Off by default so
	// embedding applications without a metrics endpoint pay nothing.
	EnableMetrics bool
}

// Client is the assembled stack.
type Client struct {
	cfg    Config
	logger *slog.Logger

	storage gestion.Storage
	gw      gestion.Gateway
	nav     gestion.Navigator
	notif   gestion.Notifier
	aud     *audit.Logger
	met     *metrics.Metrics
	base    http.RoundTripper

	codec  *token.Codec
	store  *session.Store
	clock  *session.Clock
	cache  *cache.Cache
	bus    *broadcast.Bus
	guards *guard.Guards
	http   *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for every component.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithStorage sets the identity persistence implementation. Default is
// in-memory; desktop embeddings use storage.NewFile.
func WithStorage(s gestion.Storage) Option {
	return func(c *Client) { c.storage = s }
}

// WithGateway replaces the HTTP gateway, typically with fake.NewGateway in
// tests.
func WithGateway(g gestion.Gateway) Option {
	return func(c *Client) { c.gw = g }
}

// WithNavigator sets the navigation sink for redirects.
func WithNavigator(n gestion.Navigator) Option {
	return func(c *Client) { c.nav = n }
}

// WithNotifier sets the user-notice sink.
func WithNotifier(n gestion.Notifier) Option {
	return func(c *Client) { c.notif = n }
}

// WithAudit sets the audit logger.
func WithAudit(a *audit.Logger) Option {
	return func(c *Client) { c.aud = a }
}

// WithBaseTransport sets the innermost RoundTripper of the pipeline.
// Default is http.DefaultTransport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// New assembles a client, loads any persisted session, and builds the
// interceptor pipeline. The session clock is not started; call Start.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.ClockInterval == 0 {
		cfg.ClockInterval = session.DefaultInterval
	}
	if cfg.WarnWindow == 0 {
		cfg.WarnWindow = session.DefaultWarnWindow
	}

	c := &Client{
		cfg:    cfg,
		logger: slog.Default(),
		base:   http.DefaultTransport,
	}
	for _, o := range opts {
		o(c)
	}

	if c.storage == nil {
		c.storage = storage.NewMemory()
	}
	if c.gw == nil {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("gestion/client: BaseURL is required")
		}
		gw, err := gateway.New(cfg.BaseURL, gateway.WithLogger(c.logger))
		if err != nil {
			return nil, err
		}
		c.gw = gw
	}

	c.met = metrics.New(cfg.EnableMetrics)
	c.codec = token.NewCodec()
	c.bus = broadcast.New()
	c.cache = cache.New(cache.WithTTL(cfg.CacheTTL), cache.WithRecorder(c.met))

	storeOpts := []session.Option{
		session.WithLogger(c.logger),
		session.WithMetrics(c.met),
	}
	if c.nav != nil {
		storeOpts = append(storeOpts, session.WithNavigator(c.nav))
	}
	if c.notif != nil {
		storeOpts = append(storeOpts, session.WithNotifier(c.notif))
	}
	if c.aud != nil {
		storeOpts = append(storeOpts, session.WithAudit(c.aud))
	}
	c.store = session.NewStore(c.storage, c.gw, storeOpts...)
	c.store.Load()

	c.clock = session.NewClock(c.store, c.codec,
		session.WithInterval(cfg.ClockInterval),
		session.WithWarnWindow(cfg.WarnWindow),
		session.WithClockLogger(c.logger),
	)

	guardOpts := []guard.Option{
		guard.WithLogger(c.logger),
		guard.WithMetrics(c.met),
	}
	if c.aud != nil {
		guardOpts = append(guardOpts, guard.WithAudit(c.aud))
	}
	c.guards = guard.New(c.store, c.codec, guardOpts...)

	rt := transport.Chain(c.base,
		transport.NewCaching(c.cache, c.bus, transport.WithCachingLogger(c.logger)),
		transport.NewEnvelopeUnwrapper(),
		transport.NewAuthorizer(c.store, transport.WithAuthorizerLogger(c.logger)),
	)
	c.http = &http.Client{Transport: rt}

	return c, nil
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Session returns the session store.
func (c *Client) Session() *session.Store { return c.store }

// Guards returns the route guards.
func (c *Client) Guards() *guard.Guards { return c.guards }

// HTTP returns the client whose transport runs the full interceptor
// pipeline: caching, envelope unwrapping, and bearer refresh-and-retry.
func (c *Client) HTTP() *http.Client { return c.http }

// Cache returns the response cache.
func (c *Client) Cache() *cache.Cache { return c.cache }

// Bus returns the data-changed bus.
func (c *Client) Bus() *broadcast.Bus { return c.bus }

// Codec returns the token codec.
func (c *Client) Codec() *token.Codec { return c.codec }

// Metrics returns the metrics recorder.
func (c *Client) Metrics() *metrics.Metrics { return c.met }

// Start launches the session expiry clock.
func (c *Client) Start(ctx context.Context) {
	c.clock.Start(ctx)
}

// Close stops the clock and flushes the audit queue, if any.
func (c *Client) Close() error {
	c.clock.Stop()
	if c.aud != nil {
		return c.aud.Close()
	}
	return nil
}
