package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gestion "github.com/Abraham03/gestion-go"
	"github.com/Abraham03/gestion-go/token"
)

// Clock defaults.
const (
	DefaultInterval   = 60 * time.Second
	DefaultWarnWindow = 5 * time.Minute
)

// Clock periodically classifies session health while authenticated:
// healthy, expiring-soon (surface a renewable warning once per session) or
// refresh-token-expired (force the session end).
type Clock struct {
	store      *Store
	codec      *token.Codec
	interval   time.Duration
	warnWindow time.Duration
	logger     *slog.Logger
	now        func() time.Time

	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// ClockOption configures the Clock.
type ClockOption func(*Clock)

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) ClockOption {
	return func(c *Clock) { c.interval = d }
}

// WithWarnWindow sets how far before access-token expiry the warning fires.
func WithWarnWindow(d time.Duration) ClockOption {
	return func(c *Clock) { c.warnWindow = d }
}

// WithClockLogger sets a structured logger.
func WithClockLogger(l *slog.Logger) ClockOption {
	return func(c *Clock) { c.logger = l }
}

// WithClockNow overrides the clock source. Intended for tests.
func WithClockNow(now func() time.Time) ClockOption {
	return func(c *Clock) { c.now = now }
}

// NewClock creates a session clock over the given store and token codec.
func NewClock(store *Store, codec *token.Codec, opts ...ClockOption) *Clock {
	c := &Clock{
		store:      store,
		codec:      codec,
		interval:   DefaultInterval,
		warnWindow: DefaultWarnWindow,
		logger:     slog.Default(),
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start launches the background tick loop. It is non-blocking and idempotent.
// The loop exits when Stop is called or ctx is cancelled; both are
// deterministic, no ticker is left orphaned.
func (c *Clock) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go c.loop(ctx)
	})
}

// Stop terminates the tick loop. Idempotent.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *Clock) loop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick runs one session-health classification.
func (c *Clock) tick(ctx context.Context) {
	id := c.store.Identity()
	if id == nil {
		return
	}

	if id.Token == "" {
		c.store.ForceEnd(ctx, "no access token held")
		return
	}

	refreshExpired := id.RefreshToken == "" ||
		id.ExpirationDate.IsZero() ||
		!id.ExpirationDate.After(c.now())
	if refreshExpired {
		c.store.ForceEnd(ctx, "refresh token expired")
		return
	}

	if c.codec.ExpiresWithin(id.Token, c.warnWindow) && !c.store.warningShown() {
		c.store.markWarningShown()
		c.warn(ctx)
	}
}

// warn surfaces the dismissible expiring-session prompt. Accepting the action
// refreshes the session; the store clears the warning flag on refresh success
// so a later expiry can warn again.
func (c *Clock) warn(ctx context.Context) {
	if c.store.notifier == nil {
		return
	}

	action := c.store.notifier.Notify(gestion.Notification{
		Message:     "La sesión está a punto de expirar.",
		ActionLabel: "Renovar",
		Duration:    c.warnWindow,
		Style:       "warn",
	})

	go func() {
		select {
		case _, ok := <-action:
			if !ok {
				return // dismissed without action
			}
			if err := c.store.Refresh(ctx); err != nil {
				c.logger.Warn("gestion/session: user-initiated refresh failed", "error", err)
			}
		case <-c.stopCh:
		case <-ctx.Done():
		}
	}()
}
