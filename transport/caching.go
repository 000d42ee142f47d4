package transport

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gestion "github.com/Abraham03/gestion-go"
	"github.com/Abraham03/gestion-go/cache"
)

// Publisher receives the data-changed signal once a mutation's cache
// invalidation completes.
type Publisher interface {
	Publish()
}

// Cacher is the slice of the response cache the caching stage uses.
type Cacher interface {
	Get(key string) *cache.Snapshot
	Set(key string, snap *cache.Snapshot, ttl time.Duration)
	InvalidateStartingWith(prefix string)
}

// Caching serves GET responses from the snapshot cache. Mutations first
// invalidate the affected resource family plus the dashboard aggregates and
// announce the change on the bus, then pass through uncached. Invalidation
// precedes the dispatch, so subscribers reloading on the signal never read a
// snapshot the mutation is about to stale.
type Caching struct {
	next   http.RoundTripper
	cache  Cacher
	bus    Publisher
	logger *slog.Logger
}

// CachingOption configures the Caching stage.
type CachingOption func(*Caching)

// WithCachingLogger sets the logger.
func WithCachingLogger(l *slog.Logger) CachingOption {
	return func(c *Caching) { c.logger = l }
}

// NewCaching builds the caching stage over c, publishing mutations on bus.
// bus may be nil when no subscriber exists.
func NewCaching(c Cacher, bus Publisher, opts ...CachingOption) Stage {
	return func(next http.RoundTripper) http.RoundTripper {
		st := &Caching{
			next:   next,
			cache:  c,
			bus:    bus,
			logger: slog.Default(),
		}
		for _, o := range opts {
			o(st)
		}
		return st
	}
}

var _ http.RoundTripper = (*Caching)(nil)

// RoundTrip implements http.RoundTripper.
func (c *Caching) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasPrefix(req.URL.Path, "/auth/") {
		return c.next.RoundTrip(req)
	}

	if req.Method != http.MethodGet {
		c.invalidateFor(req.URL.Path)
		if c.bus != nil {
			c.bus.Publish()
		}
		return c.next.RoundTrip(req)
	}

	key := req.URL.RequestURI()
	if snap := c.cache.Get(key); snap != nil {
		c.logger.Debug("cache hit", "key", key)
		return replay(req, snap), nil
	}

	resp, err := c.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, &cache.Snapshot{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, 0)

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// invalidateFor drops every cached entry of the mutated resource family and
// the dashboard aggregates. The family is the /api/<segment> prefix of the
// mutated path, so both the collection and every filtered or paginated
// variant of it go stale together.
func (c *Caching) invalidateFor(path string) {
	if fam := familyPrefix(path); fam != "" {
		c.cache.InvalidateStartingWith(fam)
	}
	c.cache.InvalidateStartingWith(gestion.DashboardPrefix)
}

// familyPrefix returns "/api/<first segment>" for an API path, or "" when
// the path does not live under the API root.
func familyPrefix(path string) string {
	rest, ok := strings.CutPrefix(path, gestion.APIPrefix)
	if !ok || rest == "" {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return gestion.APIPrefix + rest
}

// replay materializes a cached snapshot as a fresh response for req.
func replay(req *http.Request, snap *cache.Snapshot) *http.Response {
	body := make([]byte, len(snap.Body))
	copy(body, snap.Body)
	return &http.Response{
		Status:        http.StatusText(snap.StatusCode),
		StatusCode:    snap.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        snap.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
