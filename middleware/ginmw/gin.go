// Package ginmw adapts the route guards to Gin middleware for embedded
// admin or BFF servers that front the same backend.
//
// Each middleware evaluates one guard against the shared session and turns
// its Decision into an HTTP response: allowed requests continue down the
// chain, login redirects answer 302 to the login route, and forbidden
// verdicts answer 302 to the forbidden route. API-style callers that prefer
// status codes over redirects can opt into 401/403 via WithJSONResponses.
package ginmw

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Abraham03/gestion-go/guard"
)

type config struct {
	json bool
}

// Option configures the middleware.
type Option func(*config)

// WithJSONResponses answers denied requests with 401/403 JSON bodies
// instead of redirects.
func WithJSONResponses() Option {
	return func(c *config) { c.json = true }
}

// RequireAuthentication returns middleware enforcing an authenticated
// session.
func RequireAuthentication(g *guard.Guards, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)
	return func(c *gin.Context) {
		apply(c, cfg, g.RequireAuthentication(c.Request.Context(), c.Request.URL.Path))
	}
}

// RequireValidToken returns middleware enforcing a decodable, unexpired
// access token. Chain it after RequireAuthentication.
func RequireValidToken(g *guard.Guards, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)
	return func(c *gin.Context) {
		apply(c, cfg, g.RequireValidToken(c.Request.Context(), c.Request.URL.Path))
	}
}

// RequireAccess returns middleware enforcing req on every request it sees.
func RequireAccess(g *guard.Guards, req guard.Requirement, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)
	return func(c *gin.Context) {
		apply(c, cfg, g.RequireAccess(c.Request.Context(), c.Request.URL.Path, req))
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

func apply(c *gin.Context, cfg *config, d guard.Decision) {
	if d.Allowed() {
		c.Next()
		return
	}
	if cfg.json {
		status := http.StatusForbidden
		if d.Action == guard.RedirectLogin {
			status = http.StatusUnauthorized
		}
		c.AbortWithStatusJSON(status, gin.H{"error": "access denied"})
		return
	}
	c.Redirect(http.StatusFound, target(d))
	c.Abort()
}

func target(d guard.Decision) string {
	u := url.URL{Path: d.Target}
	if len(d.Query) > 0 {
		u.RawQuery = d.Query.Encode()
	}
	return u.String()
}
