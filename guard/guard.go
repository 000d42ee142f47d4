// Package guard implements the route authorization guards: authentication,
// token validity, and role-or-permission checks.
//
// A guard never navigates by itself. It returns a Decision and the caller
// (a router integration such as ginmw, or application code) acts on it. The
// only side effect a guard performs is the forced session end when it finds
// an expired token, so every integration observes the same cleanup.
package guard

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	gestion "github.com/Abraham03/gestion-go"
	"github.com/Abraham03/gestion-go/audit"
	"github.com/Abraham03/gestion-go/metrics"
	"github.com/Abraham03/gestion-go/token"
)

// Action is the verdict of a guard.
type Action int

const (
	// Allow lets the navigation proceed.
	Allow Action = iota
	// RedirectLogin sends the visitor to the login route.
	RedirectLogin
	// RedirectForbidden sends an authenticated visitor without access to
	// the forbidden route.
	RedirectForbidden
)

// String returns the outcome label used in logs and metrics.
func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	default:
		return "unknown"
	}
}

// Decision is a guard verdict plus, for redirects, where to go.
type Decision struct {
	Action Action
	Target string
	Query  url.Values
}

// Allowed reports whether navigation may proceed.
func (d Decision) Allowed() bool { return d.Action == Allow }

// Requirement is the access rule attached to a route: the visitor needs any
// one of the listed roles or any one of the listed permissions. Role names
// may be given with or without the ROLE_ prefix.
type Requirement struct {
	Roles       []string
	Permissions []string
}

// Session is the slice of the session store the guards consult.
type Session interface {
	IsAuthenticated() bool
	Identity() *gestion.Identity
	Token() string
	HasRole(name string) bool
	HasPermission(name string) bool
	IsSuperAdmin() bool
	ForceEnd(ctx context.Context, reason string)
}

// Guards evaluates route access against the current session.
type Guards struct {
	session Session
	codec   *token.Codec
	logger  *slog.Logger
	met     *metrics.Metrics
	aud     *audit.Logger
}

// Option configures Guards.
type Option func(*Guards)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guards) { g.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guards) { g.met = m }
}

// WithAudit sets the audit logger for denied decisions.
func WithAudit(a *audit.Logger) Option {
	return func(g *Guards) { g.aud = a }
}

// New builds the guard set over session, using codec to judge token
// validity.
func New(session Session, codec *token.Codec, opts ...Option) *Guards {
	g := &Guards{
		session: session,
		codec:   codec,
		logger:  slog.Default(),
		met:     metrics.New(false),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// RequireAuthentication admits any authenticated session. Anonymous
// visitors are sent to login carrying the path they were after, so a later
// login can resume it.
func (g *Guards) RequireAuthentication(ctx context.Context, path string) Decision {
	if g.session.IsAuthenticated() {
		return g.record(ctx, path, Decision{Action: Allow}, "")
	}
	q := url.Values{}
	if path != "" && path != gestion.RouteLogin {
		q.Set("returnUrl", path)
	}
	return g.record(ctx, path, Decision{Action: RedirectLogin, Target: gestion.RouteLogin, Query: q}, "not authenticated")
}

// RequireValidToken admits sessions whose access token decodes and has not
// expired. It runs after RequireAuthentication, so a missing token here
// means corrupted state rather than an anonymous visitor; either way the
// session is ended before redirecting, to keep storage and the redirect
// consistent.
func (g *Guards) RequireValidToken(ctx context.Context, path string) Decision {
	tok := g.session.Token()
	if tok != "" && g.codec.IsValid(tok) {
		return g.record(ctx, path, Decision{Action: Allow}, "")
	}
	g.session.ForceEnd(ctx, "invalid token on navigation")
	q := url.Values{}
	q.Set("sessionExpired", "true")
	return g.record(ctx, path, Decision{Action: RedirectLogin, Target: gestion.RouteLogin, Query: q}, "token invalid or expired")
}

// RequireAccess admits sessions that satisfy req: super admins always pass,
// everyone else must clear every declared check in order. A declared role
// list demands one matching role; that rejection fires before permissions
// are consulted. A declared permission list then demands one held
// permission. An empty requirement admits any authenticated session.
// Anonymous visitors go to login; authenticated visitors failing a check go
// to the forbidden route.
func (g *Guards) RequireAccess(ctx context.Context, path string, req Requirement) Decision {
	if !g.session.IsAuthenticated() {
		return g.record(ctx, path, Decision{Action: RedirectLogin, Target: gestion.RouteLogin}, "not authenticated")
	}
	if g.session.IsSuperAdmin() {
		return g.record(ctx, path, Decision{Action: Allow}, "")
	}
	if len(req.Roles) > 0 && !g.hasAnyRole(req.Roles) {
		return g.record(ctx, path, Decision{Action: RedirectForbidden, Target: gestion.RouteForbidden},
			"requires one of roles "+strings.Join(req.Roles, ","))
	}
	if len(req.Permissions) > 0 && !g.hasAnyPermission(req.Permissions) {
		return g.record(ctx, path, Decision{Action: RedirectForbidden, Target: gestion.RouteForbidden},
			"requires one of permissions "+strings.Join(req.Permissions, ","))
	}
	return g.record(ctx, path, Decision{Action: Allow}, "")
}

func (g *Guards) hasAnyRole(roles []string) bool {
	for _, r := range roles {
		if g.session.HasRole(normalizeRole(r)) {
			return true
		}
	}
	return false
}

func (g *Guards) hasAnyPermission(perms []string) bool {
	for _, p := range perms {
		if g.session.HasPermission(p) {
			return true
		}
	}
	return false
}

// normalizeRole maps route-level role names onto the backend's ROLE_ form.
func normalizeRole(name string) string {
	if strings.HasPrefix(name, "ROLE_") {
		return name
	}
	return "ROLE_" + name
}

// record emits the decision to metrics, the log, and (when denied) the
// audit trail, then returns it unchanged.
func (g *Guards) record(ctx context.Context, path string, d Decision, detail string) Decision {
	g.met.RecordGuardDecision(d.Action.String())
	if d.Allowed() {
		return d
	}
	username := ""
	if id := g.session.Identity(); id != nil {
		username = id.Username
	}
	g.logger.Debug("navigation denied", "path", path, "outcome", d.Action.String(), "detail", detail)
	if g.aud != nil {
		g.aud.LogGuardDenied(ctx, username, path, detail)
	}
	return d
}
