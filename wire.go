package gestion

import "encoding/json"

// Backend route constants. The auth endpoints are exempt from bearer
// attachment and from response caching.
const (
	PathLogin   = "/auth/login"
	PathRefresh = "/auth/refresh"
	PathLogout  = "/auth/logout"

	// APIPrefix is the root of all resource endpoints; cache keys and
	// invalidation prefixes are derived from the segment that follows it.
	APIPrefix = "/api/"

	// DashboardPrefix is invalidated on every mutation to any resource:
	// dashboard views aggregate across resources and must never serve stale
	// data.
	DashboardPrefix = "/api/dashboard"
)

// Navigation destinations consumed by the guards and the forced session end.
const (
	RouteLogin     = "/login"
	RouteForbidden = "/forbidden"
)

// HeaderSkipInterceptor marks a request that must bypass the request
// authorizer's token attachment (the refresh call itself, to avoid
// recursion).
const HeaderSkipInterceptor = "Skip-Interceptor"

// Envelope is the backend's uniform response wrapper. Every endpoint returns
// it; data may itself be a Page.
type Envelope struct {
	Status    int             `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"`
}
