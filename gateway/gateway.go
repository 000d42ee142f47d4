// Package gateway performs login, refresh and revoke calls against the
// identity backend and translates backend payloads into the Identity
// representation.
//
// The gateway keeps its own plain HTTP client: its requests must never pass
// through the request authorizer (the refresh call triggering another refresh
// would recurse). The refresh request additionally carries the
// Skip-Interceptor header so any shared transport skips it too.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gestion "github.com/Abraham03/gestion-go"
)

// Client is the HTTP implementation of gestion.Gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// compile-time check
var _ gestion.Gateway = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for backend calls.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) { g.httpClient = c }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Client) { g.logger = l }
}

// New creates a gateway client for the given backend base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("gestion/gateway: baseURL cannot be empty")
	}
	g := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Login exchanges credentials for an authenticated Identity.
func (g *Client) Login(ctx context.Context, creds gestion.Credentials) (*gestion.Identity, error) {
	return g.authCall(ctx, gestion.PathLogin, creds, false)
}

// Refresh exchanges a refresh token for a new Identity. The request carries
// the Skip-Interceptor header so the request authorizer passes it through
// untouched.
func (g *Client) Refresh(ctx context.Context, refreshToken string) (*gestion.Identity, error) {
	return g.authCall(ctx, gestion.PathRefresh, map[string]string{"refreshToken": refreshToken}, true)
}

// Revoke invalidates a refresh token server-side. Failures are returned, but
// callers treat them as best-effort: logout cleanup proceeds regardless.
func (g *Client) Revoke(ctx context.Context, refreshToken string) error {
	resp, err := g.post(ctx, gestion.PathLogout, map[string]string{"refreshToken": refreshToken}, false)
	if err != nil {
		return gestion.NewAuthError(err.Error(), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return g.errorFromResponse(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// authCall performs a login or refresh request and maps the enveloped
// AuthResponse into an Identity.
func (g *Client) authCall(ctx context.Context, path string, payload any, skip bool) (*gestion.Identity, error) {
	resp, err := g.post(ctx, path, payload, skip)
	if err != nil {
		// Transport failures carry no HTTP status; normalize to 500.
		return nil, gestion.NewAuthError(err.Error(), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, g.errorFromResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gestion.NewAuthError(fmt.Sprintf("read response: %v", err), 0)
	}

	var env gestion.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, gestion.NewAuthError(fmt.Sprintf("decode envelope: %v", err), 0)
	}

	var ar gestion.AuthResponse
	if err := json.Unmarshal(env.Data, &ar); err != nil {
		return nil, gestion.NewAuthError(fmt.Sprintf("decode auth payload: %v", err), 0)
	}
	if ar.Token == "" {
		return nil, gestion.NewAuthError("empty token in auth response", 0)
	}

	return ar.Identity(), nil
}

// post sends a JSON POST to baseURL+path.
func (g *Client) post(ctx context.Context, path string, payload any, skip bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gestion/gateway: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gestion/gateway: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if skip {
		req.Header.Set(gestion.HeaderSkipInterceptor, "true")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gestion/gateway: %s request: %w", path, err)
	}
	return resp, nil
}

// errorFromResponse normalizes a non-2xx backend response into an AuthError,
// preferring the envelope message over the HTTP status text.
func (g *Client) errorFromResponse(resp *http.Response) *gestion.AuthError {
	defer func() { _ = resp.Body.Close() }()

	message := ""
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		var env gestion.Envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
			message = env.Message
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	g.logger.Debug("gestion/gateway: backend error",
		"status", resp.StatusCode, "message", message)
	return gestion.NewAuthError(message, resp.StatusCode)
}
