package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gestion "github.com/Abraham03/gestion-go"
	"golang.org/x/sync/singleflight"
)

// SessionController is the slice of the session store the authorizer needs:
// the current access token, a refresh attempt, and the forced session end.
type SessionController interface {
	Token() string
	Refresh(ctx context.Context) error
	ForceEnd(ctx context.Context, reason string)
}

// Authorizer attaches the bearer token to outgoing requests and performs a
// single refresh-and-retry when the backend answers 401.
//
// Concurrent 401s share one refresh call: each failing request waits for the
// in-flight refresh instead of issuing its own, then retries with whatever
// token the shared attempt produced.
type Authorizer struct {
	next    http.RoundTripper
	session SessionController
	logger  *slog.Logger

	sf singleflight.Group
}

// AuthorizerOption configures the Authorizer.
type AuthorizerOption func(*Authorizer)

// WithAuthorizerLogger sets the logger.
func WithAuthorizerLogger(l *slog.Logger) AuthorizerOption {
	return func(a *Authorizer) { a.logger = l }
}

// NewAuthorizer builds the authorizer stage bound to session.
func NewAuthorizer(session SessionController, opts ...AuthorizerOption) Stage {
	return func(next http.RoundTripper) http.RoundTripper {
		a := &Authorizer{
			next:    next,
			session: session,
			logger:  slog.Default(),
		}
		for _, o := range opts {
			o(a)
		}
		return a
	}
}

var _ http.RoundTripper = (*Authorizer)(nil)

// exempt reports whether the request must bypass token attachment and the
// 401 handling: the auth endpoints themselves, and anything carrying the
// skip header (the refresh call, to avoid recursion).
func exempt(req *http.Request) bool {
	if req.Header.Get(gestion.HeaderSkipInterceptor) != "" {
		return true
	}
	return strings.HasPrefix(req.URL.Path, "/auth/")
}

// RoundTrip implements http.RoundTripper.
func (a *Authorizer) RoundTrip(req *http.Request) (*http.Response, error) {
	if exempt(req) {
		return a.next.RoundTrip(req)
	}

	out := cloneWithToken(req, a.session.Token())
	resp, err := a.next.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// The retry replaces this response entirely.
	drain(resp)

	ctx := req.Context()
	_, refreshErr, _ := a.sf.Do("refresh", func() (any, error) {
		return nil, a.session.Refresh(ctx)
	})
	if refreshErr != nil {
		a.logger.Warn("token refresh failed, ending session", "path", req.URL.Path, "error", refreshErr)
		a.session.ForceEnd(ctx, "refresh failed")
		return noContent(req), nil
	}

	token := a.session.Token()
	if token == "" {
		// The refresh reported success but committed no usable token.
		a.logger.Warn("no token after refresh, ending session", "path", req.URL.Path)
		a.session.ForceEnd(ctx, "no token after refresh")
		return noContent(req), nil
	}

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}
	retry = cloneWithToken(retry, token)
	return a.next.RoundTrip(retry)
}

// cloneWithToken returns a shallow clone of req carrying the bearer token.
// An empty token leaves the request untouched aside from the clone.
func cloneWithToken(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out
}

// rewind rebuilds the request body for a retry. Requests without a body
// retry as-is; anything with a body must provide GetBody, since the first
// dispatch already consumed the original reader.
func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("gestion/transport: request body is not replayable for retry")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

// noContent synthesizes an empty success so a swallowed request completes
// without payload instead of surfacing a transport error to the caller.
func noContent(req *http.Request) *http.Response {
	return &http.Response{
		Status:     http.StatusText(http.StatusNoContent),
		StatusCode: http.StatusNoContent,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       http.NoBody,
		Request:    req,
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
