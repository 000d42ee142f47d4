// Package fake provides in-memory implementations of the gateway,
// navigator, and notifier interfaces for testing.
//
// Use fake.NewGateway() in unit tests to exercise login, refresh, and
// forced-expiry flows without a backend. Tokens it mints are real
// three-segment JWTs with an exp claim, so the token codec and the session
// clock treat them exactly like production tokens.
package fake

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	gestion "github.com/Abraham03/gestion-go"
)

// Option configures the fake gateway.
type Option func(*Gateway)

type account struct {
	password    string
	identity    gestion.Identity
	disabled    bool
	refreshable bool
}

// Gateway is an in-memory gestion.Gateway. It tracks issued refresh tokens
// and revocations, so tests can assert on the full session lifecycle.
type Gateway struct {
	mu       sync.Mutex
	accounts map[string]*account
	refresh  map[string]string // refresh token → username
	revoked  []string
	tokenTTL time.Duration

	loginErr   error
	refreshErr error
}

var _ gestion.Gateway = (*Gateway)(nil)

// WithAccount registers a login. The identity's Username is used as the
// account name; Token and RefreshToken are minted at login time.
func WithAccount(password string, id gestion.Identity) Option {
	return func(g *Gateway) {
		g.accounts[id.Username] = &account{
			password:    password,
			identity:    id,
			refreshable: true,
		}
	}
}

// WithTokenTTL sets the lifetime of minted access tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(g *Gateway) { g.tokenTTL = d }
}

// WithLoginError makes every Login call fail with err.
func WithLoginError(err error) Option {
	return func(g *Gateway) { g.loginErr = err }
}

// WithRefreshError makes every Refresh call fail with err.
func WithRefreshError(err error) Option {
	return func(g *Gateway) { g.refreshErr = err }
}

// NewGateway builds an in-memory gateway.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		accounts: make(map[string]*account),
		refresh:  make(map[string]string),
		tokenTTL: time.Hour,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Login implements gestion.Gateway.
func (g *Gateway) Login(ctx context.Context, creds gestion.Credentials) (*gestion.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loginErr != nil {
		return nil, g.loginErr
	}
	acct, ok := g.accounts[creds.Username]
	if !ok || acct.password != creds.Password {
		return nil, gestion.NewAuthError("Credenciales inválidas", 401)
	}
	if acct.disabled {
		return nil, gestion.NewAuthError("Usuario deshabilitado", 403)
	}
	return g.issue(acct), nil
}

// Refresh implements gestion.Gateway. The refresh token must have been
// issued by a previous Login or Refresh and not revoked since.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (*gestion.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refreshErr != nil {
		return nil, g.refreshErr
	}
	username, ok := g.refresh[refreshToken]
	if !ok {
		return nil, gestion.NewAuthError("Refresh token inválido", 401)
	}
	acct := g.accounts[username]
	if acct == nil || acct.disabled || !acct.refreshable {
		return nil, gestion.NewAuthError("Refresh token inválido", 401)
	}
	delete(g.refresh, refreshToken)
	return g.issue(acct), nil
}

// Revoke implements gestion.Gateway.
func (g *Gateway) Revoke(ctx context.Context, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revoked = append(g.revoked, token)
	return nil
}

// Disable marks an account so further logins and refreshes fail, the way a
// deactivated user behaves in production.
func (g *Gateway) Disable(username string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if acct := g.accounts[username]; acct != nil {
		acct.disabled = true
	}
}

// ExpireRefreshTokens invalidates every outstanding refresh token.
func (g *Gateway) ExpireRefreshTokens() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refresh = make(map[string]string)
}

// Revoked returns the tokens passed to Revoke, in order.
func (g *Gateway) Revoked() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.revoked))
	copy(out, g.revoked)
	return out
}

// issue mints fresh tokens for acct. Caller holds the lock.
func (g *Gateway) issue(acct *account) *gestion.Identity {
	id := acct.identity
	exp := time.Now().Add(g.tokenTTL)
	id.Token = MintToken(id.Username, exp)
	id.RefreshToken = uuid.NewString()
	id.ExpirationDate = exp
	id.TokenType = "Bearer"
	id.Enabled = true
	g.refresh[id.RefreshToken] = id.Username
	return &id
}

// MintToken builds an unsigned three-segment JWT with sub and exp claims.
// The signature segment is not verifiable; client-side code only decodes.
func MintToken(subject string, exp time.Time) string {
	enc := func(v any) string {
		raw, _ := json.Marshal(v)
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	header := enc(map[string]string{"alg": "HS256", "typ": "JWT"})
	payload := enc(map[string]any{"sub": subject, "exp": exp.Unix()})
	return fmt.Sprintf("%s.%s.%s", header, payload, uuid.NewString())
}

// Navigator records navigations for assertions.
type Navigator struct {
	mu    sync.Mutex
	moves []Move
}

// Move is one recorded navigation.
type Move struct {
	Target string
	Query  url.Values
}

var _ gestion.Navigator = (*Navigator)(nil)

// NewNavigator builds a recording navigator.
func NewNavigator() *Navigator {
	return &Navigator{}
}

// NavigateTo implements gestion.Navigator.
func (n *Navigator) NavigateTo(target string, opts gestion.NavigateOptions) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.moves = append(n.moves, Move{Target: target, Query: opts.Query})
}

// Moves returns the recorded navigations, in order.
func (n *Navigator) Moves() []Move {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Move, len(n.moves))
	copy(out, n.moves)
	return out
}

// Last returns the most recent navigation.
func (n *Navigator) Last() (Move, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.moves) == 0 {
		return Move{}, false
	}
	return n.moves[len(n.moves)-1], true
}

// Notifier records notices. With AutoAct set, every notice's action channel
// immediately delivers one activation, simulating a user who always clicks.
type Notifier struct {
	mu      sync.Mutex
	notices []gestion.Notification

	// AutoAct simulates the user activating every notice action.
	AutoAct bool
}

var _ gestion.Notifier = (*Notifier)(nil)

// NewNotifier builds a recording notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Notify implements gestion.Notifier.
func (n *Notifier) Notify(notice gestion.Notification) <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	ch := make(chan struct{}, 1)
	if n.AutoAct {
		ch <- struct{}{}
	}
	return ch
}

// Notices returns the recorded notices, in order.
func (n *Notifier) Notices() []gestion.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]gestion.Notification, len(n.notices))
	copy(out, n.notices)
	return out
}
