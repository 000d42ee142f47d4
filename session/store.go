// Package session holds the current authenticated identity as process-wide
// state with a defined lifecycle, and runs the periodic clock that classifies
// session health.
//
// The identity is an immutable snapshot: Commit and Clear replace the whole
// value. Observers receive each snapshot synchronously after the swap, never
// an intermediate state.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	gestion "github.com/Abraham03/gestion-go"
	"github.com/Abraham03/gestion-go/audit"
	"github.com/Abraham03/gestion-go/metrics"
)

// StorageKey is the single durable-storage key holding the serialized
// identity snapshot.
const StorageKey = "currentUser"

// sessionExpiredParam is attached to the login redirect on forced session end
// so the login screen can explain why the user landed there.
const sessionExpiredParam = "sessionExpired"

// Store holds the current authenticated identity and performs the session
// operations (login, refresh, logout, forced end).
type Store struct {
	storage  gestion.Storage
	gw       gestion.Gateway
	nav      gestion.Navigator
	notifier gestion.Notifier
	logger   *slog.Logger
	aud      *audit.Logger
	met      *metrics.Metrics

	mu          sync.RWMutex
	identity    *gestion.Identity
	warned      bool
	resettables []gestion.Resettable
	subs        map[int]func(*gestion.Identity)
	nextSubID   int
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithNavigator sets the navigation surface used on logout and forced end.
func WithNavigator(n gestion.Navigator) Option {
	return func(s *Store) { s.nav = n }
}

// WithNotifier sets the notification surface for session notices.
func WithNotifier(n gestion.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithAudit sets the audit trail for session events.
func WithAudit(a *audit.Logger) Option {
	return func(s *Store) { s.aud = a }
}

// WithMetrics sets the metrics sink for session events.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.met = m }
}

// NewStore creates a session store backed by the given durable storage and
// identity gateway. Call Load to adopt a previously persisted session.
func NewStore(storage gestion.Storage, gw gestion.Gateway, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		gw:      gw,
		logger:  slog.Default(),
		met:     metrics.New(false),
		subs:    make(map[int]func(*gestion.Identity)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load reads the persisted identity snapshot from storage. A snapshot is
// adopted only if it carries a token, an authorities list and a roles list;
// on any structural mismatch or parse failure the state AND the storage are
// cleared rather than adopting partial data.
func (s *Store) Load() {
	data, ok, err := s.storage.Read(StorageKey)
	if err != nil {
		s.logger.Warn("gestion/session: read persisted session", "error", err)
		s.Clear()
		return
	}
	if !ok {
		return
	}

	var id gestion.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		s.logger.Warn("gestion/session: persisted session unparseable", "error", err)
		s.Clear()
		return
	}
	if id.Token == "" || id.Authorities == nil || id.Roles == nil {
		s.logger.Warn("gestion/session: persisted session incomplete, discarding")
		s.Clear()
		return
	}

	s.mu.Lock()
	s.identity = &id
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(&id)
	}
}

// Commit persists the identity and swaps it into memory. Storage is written
// first so no observer ever sees an identity that failed to persist.
func (s *Store) Commit(id *gestion.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := s.storage.Write(StorageKey, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = id
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(id)
	}
	return nil
}

// Clear removes the persisted snapshot, nulls the identity, resets the
// session-warning flag and returns every registered dependent store to its
// initial state. Clear is idempotent.
func (s *Store) Clear() {
	if err := s.storage.Delete(StorageKey); err != nil {
		s.logger.Warn("gestion/session: delete persisted session", "error", err)
	}

	s.mu.Lock()
	s.identity = nil
	s.warned = false
	resettables := make([]gestion.Resettable, len(s.resettables))
	copy(resettables, s.resettables)
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, r := range resettables {
		r.Reset()
	}
	for _, fn := range subs {
		fn(nil)
	}
}

// RegisterResettable adds a dependent store that must be reset when the
// session is cleared.
func (s *Store) RegisterResettable(r gestion.Resettable) {
	s.mu.Lock()
	s.resettables = append(s.resettables, r)
	s.mu.Unlock()
}

// Subscribe registers an observer that receives each identity snapshot
// (nil on clear) synchronously after it is swapped in. The returned cancel
// function removes the subscription.
func (s *Store) Subscribe(fn func(*gestion.Identity)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// snapshotSubs copies the subscriber list. Callers must hold s.mu.
func (s *Store) snapshotSubs() []func(*gestion.Identity) {
	out := make([]func(*gestion.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

// Identity returns the current snapshot, or nil when unauthenticated.
// Callers must treat it as immutable.
func (s *Store) Identity() *gestion.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// IsAuthenticated reports whether a snapshot is held.
func (s *Store) IsAuthenticated() bool {
	return s.Identity() != nil
}

// Token returns the current access token, or empty.
func (s *Store) Token() string {
	if id := s.Identity(); id != nil {
		return id.Token
	}
	return ""
}

// RefreshToken returns the current refresh token, or empty.
func (s *Store) RefreshToken() string {
	if id := s.Identity(); id != nil {
		return id.RefreshToken
	}
	return ""
}

// Permissions returns the flattened authority strings, or empty.
func (s *Store) Permissions() []string {
	if id := s.Identity(); id != nil && id.Authorities != nil {
		return id.Authorities
	}
	return []string{}
}

// Roles returns the structured roles, or empty.
func (s *Store) Roles() []gestion.Role {
	if id := s.Identity(); id != nil && id.Roles != nil {
		return id.Roles
	}
	return []gestion.Role{}
}

// Plan returns the tenant plan, or empty when absent.
func (s *Store) Plan() string {
	if id := s.Identity(); id != nil {
		return id.Plan
	}
	return ""
}

// CompanyID returns the tenant company id, or zero when absent.
func (s *Store) CompanyID() int64 {
	if id := s.Identity(); id != nil {
		return id.EmpresaID
	}
	return 0
}

// CompanyName returns the tenant company name, or empty when absent.
func (s *Store) CompanyName() string {
	if id := s.Identity(); id != nil {
		return id.EmpresaNombre
	}
	return ""
}

// LogoURL returns the tenant logo URL, or empty when absent.
func (s *Store) LogoURL() string {
	if id := s.Identity(); id != nil {
		return id.LogoURL
	}
	return ""
}

// HasRole reports whether the identity holds the exact role name
// (e.g. "ROLE_ADMIN").
func (s *Store) HasRole(name string) bool {
	for _, r := range s.Roles() {
		if r.Name == name {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the identity holds a role that overrides
// every role and permission check.
func (s *Store) IsSuperAdmin() bool {
	return s.HasRole(gestion.RoleSuperAdmin) || s.HasRole(gestion.RoleAdmin)
}

// HasPermission reports whether the flattened authorities contain name.
// Super-admin roles short-circuit to true.
func (s *Store) HasPermission(name string) bool {
	if s.HasRole(gestion.RoleSuperAdmin) {
		return true
	}
	for _, p := range s.Permissions() {
		if p == name {
			return true
		}
	}
	return false
}

// Login authenticates against the backend and commits the resulting identity.
func (s *Store) Login(ctx context.Context, creds gestion.Credentials) error {
	s.met.RecordAuthRequest("login")
	id, err := s.gw.Login(ctx, creds)
	if err != nil {
		s.recordFailure(ctx, audit.ActionLogin, "login", creds.Username, err)
		return err
	}
	if err := s.Commit(id); err != nil {
		return err
	}
	if s.aud != nil {
		s.aud.LogAuth(ctx, audit.ActionLogin, id.ID, id.Username, nil)
	}
	return nil
}

// Refresh exchanges the current refresh token for a new identity snapshot.
// A successful refresh clears the session-warning flag so a later expiry can
// warn again.
func (s *Store) Refresh(ctx context.Context) error {
	rt := s.RefreshToken()
	if rt == "" {
		return gestion.NewAuthError("no refresh token held", 401)
	}

	s.met.RecordAuthRequest("refresh")
	start := time.Now()
	id, err := s.gw.Refresh(ctx, rt)
	if err != nil {
		s.met.RecordRefresh("failure", time.Since(start).Seconds())
		s.recordFailure(ctx, audit.ActionRefresh, "refresh", "", err)
		return err
	}
	if err := s.Commit(id); err != nil {
		return err
	}

	s.mu.Lock()
	s.warned = false
	s.mu.Unlock()

	s.met.RecordRefresh("success", time.Since(start).Seconds())
	if s.aud != nil {
		s.aud.LogAuth(ctx, audit.ActionRefresh, id.ID, id.Username, nil)
	}
	return nil
}

// Logout revokes the refresh token best-effort, clears the session and
// navigates to the login destination. Revoke failures never block cleanup.
func (s *Store) Logout(ctx context.Context) {
	id := s.Identity()
	if rt := s.RefreshToken(); rt != "" {
		s.met.RecordAuthRequest("revoke")
		if err := s.gw.Revoke(ctx, rt); err != nil {
			s.logger.Warn("gestion/session: revoke failed, continuing logout", "error", err)
		}
	}

	s.Clear()
	if s.aud != nil && id != nil {
		s.aud.LogAuth(ctx, audit.ActionLogout, id.ID, id.Username, nil)
	}
	if s.nav != nil {
		s.nav.NavigateTo(gestion.RouteLogin, gestion.NavigateOptions{})
	}
}

// ForceEnd performs the forced session end: clear state, navigate to the
// login destination carrying the session-expired flag, and surface exactly
// one expiry notice. Calling it while already unauthenticated is a no-op, so
// one expiry event never produces duplicate notices.
func (s *Store) ForceEnd(ctx context.Context, reason string) {
	id := s.Identity()
	if id == nil {
		return
	}

	s.Clear()
	s.met.RecordForcedEnd()
	if s.aud != nil {
		s.aud.LogForcedEnd(ctx, id.Username, reason)
	}
	s.logger.Info("gestion/session: forced session end", "reason", reason)

	if s.nav != nil {
		s.nav.NavigateTo(gestion.RouteLogin, gestion.NavigateOptions{
			Query: url.Values{sessionExpiredParam: {"true"}},
		})
	}
	if s.notifier != nil {
		s.notifier.Notify(gestion.Notification{
			Message:  "La sesión ha expirado. Inicia sesión nuevamente.",
			Duration: 5 * time.Second,
			Style:    "warn",
		})
	}
}

// recordFailure folds the failure into metrics and the audit trail.
func (s *Store) recordFailure(ctx context.Context, action, op, username string, err error) {
	status := "unknown"
	if ae, ok := gestion.AsAuthError(err); ok {
		status = httpStatusLabel(ae.Status)
	}
	s.met.RecordAuthFailure(op, status)
	if s.aud != nil {
		s.aud.LogAuth(ctx, action, 0, username, err)
	}
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "other"
	}
}

// warningShown reports whether the expiring-session warning was already
// surfaced for this session.
func (s *Store) warningShown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warned
}

// markWarningShown records that the expiring-session warning was surfaced.
func (s *Store) markWarningShown() {
	s.mu.Lock()
	s.warned = true
	s.mu.Unlock()
}
