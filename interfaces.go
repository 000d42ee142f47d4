package gestion

import (
	"context"
	"net/url"
	"time"
)

// Storage is the durable key-value store backing the session layer. One string
// key holds the serialized Identity: read at startup, written on every commit,
// removed on clear.
// Implementations: storage/ (file and in-memory).
type Storage interface {
	// Read returns the value for key and whether it exists.
	Read(key string) ([]byte, bool, error)

	// Write stores the value for key, replacing any previous value.
	Write(key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string) error
}

// NavigateOptions carries optional query parameters and opaque state for a
// navigation request.
type NavigateOptions struct {
	Query url.Values
	State map[string]string
}

// Navigator is the navigation surface owned by the host application. The
// session layer uses it to redirect to the login destination on forced
// session end and to the forbidden page on authorization failure.
type Navigator interface {
	NavigateTo(path string, opts NavigateOptions)
}

// Notification is a transient user-visible message, optionally carrying an
// action the user can accept (e.g. "Renovar" on the session-expiring prompt).
type Notification struct {
	Message     string
	ActionLabel string
	Duration    time.Duration
	Style       string
}

// Notifier surfaces transient notifications to the user. The returned channel
// receives once if the user accepts the notification's action; it is closed
// when the notification is dismissed without action. Implementations with no
// actionable UI may return a closed channel.
type Notifier interface {
	Notify(n Notification) <-chan struct{}
}

// Gateway performs the identity-backend calls and translates backend payloads
// into the Identity representation. All failures are normalized to *AuthError.
// Implementations: gateway/ (HTTP), fake/ (testing).
type Gateway interface {
	// Login exchanges credentials for an authenticated Identity.
	Login(ctx context.Context, creds Credentials) (*Identity, error)

	// Refresh exchanges a refresh token for a new Identity. The request must
	// bypass the request authorizer's token attachment.
	Refresh(ctx context.Context, refreshToken string) (*Identity, error)

	// Revoke invalidates a refresh token server-side. Callers treat failures
	// as best-effort: logout cleanup proceeds regardless.
	Revoke(ctx context.Context, refreshToken string) error
}

// Resettable is implemented by dependent client-side stores (per-entity
// caches) that must return to their initial empty state when the session is
// cleared.
type Resettable interface {
	Reset()
}
