package gestion

import "time"

// Identity is the authenticated user's combined profile, tokens, roles and
// permissions held by the session layer. An Identity is an immutable snapshot:
// refresh and logout replace the whole value, never edit it in place.
type Identity struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Roles          []Role    `json:"roles"`
	Authorities    []string  `json:"authorities"`
	Token          string    `json:"token"`
	RefreshToken   string    `json:"refreshToken,omitempty"`
	ExpirationDate time.Time `json:"expirationDate,omitempty"`
	TokenType      string    `json:"tokenType,omitempty"`
	Enabled        bool      `json:"enabled"`
	EmpresaID      int64     `json:"empresaId,omitempty"`
	EmpresaNombre  string    `json:"empresaNombre,omitempty"`
	Plan           string    `json:"plan,omitempty"`
	LogoURL        string    `json:"logoUrl,omitempty"`
}

// Role is a named role assigned to a user. Names are conventionally prefixed
// with "ROLE_". At login time the backend returns flat role-name strings, so
// Description and Permissions are usually empty.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Permission is a single named permission attached to a role.
type Permission struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Role names that override every role and permission check.
const (
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
	RoleAdmin      = "ROLE_ADMIN"
)

// Credentials are the username/password pair sent to the login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the backend payload returned by the login and refresh
// endpoints, inside the standard envelope.
type AuthResponse struct {
	Token          string    `json:"token"`
	RefreshToken   string    `json:"refreshToken,omitempty"`
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Authorities    []string  `json:"authorities"`
	ExpirationDate time.Time `json:"expirationDate"`
	Type           string    `json:"type"`
	Roles          []string  `json:"roles"`
	Enabled        bool      `json:"enabled"`
	EmpresaID      int64     `json:"empresaId"`
	EmpresaNombre  string    `json:"empresaNombre,omitempty"`
	Plan           string    `json:"plan"`
	LogoURL        string    `json:"logoUrl,omitempty"`
}

// Identity builds the session Identity from the backend auth payload. The
// backend returns flat role-name strings at login time, so a Role value is
// synthesized per name with a zero ID and no permissions.
func (r *AuthResponse) Identity() *Identity {
	roles := make([]Role, 0, len(r.Roles))
	for _, name := range r.Roles {
		roles = append(roles, Role{Name: name})
	}
	return &Identity{
		ID:             r.ID,
		Username:       r.Username,
		Roles:          roles,
		Authorities:    r.Authorities,
		Token:          r.Token,
		RefreshToken:   r.RefreshToken,
		ExpirationDate: r.ExpirationDate,
		TokenType:      r.Type,
		Enabled:        r.Enabled,
		EmpresaID:      r.EmpresaID,
		EmpresaNombre:  r.EmpresaNombre,
		Plan:           r.Plan,
		LogoURL:        r.LogoURL,
	}
}

// Page is the backend pagination wrapper carried inside an envelope's data
// field for list endpoints.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
	Empty         bool  `json:"empty"`
}

// ListOptions holds pagination parameters for list requests.
type ListOptions struct {
	Page     int
	PageSize int
}
