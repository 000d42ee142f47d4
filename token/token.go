// Package token decodes access-token payloads to extract expiry and claims.
//
// The codec never verifies signatures: the session layer trusts server-issued
// tokens and only needs the embedded expiry to predict when to refresh.
// Decode failures collapse to gestion.ErrMalformedToken; they never escape as
// anything a caller would have to treat as fatal.
package token

import (
	"fmt"
	"time"

	gestion "github.com/Abraham03/gestion-go"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields extracted from a decoded token payload.
type Claims struct {
	// Subject is the "sub" claim, typically the username.
	Subject string

	// ExpiresAt is the "exp" claim as wall-clock time; zero when absent.
	ExpiresAt time.Time

	// Raw holds the full decoded claim set.
	Raw map[string]any
}

// Codec decodes and classifies tokens.
type Codec struct {
	parser *jwt.Parser
	now    func() time.Time
}

// Option configures the Codec.
type Option func(*Codec)

// WithNow overrides the clock used for expiry checks. Intended for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec creates a token codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		parser: jwt.NewParser(jwt.WithPaddingAllowed()),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Decode splits the token into its three segments, base64-decodes the payload
// segment and parses it as JSON claims. It returns gestion.ErrMalformedToken
// (wrapped) if any of those steps fail.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	parsed, _, err := c.parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gestion.ErrMalformedToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims shape", gestion.ErrMalformedToken)
	}

	claims := &Claims{Raw: mapClaims}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gestion.ErrMalformedToken, err)
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// IsValid reports whether the token decodes and its expiry is in the future.
// Tokens without an "exp" claim are invalid.
func (c *Codec) IsValid(tokenString string) bool {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return false
	}
	if claims.ExpiresAt.IsZero() {
		return false
	}
	return claims.ExpiresAt.After(c.now())
}

// ExpiresWithin reports whether the token expires inside the given window.
// Undecodable tokens and tokens without an expiry report true: the session
// layer fails safe toward re-authentication.
func (c *Codec) ExpiresWithin(tokenString string, window time.Duration) bool {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return true
	}
	return claims.ExpiresAt.Sub(c.now()) < window
}
