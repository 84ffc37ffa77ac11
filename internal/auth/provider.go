// Package auth supplies the identity a progress record belongs to. Session
// issuance lives elsewhere; the engine only needs a stable owner id and an
// authenticated flag, and must run correctly without either.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Identity is the resolved owner of the current session.
type Identity struct {
	OwnerID       string
	Authenticated bool
}

// Provider resolves the session identity.
type Provider interface {
	Identify() (Identity, error)
}

// Anonymous is the identity of a local-only session.
var Anonymous = Identity{}

// staticProvider returns a fixed identity. Used for tests and for sessions
// configured with an explicit owner id.
type staticProvider struct {
	identity Identity
}

// NewStaticProvider creates a provider that always reports the given owner.
// An empty ownerID yields the anonymous identity.
func NewStaticProvider(ownerID string) Provider {
	return &staticProvider{identity: Identity{
		OwnerID:       ownerID,
		Authenticated: ownerID != "",
	}}
}

func (p *staticProvider) Identify() (Identity, error) {
	return p.identity, nil
}

// tokenClaims mirrors the claims the auth backend issues.
type tokenClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// tokenProvider extracts the owner id from a signed JWT.
type tokenProvider struct {
	token  string
	secret string
}

// NewTokenProvider creates a provider that validates token against secret and
// reports the token's uid claim as the owner. An empty token yields the
// anonymous identity rather than an error.
func NewTokenProvider(token, secret string) Provider {
	return &tokenProvider{token: token, secret: secret}
}

func (p *tokenProvider) Identify() (Identity, error) {
	if p.token == "" {
		return Anonymous, nil
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(p.token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(p.secret), nil
	})
	if err != nil {
		return Anonymous, err
	}
	if !parsed.Valid || claims.UserID == "" {
		return Anonymous, errors.New("token is missing the owner claim")
	}

	return Identity{OwnerID: claims.UserID, Authenticated: true}, nil
}
