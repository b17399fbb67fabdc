// Package identity resolves the caller's verified user from request
// credentials. The service never handles passwords; it only trusts a
// configured static token or an HS256-signed JWT.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Modes.
const (
	ModeDisabled = "disabled"
	ModeToken    = "token"
	ModeJWT      = "jwt"
)

// ErrInvalidCredential is returned for a credential that is present but wrong.
var ErrInvalidCredential = errors.New("invalid credential")

// User is a verified identity. The zero value means "no identity".
type User struct {
	Name string `json:"name"`
}

// Anonymous reports whether u carries no identity.
func (u User) Anonymous() bool { return u.Name == "" }

type ctxKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user stored by WithUser, or the anonymous user.
func FromContext(ctx context.Context) User {
	u, _ := ctx.Value(ctxKey{}).(User)
	return u
}

// Provider verifies bearer credentials according to its mode.
type Provider struct {
	mode   string
	token  string
	secret []byte
	user   string
}

// NewProvider builds a provider. user is the identity granted in disabled
// mode and for the static token.
func NewProvider(mode, token, secret, user string) *Provider {
	if mode == "" {
		mode = ModeDisabled
	}
	return &Provider{mode: mode, token: token, secret: []byte(secret), user: user}
}

// Identify resolves the Authorization header value. An empty header yields
// the anonymous user except in disabled mode.
func (p *Provider) Identify(authHeader string) (User, error) {
	if p.mode == ModeDisabled {
		return User{Name: p.user}, nil
	}
	if authHeader == "" {
		return User{}, nil
	}
	raw, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || raw == "" {
		return User{}, ErrInvalidCredential
	}

	switch p.mode {
	case ModeToken:
		if raw != p.token {
			return User{}, ErrInvalidCredential
		}
		return User{Name: p.user}, nil
	case ModeJWT:
		return p.parseJWT(raw)
	default:
		return User{}, fmt.Errorf("identity: unknown mode %q", p.mode)
	}
}

func (p *Provider) parseJWT(raw string) (User, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return User{}, ErrInvalidCredential
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, ErrInvalidCredential
	}
	for _, key := range []string{"name", "username", "sub"} {
		if s, ok := claims[key].(string); ok && s != "" {
			return User{Name: s}, nil
		}
	}
	return User{}, ErrInvalidCredential
}

// IssueToken signs an HS256 token for name, valid for ttl.
func IssueToken(secret, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"name": name,
		"sub":  name,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
