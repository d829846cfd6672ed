// Package identity supplies the {userId, userName} pair the membership
// protocol requires before any join is attempted. Absence of identity
// means "not ready to join", never an error.
package identity

import (
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Identity is the pair stamped onto join/leave events and occupant rows.
type Identity struct {
	UserID   string
	UserName string
}

// Provider yields the current identity. The second return is false
// while identity is not yet available (signed out, token pending).
type Provider interface {
	Identity() (Identity, bool)
}

// Static always returns a fixed identity. Used in tests and tooling.
type Static struct {
	ID Identity
}

func (s Static) Identity() (Identity, bool) {
	if s.ID.UserID == "" {
		return Identity{}, false
	}
	return s.ID, true
}

// NewSession fabricates a per-session identity with a random userId,
// for clients running without an account. Presence keyed this way lives
// and dies with the session.
func NewSession(userName string) Identity {
	return Identity{UserID: uuid.NewString(), UserName: userName}
}

type claims struct {
	UserName string `json:"name"`
	jwt.RegisteredClaims
}

// FromToken extracts a stable account identity from a signed JWT: the
// subject claim becomes userId and the name claim userName.
func FromToken(tokenString, secret string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid || c.Subject == "" {
		return Identity{}, fmt.Errorf("token has no subject")
	}
	return Identity{UserID: c.Subject, UserName: c.UserName}, nil
}

// TokenProvider holds identity parsed from a JWT. SetToken may be
// called whenever the host refreshes its session; Clear drops identity
// on sign-out.
type TokenProvider struct {
	mu     sync.Mutex
	secret string
	id     *Identity
}

func NewTokenProvider(secret string) *TokenProvider {
	return &TokenProvider{secret: secret}
}

func (p *TokenProvider) SetToken(tokenString string) error {
	id, err := FromToken(tokenString, p.secret)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.id = &id
	p.mu.Unlock()
	return nil
}

func (p *TokenProvider) Clear() {
	p.mu.Lock()
	p.id = nil
	p.mu.Unlock()
}

func (p *TokenProvider) Identity() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.id == nil {
		return Identity{}, false
	}
	return *p.id, true
}
