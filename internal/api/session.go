package api

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the bearer token of the logged-in user. One session is
// shared by every request a Client makes; it changes only on login and
// logout.
type Session struct {
	mu     sync.RWMutex
	token  string
	claims *jwt.RegisteredClaims
}

func NewSession() *Session {
	return &Session{}
}

// SetToken stores token. When the token is a JWT its registered claims are
// read without verification so expiry can be reported; the server remains
// the only authority on validity.
func (s *Session) SetToken(token string) {
	var claims *jwt.RegisteredClaims
	if token != "" {
		parsed := &jwt.RegisteredClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, parsed); err == nil {
			claims = parsed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.claims = claims
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Clear forgets the token.
func (s *Session) Clear() {
	s.SetToken("")
}

// ExpiresAt returns the exp claim of a JWT token.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return s.claims.ExpiresAt.Time, true
}

// Subject returns the sub claim of a JWT token, or "".
func (s *Session) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.Subject
}

func (s *Session) authorization() string {
	if tok := s.Token(); tok != "" {
		return "Bearer " + tok
	}
	return ""
}
