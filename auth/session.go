// Package auth provides the authenticated client used by portal routes to call the backend
// on behalf of the current user.
package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default cookie names of the session token pair.
const (
	DefaultAccessCookie  = "access"
	DefaultRefreshCookie = "refresh"
)

// CookieNames names the two session cookies.
type CookieNames struct {
	Access  string
	Refresh string
}

// DefaultCookieNames returns the standard access/refresh cookie names.
func DefaultCookieNames() CookieNames {
	return CookieNames{Access: DefaultAccessCookie, Refresh: DefaultRefreshCookie}
}

// TokenPair is a set of tokens issued by the backend together with their lifetimes in seconds.
type TokenPair struct {
	AccessToken   string
	AccessMaxAge  int
	RefreshToken  string
	RefreshMaxAge int
}

// TokenRefresher exchanges a refresh token for a new token pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// Session is the token context of one incoming request.
// It is passed explicitly into every authenticated call and records any tokens
// rotated during the request so the route layer can write them back as cookies.
type Session struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	rotated      *TokenPair
}

// NewSession creates a Session from raw tokens.
func NewSession(accessToken, refreshToken string) *Session {
	return &Session{accessToken: accessToken, refreshToken: refreshToken}
}

// FromRequest reads the session cookies of r.
func FromRequest(r *http.Request, names CookieNames) *Session {
	s := &Session{}
	if c, err := r.Cookie(names.Access); err == nil {
		s.accessToken = c.Value
	}
	if c, err := r.Cookie(names.Refresh); err == nil {
		s.refreshToken = c.Value
	}
	return s
}

// Tokens returns the current access and refresh tokens.
func (s *Session) Tokens() (access, refresh string) {
	if s == nil {
		return "", ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// Present reports whether at least one of the two tokens is set.
func (s *Session) Present() bool {
	access, refresh := s.Tokens()
	return access != "" || refresh != ""
}

// AccessExpired reports whether the access token is missing or carries an exp claim before now.
// The token signature is not verified; the backend remains the authority.
// Tokens that are not JWTs, or have no exp claim, count as not expired.
func (s *Session) AccessExpired(now time.Time) bool {
	access, _ := s.Tokens()
	if access == "" {
		return true
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

// Apply stores a freshly issued token pair. An empty refresh token keeps the current one.
func (s *Session) Apply(pair *TokenPair) {
	if s == nil || pair == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		s.refreshToken = pair.RefreshToken
	}

	p := *pair
	s.rotated = &p
}

// Rotated returns the last token pair applied to the session.
func (s *Session) Rotated() (TokenPair, bool) {
	if s == nil {
		return TokenPair{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotated == nil {
		return TokenPair{}, false
	}
	return *s.rotated, true
}
