package server

import (
	"net/http"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
)

// Fallback cookie lifetimes in seconds, used when the backend sends none.
const (
	DefaultAccessMaxAge  = 15 * 60
	DefaultRefreshMaxAge = 7 * 24 * 60 * 60
)

// CookiePolicy writes the session cookies.
type CookiePolicy struct {
	Names  auth.CookieNames
	Secure bool
}

// NewCookiePolicy returns the policy for the standard cookie names. Cookies are Secure in production.
func NewCookiePolicy(production bool) CookiePolicy {
	return CookiePolicy{Names: auth.DefaultCookieNames(), Secure: production}
}

// SetTokens writes the tokens of pair. The access cookie is skipped when no access token was issued
// and the refresh cookie when no refresh token was issued.
func (p CookiePolicy) SetTokens(w http.ResponseWriter, pair *auth.TokenPair) {
	if pair == nil {
		return
	}
	if pair.AccessToken != "" {
		http.SetCookie(w, p.cookie(p.Names.Access, pair.AccessToken, maxAgeOr(pair.AccessMaxAge, DefaultAccessMaxAge)))
	}
	if pair.RefreshToken != "" {
		http.SetCookie(w, p.cookie(p.Names.Refresh, pair.RefreshToken, maxAgeOr(pair.RefreshMaxAge, DefaultRefreshMaxAge)))
	}
}

// Clear expires both session cookies.
func (p CookiePolicy) Clear(w http.ResponseWriter) {
	http.SetCookie(w, p.cookie(p.Names.Access, "", -1))
	http.SetCookie(w, p.cookie(p.Names.Refresh, "", -1))
}

// WriteRotated writes back any tokens rotated while serving the request.
func (p CookiePolicy) WriteRotated(w http.ResponseWriter, sess *auth.Session) {
	if pair, ok := sess.Rotated(); ok {
		p.SetTokens(w, &pair)
	}
}

func (p CookiePolicy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func maxAgeOr(seconds, fallback int) int {
	if seconds > 0 {
		return seconds
	}
	return fallback
}
