package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	r.AddCookie(&http.Cookie{Name: "access", Value: "a1"})
	r.AddCookie(&http.Cookie{Name: "refresh", Value: "r1"})

	access, refresh := FromRequest(r, DefaultCookieNames()).Tokens()
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)

	empty := FromRequest(httptest.NewRequest(http.MethodGet, "/", nil), DefaultCookieNames())
	assert.False(t, empty.Present())
}

func TestSessionPresent(t *testing.T) {
	assert.False(t, (*Session)(nil).Present())
	assert.True(t, NewSession("a", "").Present())
	assert.True(t, NewSession("", "r").Present())
}

func TestSessionAccessExpired(t *testing.T) {
	now := time.Now()

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		access string
		want   bool
	}{
		{"missing", "", true},
		{"opaque token", "not-a-jwt", false},
		{"jwt without exp", noExp, false},
		{"expired jwt", signedToken(t, now.Add(-time.Second)), true},
		{"valid jwt", signedToken(t, now.Add(time.Minute)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSession(tt.access, "r").AccessExpired(now))
		})
	}
}

func TestSessionApply(t *testing.T) {
	sess := NewSession("a1", "r1")

	_, ok := sess.Rotated()
	assert.False(t, ok)

	sess.Apply(&TokenPair{AccessToken: "a2", AccessMaxAge: 900})

	access, refresh := sess.Tokens()
	assert.Equal(t, "a2", access)
	assert.Equal(t, "r1", refresh, "empty refresh token keeps the current one")

	sess.Apply(&TokenPair{AccessToken: "a3", RefreshToken: "r3", RefreshMaxAge: 604800})

	rotated, ok := sess.Rotated()
	require.True(t, ok)
	assert.Equal(t, TokenPair{AccessToken: "a3", RefreshToken: "r3", RefreshMaxAge: 604800}, rotated)

	sess.Apply(nil)
	access, _ = sess.Tokens()
	assert.Equal(t, "a3", access)
}
