package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dorico-Dynamics/txova-go-portal/base"
)

type stubRefresher struct {
	calls atomic.Int32
	delay time.Duration
	pair  *TokenPair
	err   error
	seen  []string
	mu    sync.Mutex
}

func (s *stubRefresher) Refresh(_ context.Context, refreshToken string) (*TokenPair, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, refreshToken)
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.pair, s.err
}

func newTestClient(t *testing.T, serverURL string, refresher TokenRefresher) *Client {
	t.Helper()

	b, err := base.NewClient(&base.Config{
		Origins: base.Origins{Server: serverURL},
		Trace:   base.TraceState{Enabled: true},
	}, nil)
	require.NoError(t, err)

	return NewClient(b, refresher, nil)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestFetchWithoutTokens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &stubRefresher{})

	for _, sess := range []*Session{nil, NewSession("", "")} {
		_, err := client.Fetch(context.Background(), sess, "/users/profile", nil)

		apiErr, ok := base.AsAPIError(err)
		require.True(t, ok, "expected APIError, got %v", err)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, MessageNoAccessCookie, apiErr.Payload.String("message"))
	}

	assert.Zero(t, calls.Load(), "no network call expected")
}

func TestFetchRecoversExpiredAccessCookie(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/admin/users/profile", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"token expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"name":"X"}`))
	}))
	defer server.Close()

	refresher := &stubRefresher{pair: &TokenPair{AccessToken: "fresh", AccessMaxAge: 900}}
	client := newTestClient(t, server.URL, refresher)
	sess := NewSession("stale", "")

	type profile struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	got, err := FetchJSON[profile](context.Background(), client, sess, "/admin/users/profile", nil)
	require.NoError(t, err)
	assert.Equal(t, profile{ID: 1, Name: "X"}, got)
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.Equal(t, int32(2), calls.Load())

	rotated, ok := sess.Rotated()
	require.True(t, ok)
	assert.Equal(t, "fresh", rotated.AccessToken)
	assert.Equal(t, 900, rotated.AccessMaxAge)
}

func TestFetchRefreshesProactively(t *testing.T) {
	tests := []struct {
		name   string
		access func(t *testing.T) string
	}{
		{"missing access token", func(*testing.T) string { return "" }},
		{"expired access JWT", func(t *testing.T) string { return signedToken(t, time.Now().Add(-time.Minute)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var auths []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auths = append(auths, r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(`{}`))
			}))
			defer server.Close()

			refresher := &stubRefresher{pair: &TokenPair{AccessToken: "fresh", RefreshToken: "r2"}}
			client := newTestClient(t, server.URL, refresher)
			sess := NewSession(tt.access(t), "r1")

			_, err := client.Fetch(context.Background(), sess, "/orders", nil)
			require.NoError(t, err)

			assert.Equal(t, []string{"Bearer fresh"}, auths)
			assert.Equal(t, []string{"r1"}, refresher.seen)

			access, refresh := sess.Tokens()
			assert.Equal(t, "fresh", access)
			assert.Equal(t, "r2", refresh)
		})
	}
}

func TestFetchValidAccessTokenSkipsRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	refresher := &stubRefresher{}
	client := newTestClient(t, server.URL, refresher)
	sess := NewSession(signedToken(t, time.Now().Add(time.Hour)), "r1")

	_, err := client.Fetch(context.Background(), sess, "/orders", nil)
	require.NoError(t, err)
	assert.Zero(t, refresher.calls.Load())

	_, ok := sess.Rotated()
	assert.False(t, ok)
}

func TestFetchRefreshesAtMostOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	t.Run("failed proactive refresh is not repeated", func(t *testing.T) {
		calls.Store(0)
		refresher := &stubRefresher{err: errors.New("refresh rejected")}
		client := newTestClient(t, server.URL, refresher)

		_, err := client.Fetch(context.Background(), NewSession("", "r1"), "/orders", nil)
		assert.True(t, base.IsUnauthorized(err))
		assert.Equal(t, int32(1), refresher.calls.Load())
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("successful recovery is followed by a final 401", func(t *testing.T) {
		calls.Store(0)
		refresher := &stubRefresher{pair: &TokenPair{AccessToken: "fresh"}}
		client := newTestClient(t, server.URL, refresher)

		_, err := client.Fetch(context.Background(), NewSession("stale", "r1"), "/orders", nil)
		assert.True(t, base.IsUnauthorized(err))
		assert.Equal(t, int32(1), refresher.calls.Load())
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestFetchDefaultTraceName(t *testing.T) {
	var names []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		names = append(names, r.Header.Get(base.HeaderTraceName))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	sess := NewSession("tok", "")

	_, err := client.Fetch(context.Background(), sess, "/users/profile", nil)
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), sess, "/users/profile", &base.Options{TraceName: "profile:get"})
	require.NoError(t, err)

	assert.Equal(t, []string{"auth:/users/profile", "profile:get"}, names)
}

func TestFetchCoalescesConcurrentRefresh(t *testing.T) {
	const callers = 5

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	refresher := &stubRefresher{
		pair:  &TokenPair{AccessToken: "fresh"},
		delay: 150 * time.Millisecond,
	}
	client := newTestClient(t, server.URL, refresher)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := client.Fetch(context.Background(), NewSession("", "shared"), "/orders", nil)
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestFetchCancelledDuringRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	refresher := &stubRefresher{pair: &TokenPair{AccessToken: "fresh"}, delay: 200 * time.Millisecond}
	client := newTestClient(t, server.URL, refresher)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx, NewSession("", "r1"), "/orders", nil)
	assert.True(t, base.IsTimeout(err), "expected TIMEOUT, got %v", err)
	assert.False(t, base.IsAPIError(err))
}

func TestRequestBuilder(t *testing.T) {
	var gotAuth, gotMethod, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	var out struct {
		OK bool `json:"ok"`
	}
	err := client.Patch(context.Background(), NewSession("tok", ""), "/users/profile", map[string]string{"name": "Ana"}).
		WithQuery("lang", "tr").
		Decode(&out)
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "lang=tr", gotQuery)
}
