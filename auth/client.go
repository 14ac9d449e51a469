package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Dorico-Dynamics/txova-go-core/logging"

	"github.com/Dorico-Dynamics/txova-go-portal/base"
)

// MessageNoAccessCookie is the payload message of the local 401 returned without any session token.
const MessageNoAccessCookie = "Unauthorized: no access cookie"

var errNoTokens = errors.New("refresh returned no tokens")

// Client issues backend calls with the bearer token of a Session.
type Client struct {
	base      *base.Client
	refresher TokenRefresher
	logger    *logging.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewClient creates an authenticated client on top of a server-context base client.
// A nil refresher disables proactive refresh and 401 recovery.
func NewClient(b *base.Client, refresher TokenRefresher, logger *logging.Logger) *Client {
	return &Client{
		base:      b,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

// Fetch calls path with the session's access token.
// Without any token it fails with a local 401 and makes no network call.
// A missing or expired access token is refreshed before the call when a refresh token exists.
// Otherwise a backend 401 is recovered once through the refresher.
// At most one refresh happens per call.
func (c *Client) Fetch(ctx context.Context, sess *Session, path string, opts *base.Options) (*base.Response, error) {
	if !sess.Present() {
		return nil, &base.APIError{
			Status:  http.StatusUnauthorized,
			Payload: base.Payload{"message": MessageNoAccessCookie},
			URL:     c.base.Resolver().Resolve(path),
		}
	}

	var o base.Options
	if opts != nil {
		o = *opts
	}
	if o.TraceName == "" {
		o.TraceName = "auth:" + path
	}

	refreshed := false
	if _, refresh := sess.Tokens(); refresh != "" && c.refresher != nil && sess.AccessExpired(c.now()) {
		refreshed = true
		if _, err := c.refresh(ctx, sess); err != nil {
			if ctxErr := base.ContextError(ctx); ctxErr != nil {
				return nil, ctxErr
			}
			c.logRefreshFailed(ctx, path, "proactive", err)
		}
	}

	access, _ := sess.Tokens()
	o.Headers = withBearer(o.Headers, access)

	if !refreshed && c.refresher != nil {
		o.Refresh = func(ctx context.Context) (http.Header, error) {
			pair, err := c.refresh(ctx, sess)
			if err != nil {
				c.logRefreshFailed(ctx, path, "recovery", err)
				return nil, err
			}
			return withBearer(nil, pair.AccessToken), nil
		}
	}

	return c.base.Fetch(ctx, path, &o)
}

// FetchJSON calls path with the session's access token and decodes the JSON response into T.
func FetchJSON[T any](ctx context.Context, c *Client, sess *Session, path string, opts *base.Options) (T, error) {
	var out T

	res, err := c.Fetch(ctx, sess, path, opts)
	if err != nil {
		return out, err
	}

	if err := res.Decode(&out); err != nil {
		return out, err
	}

	return out, nil
}

// refresh exchanges the session's refresh token and applies the new pair to the session.
// Concurrent refreshes of the same token share a single backend call.
func (c *Client) refresh(ctx context.Context, sess *Session) (*TokenPair, error) {
	_, token := sess.Tokens()

	ch := c.group.DoChan(token, func() (any, error) {
		return c.refresher.Refresh(context.WithoutCancel(ctx), token)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		pair, ok := res.Val.(*TokenPair)
		if !ok || pair == nil {
			return nil, errNoTokens
		}
		sess.Apply(pair)
		return pair, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func withBearer(h http.Header, token string) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	if token != "" {
		out.Set("Authorization", "Bearer "+token)
	}
	return out
}

func (c *Client) logRefreshFailed(ctx context.Context, path, stage string, err error) {
	if c.logger == nil {
		return
	}

	c.logger.WarnContext(ctx, "session refresh failed",
		"path", path,
		"stage", stage,
		"error", err.Error(),
	)
}

// Request methods.

// Get creates an authenticated GET request.
func (c *Client) Get(ctx context.Context, sess *Session, path string) *base.Request {
	return base.NewRequest(ctx, c.fetcher(sess), http.MethodGet, path, nil)
}

// Post creates an authenticated POST request with a JSON body.
func (c *Client) Post(ctx context.Context, sess *Session, path string, body any) *base.Request {
	return base.NewRequest(ctx, c.fetcher(sess), http.MethodPost, path, body)
}

// Put creates an authenticated PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, sess *Session, path string, body any) *base.Request {
	return base.NewRequest(ctx, c.fetcher(sess), http.MethodPut, path, body)
}

// Patch creates an authenticated PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, sess *Session, path string, body any) *base.Request {
	return base.NewRequest(ctx, c.fetcher(sess), http.MethodPatch, path, body)
}

// Delete creates an authenticated DELETE request.
func (c *Client) Delete(ctx context.Context, sess *Session, path string) *base.Request {
	return base.NewRequest(ctx, c.fetcher(sess), http.MethodDelete, path, nil)
}

func (c *Client) fetcher(sess *Session) base.FetchFunc {
	return func(ctx context.Context, path string, opts *base.Options) (*base.Response, error) {
		return c.Fetch(ctx, sess, path, opts)
	}
}
