package base

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"
)

// RefreshFunc renews the session after a 401. The returned headers replace
// the matching headers of the retried request, e.g. a new Authorization.
type RefreshFunc func(ctx context.Context) (http.Header, error)

// recoveryPolicy decides which 401 responses get the one-shot refresh and retry.
type recoveryPolicy struct {
	resolver    *Resolver
	loginPath   string
	refreshPath string
}

// eligible reports whether a 401 on path may be recovered.
// The login and refresh routes never are: a 401 there is final.
// Without a caller supplied refresh only proxy paths are eligible.
func (p recoveryPolicy) eligible(path string, customRefresh bool) bool {
	if p.isSessionRoute(path) {
		return false
	}
	if customRefresh {
		return true
	}
	return p.resolver.IsProxyPath(path)
}

func (p recoveryPolicy) isSessionRoute(path string) bool {
	return strings.HasPrefix(path, p.loginPath) || strings.HasPrefix(path, p.refreshPath)
}

// proxyRefresher calls the portal refresh route. Concurrent callers share one
// in-flight refresh so a rotating refresh token is only spent once.
type proxyRefresher struct {
	client *Client
	group  singleflight.Group
}

// refresh POSTs to the refresh route. Only a transport failure is an error;
// the status and body of the refresh response are ignored.
func (r *proxyRefresher) refresh(ctx context.Context) (http.Header, error) {
	ch := r.group.DoChan("refresh", func() (any, error) {
		return nil, r.client.postRefresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return nil, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) postRefresh(ctx context.Context) error {
	reqURL := c.resolver.Resolve(c.cfg.RefreshPath)

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("Cache-Control", "no-store")

	res, err := c.exchange(ctx, http.MethodPost, reqURL, headers, nil)
	if err != nil {
		return err
	}

	c.logRequest(ctx, http.MethodPost, reqURL, res.StatusCode, 0, nil)
	return nil
}

// drain discards what is left of a response body so the connection can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
