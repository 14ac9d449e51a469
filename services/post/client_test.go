package post

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dorico-Dynamics/txova-go-core/errors"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
	"github.com/Dorico-Dynamics/txova-go-portal/base"
)

func createTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	b, err := base.NewClient(&base.Config{Origins: base.Origins{Server: serverURL}}, nil)
	require.NoError(t, err)
	return NewClient(auth.NewClient(b, nil, nil))
}

func TestIDUnmarshal(t *testing.T) {
	var got []struct {
		ID ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`[{"id":42},{"id":"abc-1"}]`), &got))

	assert.Equal(t, ID("42"), got[0].ID)
	assert.Equal(t, ID("abc-1"), got[1].ID)
}

func TestFilters(t *testing.T) {
	q := url.Values{
		"type":   {"article"},
		"page":   {"2"},
		"tags":   {"transfer"},
		"paged":  {"1"},
		"unused": {"x"},
	}

	f := FiltersFromQuery(q)
	assert.Equal(t, Filters{Type: "article", Page: "2", Tags: "transfer"}, f)
	assert.Equal(t, url.Values{"type": {"article"}, "page": {"2"}, "tags": {"transfer"}}, f.Values())
	assert.Empty(t, Filters{}.Values())
}

func TestLists(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"id":1,"scope":"club","type":"article","title":"Derby","tags":["derby"],"club":{"slug":"fb","name":"FB"}}]`))
	}))
	defer server.Close()

	client := createTestClient(t, server.URL)
	sess := auth.NewSession("tok", "")
	ctx := context.Background()

	raw, err := client.Global(ctx, sess, Filters{Limit: "5"})
	require.NoError(t, err)
	assert.Equal(t, "/admin/posts/global", gotPath)
	assert.Equal(t, "limit=5", gotQuery)

	var posts []Article
	require.NoError(t, json.Unmarshal(raw, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, ScopeClub, posts[0].Scope)
	assert.Equal(t, "fb", posts[0].Club.Slug)

	_, err = client.Club(ctx, sess, "fb", Filters{})
	require.NoError(t, err)
	assert.Equal(t, "/admin/posts/club/fb", gotPath)
	assert.Empty(t, gotQuery)

	_, err = client.Athlete(ctx, sess, "arda", Filters{Type: "video", Exclude: "3"})
	require.NoError(t, err)
	assert.Equal(t, "/admin/posts/athlete/arda", gotPath)
	values, _ := url.ParseQuery(gotQuery)
	assert.Equal(t, "video", values.Get("type"))
	assert.Equal(t, "3", values.Get("exclude"))
}

func TestDetails(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"p1","scope":"global","type":"article","title":"T","content_md":"# T"}`))
	}))
	defer server.Close()

	client := createTestClient(t, server.URL)
	sess := auth.NewSession("tok", "")
	ctx := context.Background()

	raw, err := client.GlobalDetail(ctx, sess, "p1")
	require.NoError(t, err)
	assert.Equal(t, "/admin/posts/global/p1", gotPath)

	var a Article
	require.NoError(t, json.Unmarshal(raw, &a))
	assert.Equal(t, ID("p1"), a.ID)
	require.NotNil(t, a.ContentMD)
	assert.Equal(t, "# T", *a.ContentMD)

	_, err = client.ClubDetail(ctx, sess, "fb", "p1")
	require.NoError(t, err)
	assert.Equal(t, "/admin/posts/club/fb/p1", gotPath)

	_, err = client.AthleteDetail(ctx, sess, "arda", "p1")
	require.NoError(t, err)
	assert.Equal(t, "/admin/posts/athlete/arda/p1", gotPath)
}

func TestPagedListingIsRelayed(t *testing.T) {
	const body = `{"data":[{"id":"x-1","title":"T","views":12}],"meta":{"page":1,"pages":4}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	raw, err := createTestClient(t, server.URL).Club(context.Background(), auth.NewSession("tok", ""), "fb", Filters{Page: "1"})
	require.NoError(t, err)
	assert.JSONEq(t, body, string(raw))
}

func TestValidation(t *testing.T) {
	client := createTestClient(t, "http://backend:8080")
	sess := auth.NewSession("tok", "")
	ctx := context.Background()

	_, err := client.Club(ctx, sess, "", Filters{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = client.Athlete(ctx, sess, "", Filters{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = client.ClubDetail(ctx, sess, "fb", "")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}
