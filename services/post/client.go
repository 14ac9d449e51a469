// Package post provides a client for global, club and athlete posts.
package post

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"github.com/Dorico-Dynamics/txova-go-core/errors"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
)

// Scope is the owner kind of a post.
type Scope string

// Post scopes.
const (
	ScopeGlobal  Scope = "global"
	ScopeClub    Scope = "club"
	ScopeAthlete Scope = "athlete"
)

// Type is the content kind of a post.
type Type string

// Post types.
const (
	TypeVideo        Type = "video"
	TypeImage        Type = "image"
	TypeArticle      Type = "article"
	TypeShortMessage Type = "short_message"
)

// ID is a post identifier. Backends send it either as a number or as a string.
type ID string

// UnmarshalJSON accepts both JSON strings and numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Owner is the club or athlete a post belongs to.
type Owner struct {
	Slug   string  `json:"slug"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

// Article is a post with its article fields.
type Article struct {
	ID          ID       `json:"id"`
	Slug        *string  `json:"slug,omitempty"`
	Scope       Scope    `json:"scope"`
	Type        Type     `json:"type"`
	Title       string   `json:"title"`
	Summary     *string  `json:"summary,omitempty"`
	PublishedAt *string  `json:"published_at,omitempty"`
	UpdatedAt   *string  `json:"updated_at,omitempty"`
	AuthorName  *string  `json:"author_name,omitempty"`
	Club        *Owner   `json:"club,omitempty"`
	Athlete     *Owner   `json:"athlete,omitempty"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	Thumbnail   *string  `json:"thumbnail,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	ContentHTML *string  `json:"content_html,omitempty"`
	ContentMD   *string  `json:"content_md,omitempty"`
}

// FilterKeys are the query keys understood by the post list endpoints.
var FilterKeys = []string{"type", "exclude", "limit", "page", "tags", "categories"}

// Filters narrows a post listing. Empty fields are not sent.
type Filters struct {
	Type       string
	Exclude    string
	Limit      string
	Page       string
	Tags       string
	Categories string
}

// FiltersFromQuery picks the post filters out of a query string.
func FiltersFromQuery(q url.Values) Filters {
	return Filters{
		Type:       q.Get("type"),
		Exclude:    q.Get("exclude"),
		Limit:      q.Get("limit"),
		Page:       q.Get("page"),
		Tags:       q.Get("tags"),
		Categories: q.Get("categories"),
	}
}

// Values encodes the non-empty filters.
func (f Filters) Values() url.Values {
	v := url.Values{}
	for i, val := range []string{f.Type, f.Exclude, f.Limit, f.Page, f.Tags, f.Categories} {
		if val != "" {
			v.Set(FilterKeys[i], val)
		}
	}
	return v
}

// Client is the post client. Listings and details are relayed as the backend sends them,
// including paginated list shapes; Article is the decoded view of one post.
type Client struct {
	client *auth.Client
}

// NewClient creates a new post client.
func NewClient(ac *auth.Client) *Client {
	return &Client{client: ac}
}

// Global lists global posts.
func (c *Client) Global(ctx context.Context, sess *auth.Session, f Filters) (json.RawMessage, error) {
	return c.list(ctx, sess, "/admin/posts/global", f, "svc:posts.listGlobalPosts")
}

// Club lists the posts of a club.
func (c *Client) Club(ctx context.Context, sess *auth.Session, clubSlug string, f Filters) (json.RawMessage, error) {
	if clubSlug == "" {
		return nil, errors.ValidationError("club slug is required")
	}
	return c.list(ctx, sess, "/admin/posts/club/"+url.PathEscape(clubSlug), f, "svc:posts.listClubPosts")
}

// Athlete lists the posts of an athlete.
func (c *Client) Athlete(ctx context.Context, sess *auth.Session, athleteSlug string, f Filters) (json.RawMessage, error) {
	if athleteSlug == "" {
		return nil, errors.ValidationError("athlete slug is required")
	}
	return c.list(ctx, sess, "/admin/posts/athlete/"+url.PathEscape(athleteSlug), f, "svc:posts.listAthletePosts")
}

// GlobalDetail returns a single global post.
func (c *Client) GlobalDetail(ctx context.Context, sess *auth.Session, postID string) (json.RawMessage, error) {
	if postID == "" {
		return nil, errors.ValidationError("post id is required")
	}
	return c.detail(ctx, sess, "/admin/posts/global/"+url.PathEscape(postID), "svc:posts.getGlobalPostDetail")
}

// ClubDetail returns a single club post.
func (c *Client) ClubDetail(ctx context.Context, sess *auth.Session, clubSlug, postID string) (json.RawMessage, error) {
	if clubSlug == "" || postID == "" {
		return nil, errors.ValidationError("club slug and post id are required")
	}
	return c.detail(ctx, sess, "/admin/posts/club/"+url.PathEscape(clubSlug)+"/"+url.PathEscape(postID), "svc:posts.getClubPostDetail")
}

// AthleteDetail returns a single athlete post.
func (c *Client) AthleteDetail(ctx context.Context, sess *auth.Session, athleteSlug, postID string) (json.RawMessage, error) {
	if athleteSlug == "" || postID == "" {
		return nil, errors.ValidationError("athlete slug and post id are required")
	}
	return c.detail(ctx, sess, "/admin/posts/athlete/"+url.PathEscape(athleteSlug)+"/"+url.PathEscape(postID), "svc:posts.getAthletePostDetail")
}

func (c *Client) list(ctx context.Context, sess *auth.Session, path string, f Filters, trace string) (json.RawMessage, error) {
	var posts json.RawMessage
	err := c.client.Get(ctx, sess, path).
		WithQueryParams(f.Values()).
		WithTraceName(trace).
		Decode(&posts)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

func (c *Client) detail(ctx context.Context, sess *auth.Session, path, trace string) (json.RawMessage, error) {
	var a json.RawMessage
	if err := c.client.Get(ctx, sess, path).WithTraceName(trace).Decode(&a); err != nil {
		return nil, err
	}

	return a, nil
}
