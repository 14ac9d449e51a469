// Package club provides a client for club administration.
package club

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/Dorico-Dynamics/txova-go-core/errors"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
)

// Facility is a picture of a club facility.
type Facility struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Trophy is a title won by a club.
type Trophy struct {
	ID          string `json:"id"`
	Year        int    `json:"year"`
	Title       string `json:"title"`
	Competition string `json:"competition,omitempty"`
	Level       string `json:"level,omitempty"`
}

// Staff is a club staff member.
type Staff struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Club is a club as seen by its administrators.
type Club struct {
	ID         int        `json:"id"`
	Slug       string     `json:"slug"`
	Name       string     `json:"name"`
	League     *string    `json:"league,omitempty"`
	Founded    *int       `json:"founded,omitempty"`
	History    *string    `json:"history,omitempty"`
	Address    *string    `json:"address,omitempty"`
	Phone      *string    `json:"phone,omitempty"`
	Email      *string    `json:"email,omitempty"`
	Facilities []Facility `json:"facilities,omitempty"`
	Trophies   []Trophy   `json:"trophies,omitempty"`
	Staffs     []Staff    `json:"staffs,omitempty"`
	StaffCount *int       `json:"staffCount,omitempty"`
}

// Player is a club player card.
type Player struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Position  *string `json:"position,omitempty"`
	Age       *int    `json:"age,omitempty"`
	Defense   *int    `json:"defense,omitempty"`
	Offense   *int    `json:"offense,omitempty"`
	CardImage *string `json:"cardImage,omitempty"`
}

// Post is a club post or news item summary.
type Post struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	Thumbnail   *string `json:"thumbnail,omitempty"`
	PublishedAt string  `json:"published_at"`
}

// Client is the club client. Club, player and post bodies are relayed as the backend
// sends them; the types above are their decoded views.
type Client struct {
	client *auth.Client
}

// NewClient creates a new club client.
func NewClient(ac *auth.Client) *Client {
	return &Client{client: ac}
}

func clubPath(slug string) (string, error) {
	if slug == "" {
		return "", errors.ValidationError("club slug is required")
	}
	return "/admin/clubs/" + url.PathEscape(slug), nil
}

// Get returns a club by slug.
func (c *Client) Get(ctx context.Context, sess *auth.Session, slug string) (json.RawMessage, error) {
	path, err := clubPath(slug)
	if err != nil {
		return nil, err
	}

	var club json.RawMessage
	if err := c.client.Get(ctx, sess, path).WithTraceName("svc:clubs.getClub").Decode(&club); err != nil {
		return nil, err
	}

	return club, nil
}

// Update applies a partial update to a club.
func (c *Client) Update(ctx context.Context, sess *auth.Session, slug string, patch any) (json.RawMessage, error) {
	path, err := clubPath(slug)
	if err != nil {
		return nil, err
	}

	var club json.RawMessage
	if err := c.client.Patch(ctx, sess, path, patch).WithTraceName("svc:clubs.updateClub").Decode(&club); err != nil {
		return nil, err
	}

	return club, nil
}

// Delete deletes a club.
func (c *Client) Delete(ctx context.Context, sess *auth.Session, slug string) error {
	path, err := clubPath(slug)
	if err != nil {
		return err
	}

	_, err = c.client.Delete(ctx, sess, path).WithTraceName("svc:clubs.deleteClub").Do()
	return err
}

// ListPlayers returns the players of a club.
func (c *Client) ListPlayers(ctx context.Context, sess *auth.Session, slug string) (json.RawMessage, error) {
	path, err := clubPath(slug)
	if err != nil {
		return nil, err
	}

	var players json.RawMessage
	if err := c.client.Get(ctx, sess, path+"/players").WithTraceName("svc:clubs.listClubPlayers").Decode(&players); err != nil {
		return nil, err
	}

	return players, nil
}

// AddPlayer adds a player to a club.
func (c *Client) AddPlayer(ctx context.Context, sess *auth.Session, slug string, player any) (json.RawMessage, error) {
	path, err := clubPath(slug)
	if err != nil {
		return nil, err
	}

	var p json.RawMessage
	if err := c.client.Post(ctx, sess, path+"/players", player).WithTraceName("svc:clubs.addClubPlayer").Decode(&p); err != nil {
		return nil, err
	}

	return p, nil
}

// PatchPlayer updates a player; the body carries the player id.
func (c *Client) PatchPlayer(ctx context.Context, sess *auth.Session, slug string, patch any) (json.RawMessage, error) {
	path, err := clubPath(slug)
	if err != nil {
		return nil, err
	}

	var p json.RawMessage
	if err := c.client.Patch(ctx, sess, path+"/players", patch).WithTraceName("svc:clubs.patchClubPlayer").Decode(&p); err != nil {
		return nil, err
	}

	return p, nil
}

// ListPosts returns the posts of a club.
func (c *Client) ListPosts(ctx context.Context, sess *auth.Session, slug string) (json.RawMessage, error) {
	return c.listPosts(ctx, sess, slug, "/posts", "svc:clubs.listClubPosts")
}

// ListNews returns the news of a club.
func (c *Client) ListNews(ctx context.Context, sess *auth.Session, slug string) (json.RawMessage, error) {
	return c.listPosts(ctx, sess, slug, "/news", "svc:clubs.listClubNews")
}

func (c *Client) listPosts(ctx context.Context, sess *auth.Session, slug, suffix, trace string) (json.RawMessage, error) {
	path, err := clubPath(slug)
	if err != nil {
		return nil, err
	}

	var posts json.RawMessage
	if err := c.client.Get(ctx, sess, path+suffix).WithTraceName(trace).Decode(&posts); err != nil {
		return nil, err
	}

	return posts, nil
}
