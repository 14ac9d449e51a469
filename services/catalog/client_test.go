package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()

	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil, nil)
	assert.Error(t, err)

	_, err = NewClient(&Config{}, nil)
	assert.Error(t, err)

	client, err := NewClient(&Config{BaseURL: "http://backend:8080", PageSize: -3}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, client.PageSize())
}

func TestForwardQuery(t *testing.T) {
	q := url.Values{
		"page":   {"2"},
		"q":      {""},
		"paged":  {"1"},
		"sortBy": {"price"},
		"other":  {"x"},
	}

	assert.Equal(t, url.Values{"page": {"2"}, "q": {""}, "sortBy": {"price"}}, ForwardQuery(q))
}

func TestPickArray(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"array", `[{"id":1},{"id":2}]`, 2},
		{"data", `{"data":[{"id":1}]}`, 1},
		{"items", `{"items":[{"id":1},{"id":2},{"id":3}]}`, 3},
		{"data not array", `{"data":{"id":1}}`, 0},
		{"scalar", `"nope"`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, PickArray(decode(t, tt.raw)), tt.want)
		})
	}
}

func TestNormalizeProduct(t *testing.T) {
	t.Run("canonical fields", func(t *testing.T) {
		p := NormalizeProduct(decode(t, `{"id":1,"name":"Scarf","image":"s.png","description":"Warm",
			"price":19.5,"stock":3,"created_at":"2024-01-01","updated_at":"2024-01-02"}`))

		require.NotNil(t, p.Image)
		assert.Equal(t, float64(1), p.ID)
		assert.Equal(t, "Scarf", p.Name)
		assert.Equal(t, "s.png", *p.Image)
		assert.Equal(t, "Warm", p.Description)
		assert.Equal(t, 19.5, p.Price)
		assert.Equal(t, 3, p.Stock)
		assert.Equal(t, "2024-01-01", p.CreatedAt)
		assert.Equal(t, "2024-01-02", p.UpdatedAt)
	})

	t.Run("alias fields", func(t *testing.T) {
		p := NormalizeProduct(decode(t, `{"_id":"abc","title":"Cap","thumbnail":"c.png","desc":"Blue",
			"unitPrice":"7.25","quantity":"4","createdAt":"c","updatedAt":"u"}`))

		require.NotNil(t, p.Image)
		assert.Equal(t, "abc", p.ID)
		assert.Equal(t, "Cap", p.Name)
		assert.Equal(t, "c.png", *p.Image)
		assert.Equal(t, "Blue", p.Description)
		assert.Equal(t, 7.25, p.Price)
		assert.Equal(t, 4, p.Stock)
		assert.Equal(t, "c", p.CreatedAt)
		assert.Equal(t, "u", p.UpdatedAt)
	})

	t.Run("missing fields", func(t *testing.T) {
		p := NormalizeProduct(decode(t, `{"id":5,"name":null}`))

		assert.Nil(t, p.Image)
		assert.Equal(t, "", p.Name)
		assert.Equal(t, 0.0, p.Price)
		assert.Equal(t, 0, p.Stock)
	})
}

func TestNormalizePaged(t *testing.T) {
	t.Run("backend meta wins", func(t *testing.T) {
		raw := decode(t, `{"data":[{"id":1},{"id":2}],"meta":{"total":25,"page":2,"limit":2,"pages":13,"sortBy":"price","order":"ASC","q":"cap"}}`)

		page, limit := 1, 12
		got := NormalizePaged(raw, Defaults{Page: &page, Limit: &limit})

		q := "cap"
		assert.Len(t, got.Data, 2)
		assert.Equal(t, Meta{Total: 25, Page: 2, Limit: 2, Pages: 13, SortBy: "price", Order: "ASC", Q: &q}, got.Meta)
	})

	t.Run("defaults fill missing meta", func(t *testing.T) {
		raw := decode(t, `[{"id":1},{"id":2},{"id":3}]`)

		d := DefaultsFromQuery(url.Values{"page": {"2"}, "limit": {"2"}}, 12)
		got := NormalizePaged(raw, d)

		assert.Equal(t, 3, got.Meta.Total)
		assert.Equal(t, 2, got.Meta.Page)
		assert.Equal(t, 2, got.Meta.Limit)
		assert.Equal(t, 2, got.Meta.Pages)
		assert.Equal(t, "created_at", got.Meta.SortBy)
		assert.Equal(t, "DESC", got.Meta.Order)
		assert.Nil(t, got.Meta.Q)
	})

	t.Run("empty listing", func(t *testing.T) {
		got := NormalizePaged(decode(t, `{}`), Defaults{})

		assert.Empty(t, got.Data)
		assert.Equal(t, Meta{Total: 0, Page: 1, Limit: 10, Pages: 1}, got.Meta)
	})
}

func TestDefaultsFromQuery(t *testing.T) {
	d := DefaultsFromQuery(url.Values{}, 12)
	require.NotNil(t, d.Page)
	require.NotNil(t, d.Limit)
	assert.Equal(t, 1, *d.Page)
	assert.Equal(t, 12, *d.Limit)
	assert.Nil(t, d.Q)

	d = DefaultsFromQuery(url.Values{"page": {"2"}, "limit": {"500"}}, 12)
	assert.Equal(t, 2, *d.Page)
	assert.Equal(t, 500, *d.Limit)

	d = DefaultsFromQuery(url.Values{"page": {"x"}, "limit": {"0"}, "q": {"scarf"}}, 12)
	assert.Equal(t, 1, *d.Page)
	assert.Equal(t, 12, *d.Limit)
	require.NotNil(t, d.Q)
	assert.Equal(t, "scarf", *d.Q)
}

func TestProducts(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"items":[{"productId":9,"title":"Mug","unitPrice":5}],"meta":{"total":1}}`))
	}))
	defer server.Close()

	client, err := NewClient(DefaultConfig(server.URL), nil)
	require.NoError(t, err)

	list, err := client.Products(context.Background(), url.Values{"q": {"mug"}, "paged": {"1"}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Mug", list[0].Name)
	assert.Equal(t, url.Values{"q": {"mug"}}, gotQuery)

	paged, err := client.ProductsPaged(context.Background(), url.Values{"page": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, paged.Meta.Total)
	assert.Equal(t, 12, paged.Meta.Limit)
	assert.Equal(t, 1, paged.Meta.Pages)

	big, err := client.ProductsPaged(context.Background(), url.Values{"page": {"2"}, "limit": {"500"}})
	require.NoError(t, err)
	assert.Equal(t, url.Values{"page": {"2"}, "limit": {"500"}}, gotQuery)
	assert.Equal(t, 2, big.Meta.Page)
	assert.Equal(t, 500, big.Meta.Limit)
}
