package catalog

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Product is the product shape served to the storefront.
type Product struct {
	ID          any     `json:"id"`
	Name        string  `json:"name"`
	Image       *string `json:"image"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Meta describes one page of products.
type Meta struct {
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
	Pages  int     `json:"pages"`
	SortBy string  `json:"sortBy,omitempty"`
	Order  string  `json:"order,omitempty"`
	Q      *string `json:"q"`
}

// Paged is a page of products with its meta.
type Paged struct {
	Data []Product `json:"data"`
	Meta Meta      `json:"meta"`
}

// Defaults fill meta fields the backend did not send. Nil fields are unset.
type Defaults struct {
	Page   *int
	Limit  *int
	Pages  *int
	SortBy *string
	Order  *string
	Q      *string
}

// DefaultsFromQuery builds the meta defaults of a paged listing request.
// Page and limit echo the forwarded query; a missing or non-positive value falls back to 1 and pageSize.
// sortBy defaults to created_at and order to DESC.
func DefaultsFromQuery(q url.Values, pageSize int) Defaults {
	page := 1
	if n, ok := number(q.Get("page")); ok && q.Has("page") {
		page = int(n)
	}

	limit := pageSize
	if n, ok := number(q.Get("limit")); ok && q.Has("limit") {
		limit = int(n)
	}
	if limit <= 0 {
		limit = pageSize
	}
	if page < 1 {
		page = 1
	}

	sortBy := "created_at"
	if q.Has("sortBy") {
		sortBy = q.Get("sortBy")
	}
	order := "DESC"
	if q.Has("order") {
		order = q.Get("order")
	}

	d := Defaults{Page: &page, Limit: &limit, SortBy: &sortBy, Order: &order}
	if q.Has("q") {
		s := q.Get("q")
		d.Q = &s
	}
	return d
}

// PickArray extracts the product list from a raw listing: the value itself when it is
// an array, else its "data" or "items" array, else an empty list.
func PickArray(raw any) []any {
	if arr, ok := raw.([]any); ok {
		return arr
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return []any{}
	}
	if arr, ok := obj["data"].([]any); ok {
		return arr
	}
	if arr, ok := obj["items"].([]any); ok {
		return arr
	}
	return []any{}
}

// NormalizeProduct maps a raw product record, whatever its field aliases, to a Product.
func NormalizeProduct(raw any) Product {
	o, _ := raw.(map[string]any)

	p := Product{
		ID:          first(o, "id", "productId", "_id"),
		Name:        text(first(o, "name", "title")),
		Description: text(first(o, "description", "desc")),
		CreatedAt:   text(first(o, "created_at", "createdAt")),
		UpdatedAt:   text(first(o, "updated_at", "updatedAt")),
	}

	if img := first(o, "image", "imageUrl", "thumbnail"); img != nil {
		s := text(img)
		p.Image = &s
	}

	if n, ok := number(first(o, "price", "unitPrice")); ok {
		p.Price = n
	}
	if n, ok := number(first(o, "stock", "quantity", "stockCount")); ok {
		p.Stock = int(n)
	}

	return p
}

// NormalizePaged normalizes a raw listing into a page with meta.
// Backend meta wins over defaults; total falls back to the list length,
// limit to the list length (or 10 when empty), and pages is derived from total and limit.
func NormalizePaged(raw any, d Defaults) Paged {
	items := PickArray(raw)
	list := make([]Product, 0, len(items))
	for _, it := range items {
		list = append(list, NormalizeProduct(it))
	}

	var meta map[string]any
	if obj, ok := raw.(map[string]any); ok {
		meta, _ = obj["meta"].(map[string]any)
	}

	total := len(list)
	if n, ok := number(meta["total"]); ok && meta["total"] != nil {
		total = int(n)
	}

	limit := len(list)
	if limit == 0 {
		limit = 10
	}
	if meta["limit"] != nil {
		if n, ok := number(meta["limit"]); ok {
			limit = int(n)
		}
	} else if d.Limit != nil {
		limit = *d.Limit
	}

	pages := 0
	if meta["pages"] != nil {
		if n, ok := number(meta["pages"]); ok {
			pages = int(n)
		}
	} else if d.Pages != nil {
		pages = *d.Pages
	}
	if pages == 0 {
		pages = int(math.Max(1, math.Ceil(float64(total)/math.Max(1, float64(limit)))))
	}

	page := 1
	if meta["page"] != nil {
		if n, ok := number(meta["page"]); ok {
			page = int(n)
		}
	} else if d.Page != nil {
		page = *d.Page
	}

	m := Meta{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}

	if v := meta["sortBy"]; v != nil {
		m.SortBy = text(v)
	} else if d.SortBy != nil {
		m.SortBy = *d.SortBy
	}
	if v := meta["order"]; v != nil {
		m.Order = text(v)
	} else if d.Order != nil {
		m.Order = *d.Order
	}
	if v := meta["q"]; v != nil {
		s := text(v)
		m.Q = &s
	} else if d.Q != nil {
		s := *d.Q
		m.Q = &s
	}

	return Paged{Data: list, Meta: m}
}

// first returns the first non-null value among keys.
func first(o map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := o[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// number converts a JSON value to a float. Unparsable values report false.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, true
	case float64:
		return t, !math.IsNaN(t)
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
