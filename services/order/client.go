// Package order provides a client for the signed-in user's orders.
package order

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/Dorico-Dynamics/txova-go-core/errors"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
)

// Client is the order client. Order records are relayed as the backend sends them.
type Client struct {
	client *auth.Client
}

// NewClient creates a new order client.
func NewClient(ac *auth.Client) *Client {
	return &Client{client: ac}
}

// List returns the orders of the session's user.
func (c *Client) List(ctx context.Context, sess *auth.Session) (json.RawMessage, error) {
	var orders json.RawMessage
	err := c.client.Get(ctx, sess, "/orders").
		WithTraceName("svc:orders.listOrders").
		Decode(&orders)
	if err != nil {
		return nil, err
	}

	return orders, nil
}

// Get returns a single order.
func (c *Client) Get(ctx context.Context, sess *auth.Session, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, errors.ValidationError("order id is required")
	}

	var order json.RawMessage
	err := c.client.Get(ctx, sess, "/orders/"+url.PathEscape(id)).
		WithTraceName("svc:orders.getOrder").
		Decode(&order)
	if err != nil {
		return nil, err
	}

	return order, nil
}
