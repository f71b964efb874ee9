package catalog

import (
	"context"
	"fmt"
	"net/url"
)

// FindCustomer returns the id of the customer registered with email, or an
// empty string when no such customer exists.
func (c *Client) FindCustomer(ctx context.Context, email, token string) (string, error) {
	query := url.Values{"filter": {fmt.Sprintf("eq(email,%s)", email)}}
	var payload struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/v2/customers", query, token, "find customer", &payload); err != nil {
		return "", err
	}
	if len(payload.Data) == 0 {
		return "", nil
	}
	return payload.Data[0].ID, nil
}

// CreateCustomer registers a new customer record keyed by email.
func (c *Client) CreateCustomer(ctx context.Context, email, token string) (string, error) {
	body := map[string]any{
		"data": map[string]any{
			"type":  "customer",
			"name":  email,
			"email": email,
		},
	}
	var payload struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/v2/customers", body, token, "create customer", &payload); err != nil {
		return "", err
	}
	return payload.Data.ID, nil
}

// LookupOrCreateCustomer resolves email to a customer id, creating the
// record when it does not exist yet.
func (c *Client) LookupOrCreateCustomer(ctx context.Context, email, token string) (string, error) {
	id, err := c.FindCustomer(ctx, email, token)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return c.CreateCustomer(ctx, email, token)
}
