// Package catalog is the HTTP client for the commerce backend: products,
// categories, carts, customers, and the generic flow/entry records that
// hold pizzerias and delivery addresses. Every call except Authenticate
// takes the bearer token managed by the session package.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	coreconfig "github.com/tbaiguzhinov/pizza-bot/core/config"
	"github.com/tbaiguzhinov/pizza-bot/core/httpx"
)

// APIError reports a non-2xx response from the catalog backend.
type APIError struct {
	Status int
	Op     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: %s: status %d", e.Op, e.Status)
}

// Client talks to the catalog backend.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	pizzeriaFlow string

	http *http.Client
}

// New constructs a Client from configuration. A nil httpClient selects the
// shared tuned client.
func New(cfg coreconfig.CatalogConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = httpx.NewClient(httpx.Options{})
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		pizzeriaFlow: cfg.PizzeriaFlow,
		http:         httpClient,
	}
}

// Authenticate exchanges client credentials for a bearer token and its
// absolute expiry (unix seconds).
func (c *Client) Authenticate(ctx context.Context) (string, int64, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("catalog: build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var payload struct {
		AccessToken string `json:"access_token"`
		Expires     int64  `json:"expires"`
	}
	if err := c.do(req, "authenticate", &payload); err != nil {
		return "", 0, err
	}
	return payload.AccessToken, payload.Expires, nil
}

// Product is a sellable catalog item.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int
	ImageFileID string
}

// Category groups products.
type Category struct {
	ID   string
	Name string
}

type productData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       []struct {
		Amount int `json:"amount"`
	} `json:"price"`
	Relationships struct {
		MainImage struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"main_image"`
	} `json:"relationships"`
}

func (d productData) toProduct() Product {
	p := Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		ImageFileID: d.Relationships.MainImage.Data.ID,
	}
	if len(d.Price) > 0 {
		p.Price = d.Price[0].Amount
	}
	return p
}

// Products lists the full catalog.
func (c *Client) Products(ctx context.Context, token string) ([]Product, error) {
	var payload struct {
		Data []productData `json:"data"`
	}
	if err := c.get(ctx, "/v2/products", nil, token, "list products", &payload); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(payload.Data))
	for _, d := range payload.Data {
		products = append(products, d.toProduct())
	}
	return products, nil
}

// ProductsByCategory lists the products belonging to one category.
func (c *Client) ProductsByCategory(ctx context.Context, categoryID, token string) ([]Product, error) {
	query := url.Values{"filter": {fmt.Sprintf("eq(category.id,%s)", categoryID)}}
	var payload struct {
		Data []productData `json:"data"`
	}
	if err := c.get(ctx, "/v2/products", query, token, "list products by category", &payload); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(payload.Data))
	for _, d := range payload.Data {
		products = append(products, d.toProduct())
	}
	return products, nil
}

// Product fetches one product by id.
func (c *Client) Product(ctx context.Context, productID, token string) (Product, error) {
	var payload struct {
		Data productData `json:"data"`
	}
	if err := c.get(ctx, "/v2/products/"+productID, nil, token, "get product", &payload); err != nil {
		return Product{}, err
	}
	return payload.Data.toProduct(), nil
}

// Categories lists all product categories.
func (c *Client) Categories(ctx context.Context, token string) ([]Category, error) {
	var payload struct {
		Data []Category `json:"data"`
	}
	if err := c.get(ctx, "/v2/categories", nil, token, "list categories", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// FileURL resolves a stored file id to its public href.
func (c *Client) FileURL(ctx context.Context, fileID, token string) (string, error) {
	var payload struct {
		Data struct {
			Link struct {
				Href string `json:"href"`
			} `json:"link"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/v2/files/"+fileID, nil, token, "get file", &payload); err != nil {
		return "", err
	}
	return payload.Data.Link.Href, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, token, op string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request for %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, op, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, token, op string, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("catalog: encode body for %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("catalog: build request for %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, op, out)
}

func (c *Client) delete(ctx context.Context, path, token, op string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request for %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, op, nil)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &APIError{Status: resp.StatusCode, Op: op}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: decode %s response: %w", op, err)
	}
	return nil
}
