package catalog

import (
	"context"
)

// Cart is the canonical cart header; the grand total arrives pre-formatted
// by the backend and is displayed verbatim.
type Cart struct {
	GrandTotalFormatted string
}

// CartItem is one line of a cart.
type CartItem struct {
	ID          string
	ProductID   string
	Name        string
	Description string
	Quantity    int
	ImageURL    string
}

// Cart fetches the cart header for cartID.
func (c *Client) Cart(ctx context.Context, cartID, token string) (Cart, error) {
	var payload struct {
		Data struct {
			Meta struct {
				DisplayPrice struct {
					WithTax struct {
						Formatted string `json:"formatted"`
					} `json:"with_tax"`
				} `json:"display_price"`
			} `json:"meta"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/v2/carts/"+cartID, nil, token, "get cart", &payload); err != nil {
		return Cart{}, err
	}
	return Cart{GrandTotalFormatted: payload.Data.Meta.DisplayPrice.WithTax.Formatted}, nil
}

// CartItems lists the items of cartID.
func (c *Client) CartItems(ctx context.Context, cartID, token string) ([]CartItem, error) {
	var payload struct {
		Data []struct {
			ID          string `json:"id"`
			ProductID   string `json:"product_id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Quantity    int    `json:"quantity"`
			Image       struct {
				Href string `json:"href"`
			} `json:"image"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/v2/carts/"+cartID+"/items", nil, token, "list cart items", &payload); err != nil {
		return nil, err
	}
	items := make([]CartItem, 0, len(payload.Data))
	for _, d := range payload.Data {
		items = append(items, CartItem{
			ID:          d.ID,
			ProductID:   d.ProductID,
			Name:        d.Name,
			Description: d.Description,
			Quantity:    d.Quantity,
			ImageURL:    d.Image.Href,
		})
	}
	return items, nil
}

// AddCartItem puts quantity units of a product into the cart.
func (c *Client) AddCartItem(ctx context.Context, cartID, productID string, quantity int, token string) error {
	body := map[string]any{
		"data": map[string]any{
			"id":       productID,
			"type":     "cart_item",
			"quantity": quantity,
		},
	}
	return c.postJSON(ctx, "/v2/carts/"+cartID+"/items", body, token, "add cart item", nil)
}

// RemoveCartItem deletes one cart line by its item id.
func (c *Client) RemoveCartItem(ctx context.Context, cartID, itemID, token string) error {
	return c.delete(ctx, "/v2/carts/"+cartID+"/items/"+itemID, token, "remove cart item")
}
