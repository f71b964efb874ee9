package catalog

import (
	"context"
)

// Pizzeria is one outlet record from the pizzeria flow.
type Pizzeria struct {
	Address   string  `json:"address"`
	Lat       float64 `json:"latitude"`
	Lon       float64 `json:"longitude"`
	CourierID string  `json:"courier_id"`
}

// Pizzerias lists all outlets with their couriers.
func (c *Client) Pizzerias(ctx context.Context, token string) ([]Pizzeria, error) {
	var payload struct {
		Data []Pizzeria `json:"data"`
	}
	path := "/v2/flows/" + c.pizzeriaFlow + "/entries"
	if err := c.get(ctx, path, nil, token, "list pizzerias", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// CreateEntry stores a record in the named flow. The field names are
// dictated by the flow schema configured on the backend.
func (c *Client) CreateEntry(ctx context.Context, flowSlug string, fields map[string]any, token string) error {
	data := map[string]any{"type": "entry"}
	for k, v := range fields {
		data[k] = v
	}
	body := map[string]any{"data": data}
	return c.postJSON(ctx, "/v2/flows/"+flowSlug+"/entries", body, token, "create entry", nil)
}
