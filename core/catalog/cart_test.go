package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

func TestCartGrandTotal(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/carts/cart-42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"data":{"meta":{"display_price":{"with_tax":{"formatted":"$12.50"}}}}}`)
	})
	cart, err := c.Cart(context.Background(), "cart-42", "tok")
	if err != nil {
		t.Fatalf("Cart: %v", err)
	}
	if cart.GrandTotalFormatted != "$12.50" {
		t.Errorf("grand total = %q", cart.GrandTotalFormatted)
	}
}

func TestCartItems(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/carts/cart-42/items" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"data":[
			{"id":"line-1","product_id":"p1","name":"Margherita",
			 "description":"classic","quantity":2,
			 "image":{"href":"https://cdn/p1.png"}}
		]}`)
	})
	items, err := c.CartItems(context.Background(), "cart-42", "tok")
	if err != nil {
		t.Fatalf("CartItems: %v", err)
	}
	want := CartItem{
		ID: "line-1", ProductID: "p1", Name: "Margherita",
		Description: "classic", Quantity: 2, ImageURL: "https://cdn/p1.png",
	}
	if len(items) != 1 || items[0] != want {
		t.Errorf("items = %+v", items)
	}
}

func TestAddCartItemBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		var body struct {
			Data struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Quantity int    `json:"quantity"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Data.ID != "p1" || body.Data.Type != "cart_item" || body.Data.Quantity != 3 {
			t.Errorf("body = %+v", body.Data)
		}
		w.WriteHeader(http.StatusCreated)
	})
	if err := c.AddCartItem(context.Background(), "cart-42", "p1", 3, "tok"); err != nil {
		t.Fatalf("AddCartItem: %v", err)
	}
}

func TestRemoveCartItem(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %q", r.Method)
		}
		if r.URL.Path != "/v2/carts/cart-42/items/line-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
	})
	if err := c.RemoveCartItem(context.Background(), "cart-42", "line-1", "tok"); err != nil {
		t.Fatalf("RemoveCartItem: %v", err)
	}
}

func TestLookupOrCreateCustomer(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("filter"); got != "eq(email,a@b.c)" {
				t.Errorf("filter = %q", got)
			}
			io.WriteString(w, `{"data":[{"id":"cust-1"}]}`)
		})
		id, err := c.LookupOrCreateCustomer(context.Background(), "a@b.c", "tok")
		if err != nil {
			t.Fatalf("LookupOrCreateCustomer: %v", err)
		}
		if id != "cust-1" {
			t.Errorf("id = %q", id)
		}
	})

	t.Run("created", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				io.WriteString(w, `{"data":[]}`)
				return
			}
			var body struct {
				Data struct {
					Type  string `json:"type"`
					Email string `json:"email"`
				} `json:"data"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Data.Type != "customer" || body.Data.Email != "a@b.c" {
				t.Errorf("body = %+v", body.Data)
			}
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"data":{"id":"cust-2"}}`)
		})
		id, err := c.LookupOrCreateCustomer(context.Background(), "a@b.c", "tok")
		if err != nil {
			t.Fatalf("LookupOrCreateCustomer: %v", err)
		}
		if id != "cust-2" {
			t.Errorf("id = %q", id)
		}
	})
}
