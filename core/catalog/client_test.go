package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	coreconfig "github.com/tbaiguzhinov/pizza-bot/core/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(coreconfig.CatalogConfig{
		BaseURL:      srv.URL,
		ClientID:     "cid",
		ClientSecret: "secret",
		PizzeriaFlow: "pizzeria",
	}, srv.Client())
}

func TestAuthenticate(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/access_token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("client_id"); got != "cid" {
			t.Errorf("client_id = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"expires":      1700000000,
		})
	})

	token, expires, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if token != "tok-1" || expires != 1700000000 {
		t.Errorf("got (%q, %d)", token, expires)
	}
}

func TestProductsMapping(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `{"data":[
			{"id":"p1","name":"Margherita","description":"classic",
			 "price":[{"amount":550}],
			 "relationships":{"main_image":{"data":{"id":"img-1"}}}},
			{"id":"p2","name":"Bare","description":"no price"}
		]}`)
	})

	products, err := c.Products(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("len = %d", len(products))
	}
	want := Product{ID: "p1", Name: "Margherita", Description: "classic", Price: 550, ImageFileID: "img-1"}
	if products[0] != want {
		t.Errorf("products[0] = %+v", products[0])
	}
	if products[1].Price != 0 {
		t.Errorf("missing price should map to 0, got %d", products[1].Price)
	}
}

func TestProductsByCategoryFilter(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filter"); got != "eq(category.id,cat-7)" {
			t.Errorf("filter = %q", got)
		}
		io.WriteString(w, `{"data":[]}`)
	})
	if _, err := c.ProductsByCategory(context.Background(), "cat-7", "tok"); err != nil {
		t.Fatalf("ProductsByCategory: %v", err)
	}
}

func TestFileURL(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/files/img-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"data":{"link":{"href":"https://cdn/img-1.png"}}}`)
	})
	href, err := c.FileURL(context.Background(), "img-1", "tok")
	if err != nil {
		t.Fatalf("FileURL: %v", err)
	}
	if href != "https://cdn/img-1.png" {
		t.Errorf("href = %q", href)
	}
}

func TestAPIErrorStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.Products(context.Background(), "tok")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("status = %d", apiErr.Status)
	}
}

func TestPizzerias(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/flows/pizzeria/entries" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"data":[
			{"address":"Tverskaya 1","latitude":55.757,"longitude":37.615,"courier_id":"123"}
		]}`)
	})
	pizzerias, err := c.Pizzerias(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Pizzerias: %v", err)
	}
	want := Pizzeria{Address: "Tverskaya 1", Lat: 55.757, Lon: 37.615, CourierID: "123"}
	if len(pizzerias) != 1 || pizzerias[0] != want {
		t.Errorf("pizzerias = %+v", pizzerias)
	}
}

func TestCreateEntry(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/flows/customer_address/entries" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Data map[string]any `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Data["type"] != "entry" {
			t.Errorf("type = %v", body.Data["type"])
		}
		if body.Data["latitude"] != 55.7 {
			t.Errorf("latitude = %v", body.Data["latitude"])
		}
		w.WriteHeader(http.StatusCreated)
	})
	err := c.CreateEntry(context.Background(), "customer_address",
		map[string]any{"latitude": 55.7, "longitude": 37.6}, "tok")
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
}
