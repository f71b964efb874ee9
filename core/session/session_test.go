package session

import (
	"context"
	"testing"
)

func TestParseStateUnknownDefaultsToStart(t *testing.T) {
	cases := map[string]State{
		"":                   StateStart,
		"garbage":            StateStart,
		"start":              StateStart, // case-sensitive on purpose
		"START":              StateStart,
		"HANDLE_MENU":        StateMenu,
		"HANDLE_CART":        StateCart,
		"OBTAIN_EMAIL":       StateEmail,
		"HANDLE_DELIVERY":    StateDelivery,
		"OBTAIN_GEOLOCATION": StateGeolocation,
	}
	for raw, want := range cases {
		if got := ParseState(raw); got != want {
			t.Errorf("ParseState(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestGetOrCreateSessionDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := GetOrCreateSession(ctx, store, "chat-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Key != "chat-1" || sess.State != StateStart {
		t.Fatalf("unexpected default session: %+v", sess)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess := Session{
		Key:         "chat-2",
		State:       StateDelivery,
		Coordinates: &Coordinates{Lat: 55.75, Lon: 37.61},
		Pizzeria:    &Pizzeria{Address: "Tverskaya 1", DistanceKM: 2.4, CourierID: "courier-9"},
		CustomerID:  "cust-1",
	}
	if err := SaveSession(ctx, store, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := GetOrCreateSession(ctx, store, "chat-2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.State != StateDelivery {
		t.Errorf("state = %q, want %q", loaded.State, StateDelivery)
	}
	if loaded.Pizzeria == nil || loaded.Pizzeria.CourierID != "courier-9" {
		t.Errorf("pizzeria not restored: %+v", loaded.Pizzeria)
	}
	if loaded.Coordinates == nil || loaded.Coordinates.Lat != 55.75 {
		t.Errorf("coordinates not restored: %+v", loaded.Coordinates)
	}
}

func TestGetOrCreateSessionCorruptRecordSelfHeals(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Set(ctx, "session:chat-3", []byte("{not json")); err != nil {
		t.Fatalf("set: %v", err)
	}

	sess, err := GetOrCreateSession(ctx, store, "chat-3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State != StateStart {
		t.Errorf("corrupt session should reset to START, got %q", sess.State)
	}
}

func TestGetOrCreateSessionUnknownStoredState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Set(ctx, "session:chat-4", []byte(`{"key":"chat-4","state":"NOT_A_STATE"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	sess, err := GetOrCreateSession(ctx, store, "chat-4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State != StateStart {
		t.Errorf("unknown state should resolve to START, got %q", sess.State)
	}
}

func TestCartIDDeterministic(t *testing.T) {
	a := Session{Key: "42"}
	b := Session{Key: "42"}
	if a.CartID() != b.CartID() {
		t.Errorf("cart ids differ: %q vs %q", a.CartID(), b.CartID())
	}
	if a.CartID() == (Session{Key: "43"}).CartID() {
		t.Error("different sessions share a cart id")
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	val := []byte("abc")
	if err := store.Set(ctx, "k", val); err != nil {
		t.Fatalf("set: %v", err)
	}
	val[0] = 'x'

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("store aliased caller slice: %q", got)
	}
}
