// Package session owns durable per-user conversation state: the session
// model, the key-value Store contract with its in-memory and Postgres
// implementations, and the catalog access token lifecycle.
package session

import (
	"context"
	"encoding/json"
	"fmt"
)

// State identifies a conversation step of the ordering flow.
type State string

const (
	// StateStart is the entry state; any event renders the root menu.
	StateStart State = "START"
	// StateMenu means a category or product list was shown.
	StateMenu State = "HANDLE_MENU"
	// StateDescription means a single product detail was shown.
	StateDescription State = "HANDLE_DESCRIPTION"
	// StateCart means the cart contents were shown.
	StateCart State = "HANDLE_CART"
	// StateEmail means the bot is waiting for a free-text email.
	StateEmail State = "OBTAIN_EMAIL"
	// StateGeolocation means the bot is waiting for an address or location share.
	StateGeolocation State = "OBTAIN_GEOLOCATION"
	// StateDelivery means the pickup-vs-delivery choice was shown.
	StateDelivery State = "HANDLE_DELIVERY"
)

var knownStates = map[State]struct{}{
	StateStart:       {},
	StateMenu:        {},
	StateDescription: {},
	StateCart:        {},
	StateEmail:       {},
	StateGeolocation: {},
	StateDelivery:    {},
}

// ParseState maps a stored state string to a known State.
// Unknown or empty values resolve to StateStart, self-healing corrupt sessions.
func ParseState(raw string) State {
	st := State(raw)
	if _, ok := knownStates[st]; ok {
		return st
	}
	return StateStart
}

// Known reports whether st belongs to the known state set.
func (s State) Known() bool {
	_, ok := knownStates[s]
	return ok
}

// Coordinates is a resolved geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Pizzeria is the nearest-pizzeria lookup result kept on the session.
type Pizzeria struct {
	Address    string  `json:"address"`
	DistanceKM float64 `json:"distance_km"`
	CourierID  string  `json:"courier_id"`
}

// Session is the durable conversation state for one end user.
type Session struct {
	Key         string       `json:"key"`
	State       State        `json:"state"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Pizzeria    *Pizzeria    `json:"pizzeria,omitempty"`
	CustomerID  string       `json:"customer_id,omitempty"`
}

// CartID derives the deterministic cart identifier for the session.
func (s Session) CartID() string {
	return "cart-" + s.Key
}

const sessionKeyPrefix = "session:"

// GetOrCreateSession loads the session for key, returning a fresh StateStart
// session when the key has never been seen or the stored value is corrupt.
func GetOrCreateSession(ctx context.Context, store Store, key string) (Session, error) {
	raw, err := store.Get(ctx, sessionKeyPrefix+key)
	if err != nil {
		return Session{}, fmt.Errorf("load session %s: %w", key, err)
	}
	sess := Session{Key: key, State: StateStart}
	if len(raw) == 0 {
		return sess, nil
	}
	if err := json.Unmarshal(raw, &sess); err != nil {
		// corrupt record resets to a fresh session
		return Session{Key: key, State: StateStart}, nil
	}
	sess.Key = key
	sess.State = ParseState(string(sess.State))
	return sess, nil
}

// SaveSession persists the session keyed by its session key.
func SaveSession(ctx context.Context, store Store, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.Key, err)
	}
	if err := store.Set(ctx, sessionKeyPrefix+sess.Key, raw); err != nil {
		return fmt.Errorf("save session %s: %w", sess.Key, err)
	}
	return nil
}
