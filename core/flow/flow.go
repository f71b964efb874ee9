// Package flow is the conversation state machine of the ordering bot.
// Transition consumes one inbound event plus a session snapshot and
// produces the next state, the mutated session, and the outbound
// messages. The package holds no transport or storage code of its own;
// catalog, geocoder, messenger, and session store are injected.
package flow

import (
	"context"

	"github.com/tbaiguzhinov/pizza-bot/core/catalog"
	"github.com/tbaiguzhinov/pizza-bot/core/geo"
	"github.com/tbaiguzhinov/pizza-bot/core/session"
)

// Catalog is the commerce backend surface the state machine needs.
type Catalog interface {
	Categories(ctx context.Context, token string) ([]catalog.Category, error)
	Products(ctx context.Context, token string) ([]catalog.Product, error)
	ProductsByCategory(ctx context.Context, categoryID, token string) ([]catalog.Product, error)
	Product(ctx context.Context, productID, token string) (catalog.Product, error)
	FileURL(ctx context.Context, fileID, token string) (string, error)
	Cart(ctx context.Context, cartID, token string) (catalog.Cart, error)
	CartItems(ctx context.Context, cartID, token string) ([]catalog.CartItem, error)
	AddCartItem(ctx context.Context, cartID, productID string, quantity int, token string) error
	RemoveCartItem(ctx context.Context, cartID, itemID, token string) error
	LookupOrCreateCustomer(ctx context.Context, email, token string) (string, error)
	CreateEntry(ctx context.Context, flowSlug string, fields map[string]any, token string) error
	Pizzerias(ctx context.Context, token string) ([]catalog.Pizzeria, error)
}

// Geocoder resolves free-form addresses. The boolean is false when the
// address has no match, which is a validation outcome, not an error.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (geo.Point, bool, error)
}

// Messenger delivers outbound messages over the chat transport.
type Messenger interface {
	SendText(ctx context.Context, recipient string, msg Text) error
	SendPhoto(ctx context.Context, recipient string, msg Photo) error
	SendCarousel(ctx context.Context, recipient string, msg Carousel) error
	SendLocation(ctx context.Context, recipient string, msg LocationPin) error
}

// Result is the outcome of one transition. Session carries the mutations
// with State already set to Next.
type Result struct {
	Next     session.State
	Session  session.Session
	Messages []Message
}

// Machine holds the per-state transition functions and their collaborators.
type Machine struct {
	catalog     Catalog
	geocoder    Geocoder
	cache       *menuCache
	addressFlow string
}

type handlerFunc func(m *Machine, ctx context.Context, sess session.Session, ev Event, token string) (Result, error)

// handlers is the state dispatch table. Every known state has an entry;
// Transition falls back to the start handler for anything else.
var handlers = map[session.State]handlerFunc{
	session.StateStart:       (*Machine).handleStart,
	session.StateMenu:        (*Machine).handleMenu,
	session.StateDescription: (*Machine).handleDescription,
	session.StateCart:        (*Machine).handleCart,
	session.StateEmail:       (*Machine).handleEmail,
	session.StateGeolocation: (*Machine).handleGeolocation,
	session.StateDelivery:    (*Machine).handleDelivery,
}

// Options configures a Machine.
type Options struct {
	Catalog  Catalog
	Geocoder Geocoder
	// CacheStore, when set, backs a best-effort catalog cache with no
	// TTL and no invalidation.
	CacheStore session.Store
	// AddressFlow is the flow slug delivery addresses are persisted under.
	AddressFlow string
}

// NewMachine constructs the state machine.
func NewMachine(opts Options) *Machine {
	m := &Machine{
		catalog:     opts.Catalog,
		geocoder:    opts.Geocoder,
		addressFlow: opts.AddressFlow,
	}
	if opts.CacheStore != nil {
		m.cache = &menuCache{store: opts.CacheStore}
	}
	return m
}

// Transition runs one step of the conversation. It returns an error only
// when a collaborator call fails; validation problems are answered with a
// re-prompt and the unchanged state.
func (m *Machine) Transition(ctx context.Context, sess session.Session, ev Event, token string) (Result, error) {
	h, ok := handlers[sess.State]
	if !ok {
		h = (*Machine).handleStart
	}
	res, err := h(m, ctx, sess, ev, token)
	if err != nil {
		return Result{}, err
	}
	res.Session.State = res.Next
	return res, nil
}

func stay(sess session.Session, msgs ...Message) Result {
	return Result{Next: sess.State, Session: sess, Messages: msgs}
}

func advance(sess session.Session, next session.State, msgs ...Message) Result {
	return Result{Next: next, Session: sess, Messages: msgs}
}
