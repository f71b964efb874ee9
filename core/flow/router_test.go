package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbaiguzhinov/pizza-bot/core/session"
)

type sentMessage struct {
	To  string
	Msg Message
}

type fakeMessenger struct {
	sent []sentMessage
	err  error
}

func (f *fakeMessenger) record(to string, msg Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{To: to, Msg: msg})
	return nil
}

func (f *fakeMessenger) SendText(_ context.Context, to string, msg Text) error {
	return f.record(to, msg)
}

func (f *fakeMessenger) SendPhoto(_ context.Context, to string, msg Photo) error {
	return f.record(to, msg)
}

func (f *fakeMessenger) SendCarousel(_ context.Context, to string, msg Carousel) error {
	return f.record(to, msg)
}

func (f *fakeMessenger) SendLocation(_ context.Context, to string, msg LocationPin) error {
	return f.record(to, msg)
}

func staticAuth(token string) session.AuthFunc {
	return func(context.Context) (session.Token, error) {
		return session.Token{Value: token, ExpiresAt: time.Now().Add(time.Hour).Unix()}, nil
	}
}

func newTestRouter(cat *fakeCatalog, msgr *fakeMessenger) (*Router, *session.MemoryStore) {
	store := session.NewMemoryStore()
	tokens := session.NewTokenManager(store, staticAuth("tok"))
	machine := NewMachine(Options{Catalog: cat, Geocoder: &fakeGeocoder{}, AddressFlow: "customer_address"})
	return NewRouter(store, tokens, machine, msgr), store
}

func storedState(t *testing.T, store *session.MemoryStore, key string) session.State {
	t.Helper()
	sess, err := session.GetOrCreateSession(context.Background(), store, key)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return sess.State
}

func TestRouterFullCycle(t *testing.T) {
	msgr := &fakeMessenger{}
	r, store := newTestRouter(newFakeCatalog(), msgr)

	err := r.HandleEvent(context.Background(), Event{SessionKey: "user-1", Kind: KindText, Payload: "hi"})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if got := storedState(t, store, "user-1"); got != session.StateMenu {
		t.Errorf("stored state = %q", got)
	}
	if len(msgr.sent) == 0 {
		t.Fatal("nothing sent")
	}
	for _, s := range msgr.sent {
		if s.To != "user-1" {
			t.Errorf("recipient = %q", s.To)
		}
	}
}

func TestRouterRestartOverride(t *testing.T) {
	msgr := &fakeMessenger{}
	r, store := newTestRouter(newFakeCatalog(), msgr)
	ctx := context.Background()

	sess := session.Session{Key: "user-1", State: session.StateCart}
	if err := session.SaveSession(ctx, store, sess); err != nil {
		t.Fatal(err)
	}

	if err := r.HandleEvent(ctx, Event{SessionKey: "user-1", Kind: KindText, Payload: "/start"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	// The restart command dispatches from the start state, which renders
	// the root menu and advances to the menu state.
	if got := storedState(t, store, "user-1"); got != session.StateMenu {
		t.Errorf("stored state = %q", got)
	}
	var sawCarousel bool
	for _, s := range msgr.sent {
		if _, ok := s.Msg.(Carousel); ok {
			sawCarousel = true
		}
	}
	if !sawCarousel {
		t.Error("root menu carousel not sent after restart")
	}
}

func TestRouterCollaboratorFailureKeepsState(t *testing.T) {
	cat := newFakeCatalog()
	msgr := &fakeMessenger{}
	r, store := newTestRouter(cat, msgr)
	ctx := context.Background()

	if err := session.SaveSession(ctx, store, session.Session{Key: "user-1", State: session.StateCart}); err != nil {
		t.Fatal(err)
	}

	cat.err = errors.New("backend down")
	if err := r.HandleEvent(ctx, Event{SessionKey: "user-1", Kind: KindButton, Payload: "add:p1"}); err == nil {
		t.Fatal("expected error")
	}
	if got := storedState(t, store, "user-1"); got != session.StateCart {
		t.Errorf("stored state = %q, want unchanged", got)
	}
	if len(msgr.sent) != 0 {
		t.Errorf("sent %d messages on failed cycle", len(msgr.sent))
	}
}

func TestRouterSendFailureKeepsState(t *testing.T) {
	msgr := &fakeMessenger{err: errors.New("transport down")}
	r, store := newTestRouter(newFakeCatalog(), msgr)
	ctx := context.Background()

	if err := session.SaveSession(ctx, store, session.Session{Key: "user-1", State: session.StateCart}); err != nil {
		t.Fatal(err)
	}

	if err := r.HandleEvent(ctx, Event{SessionKey: "user-1", Kind: KindButton, Payload: "back"}); err == nil {
		t.Fatal("expected error")
	}
	if got := storedState(t, store, "user-1"); got != session.StateCart {
		t.Errorf("stored state = %q, want unchanged", got)
	}
}

func TestRouterCorruptSessionSelfHeals(t *testing.T) {
	msgr := &fakeMessenger{}
	r, store := newTestRouter(newFakeCatalog(), msgr)
	ctx := context.Background()

	if err := store.Set(ctx, "session:user-1", []byte("{broken")); err != nil {
		t.Fatal(err)
	}

	if err := r.HandleEvent(ctx, Event{SessionKey: "user-1", Kind: KindText, Payload: "hi"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if got := storedState(t, store, "user-1"); got != session.StateMenu {
		t.Errorf("stored state = %q", got)
	}
}

func TestRouterCourierRecipient(t *testing.T) {
	cat := newFakeCatalog()
	msgr := &fakeMessenger{}
	r, store := newTestRouter(cat, msgr)
	ctx := context.Background()

	sess := deliverySession()
	if err := session.SaveSession(ctx, store, sess); err != nil {
		t.Fatal(err)
	}
	if err := cat.AddCartItem(ctx, sess.CartID(), "p1", 1, "tok"); err != nil {
		t.Fatal(err)
	}

	if err := r.HandleEvent(ctx, Event{SessionKey: sess.Key, Kind: KindButton, Payload: "delivery"}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	var courier, customer int
	for _, s := range msgr.sent {
		switch s.To {
		case "courier-9":
			courier++
		case sess.Key:
			customer++
		default:
			t.Errorf("unexpected recipient %q", s.To)
		}
	}
	if courier != 2 || customer != 1 {
		t.Errorf("courier msgs = %d, customer msgs = %d", courier, customer)
	}
	if got := storedState(t, store, sess.Key); got != session.StateStart {
		t.Errorf("stored state = %q", got)
	}
}
