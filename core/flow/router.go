package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbaiguzhinov/pizza-bot/core/logger"
	"github.com/tbaiguzhinov/pizza-bot/core/session"
)

// Router drives one full event cycle: load session, apply the restart
// override, obtain a fresh catalog token, run the state machine, deliver
// the outbound messages, and only then persist the advanced session. Any
// collaborator failure aborts the cycle before the persist, so the next
// inbound event retries from the previous state.
type Router struct {
	store     session.Store
	tokens    *session.TokenManager
	machine   *Machine
	messenger Messenger
}

// NewRouter wires the dialog router.
func NewRouter(store session.Store, tokens *session.TokenManager, machine *Machine, messenger Messenger) *Router {
	return &Router{store: store, tokens: tokens, machine: machine, messenger: messenger}
}

// HandleEvent processes one inbound event to completion.
func (r *Router) HandleEvent(ctx context.Context, ev Event) error {
	start := time.Now()
	ctx = logger.WithRID(ctx, uuid.NewString())
	ctx = logger.WithSessionKey(ctx, ev.SessionKey)

	sess, err := session.GetOrCreateSession(ctx, r.store, ev.SessionKey)
	if err != nil {
		logger.Error(ctx, "dialog", "load_session_failed", slog.String("err", err.Error()))
		return err
	}
	if IsRestart(ev) {
		sess.State = session.StateStart
	}

	token, err := r.tokens.Token(ctx)
	if err != nil {
		logger.Error(ctx, "dialog", "token_failed", slog.String("err", err.Error()))
		return err
	}

	res, err := r.machine.Transition(ctx, sess, ev, token)
	if err != nil {
		logger.Error(ctx, "dialog", "transition_failed",
			slog.String("state", string(sess.State)),
			slog.String("kind", string(ev.Kind)),
			slog.String("payload", logger.SanitizeLimit(ev.Payload, 64)),
			slog.String("err", err.Error()))
		return err
	}

	for _, msg := range res.Messages {
		if err := r.deliver(ctx, ev.SessionKey, msg); err != nil {
			logger.Error(ctx, "dialog", "send_failed",
				slog.String("state", string(sess.State)),
				slog.String("err", err.Error()))
			return err
		}
	}

	if err := session.SaveSession(ctx, r.store, res.Session); err != nil {
		logger.Error(ctx, "dialog", "save_session_failed", slog.String("err", err.Error()))
		return err
	}

	logger.Info(ctx, "dialog", "cycle",
		slog.String("state", string(sess.State)),
		slog.String("next_state", string(res.Next)),
		slog.Int("messages", len(res.Messages)),
		slog.Duration("duration", logger.Took(start)))
	return nil
}

func (r *Router) deliver(ctx context.Context, sessionKey string, msg Message) error {
	to := msg.recipient()
	if to == "" {
		to = sessionKey
	}
	switch t := msg.(type) {
	case Text:
		return r.messenger.SendText(ctx, to, t)
	case Photo:
		return r.messenger.SendPhoto(ctx, to, t)
	case Carousel:
		return r.messenger.SendCarousel(ctx, to, t)
	case LocationPin:
		return r.messenger.SendLocation(ctx, to, t)
	}
	return nil
}
