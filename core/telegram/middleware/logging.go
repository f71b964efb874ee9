package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/tbaiguzhinov/pizza-bot/core/logger"
)

// Logger logs a single receipt line per update at debug level.
func Logger(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		attrs := []slog.Attr{
			slog.String("event", "update.received"),
			slog.Int("update_id", upd.ID),
		}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.Int64("chat_id", chat.ID))
		}
		if user := c.Sender(); user != nil && user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		switch {
		case upd.Callback != nil:
			attrs = append(attrs,
				slog.String("kind", "callback"),
				slog.String("payload", logger.SanitizeLimit(upd.Callback.Data, 256)))
		case upd.Message != nil && upd.Message.Location != nil:
			attrs = append(attrs, slog.String("kind", "location"))
		case upd.Message != nil:
			attrs = append(attrs,
				slog.String("kind", "message"),
				slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
		}
		logger.TG.LogAttrs(logger.Background(), slog.LevelDebug, "update received", attrs...)
		return next(c)
	}
}
