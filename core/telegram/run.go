// Package telegram is the chat transport adapter: it runs the bot,
// translates Telegram updates into conversation events, and renders
// outbound messages back through the Telegram API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/tbaiguzhinov/pizza-bot/core/config"
	"github.com/tbaiguzhinov/pizza-bot/core/flow"
	"github.com/tbaiguzhinov/pizza-bot/core/httpx"
	"github.com/tbaiguzhinov/pizza-bot/core/logger"
	"github.com/tbaiguzhinov/pizza-bot/core/telegram/middleware"
)

// EventHandler processes one inbound conversation event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev flow.Event) error
}

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// RunOptions controls the behaviour of Run.
type RunOptions struct {
	Config *coreconfig.Config

	// NewHandler builds the dialog event handler once the outbound
	// messenger is available. Required.
	NewHandler func(m *Messenger) EventHandler

	// ExtraMiddlewares are appended after the default chain.
	ExtraMiddlewares []Middleware

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// DefaultMiddlewares builds the shared middleware chain from configuration.
func DefaultMiddlewares(cfg *coreconfig.Config) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.Recover},
	}

	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(t)] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use:  middleware.RateLimit(middleware.RateLimitOptions{Interval: interval, Exclude: ex}),
		})
	}

	return append(mws, Middleware{Name: "logger", Use: middleware.Logger})
}

// Run composes and runs the Telegram bot until the provided context is done.
func Run(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.NewHandler == nil {
		return fmt.Errorf("telegram: nil handler factory provided")
	}

	cfg := opts.Config

	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: httpx.NewClient(httpx.Options{}),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	default:
		timeoutSec := cfg.Telegram.LongPollTimeoutSeconds
		if timeoutSec <= 0 {
			timeoutSec = 10
		}
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", timeoutSec),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)

		if !opts.DisableWebhookCleanup && strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeLongpoll) {
			if err := deleteWebhook(cfg.Telegram.Token, false); err != nil {
				logger.TG.Warn("failed to delete webhook",
					slog.String("event", "delete_webhook"),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	for _, mw := range DefaultMiddlewares(cfg) {
		bot.Use(mw.Use)
	}
	for _, mw := range opts.ExtraMiddlewares {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
	}

	handler := opts.NewHandler(NewMessenger(bot))
	registerRoutes(ctx, bot, handler)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx); err != nil {
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	if opts.OnStop != nil {
		if err := opts.OnStop(ctx); err != nil {
			return err
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// registerRoutes binds the three inbound update kinds plus the restart
// command to the dialog handler. Handler errors are logged here, not
// surfaced to Telegram, so failed cycles stay silent for the user.
func registerRoutes(ctx context.Context, bot *tele.Bot, handler EventHandler) {
	dispatch := func(ev flow.Event) {
		if ev.SessionKey == "" {
			return
		}
		// Errors are already logged with full cycle context by the router.
		_ = handler.HandleEvent(ctx, ev)
	}

	bot.Handle("/start", func(c tele.Context) error {
		dispatch(eventFromText(c))
		return nil
	})
	bot.Handle(tele.OnText, func(c tele.Context) error {
		dispatch(eventFromText(c))
		return nil
	})
	bot.Handle(tele.OnCallback, func(c tele.Context) error {
		defer func() { _ = c.Respond() }()
		dispatch(eventFromCallback(c))
		return nil
	})
	bot.Handle(tele.OnLocation, func(c tele.Context) error {
		dispatch(eventFromLocation(c))
		return nil
	})
}

func deleteWebhook(token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := "drop_pending_updates=false"
	if dropPending {
		body = "drop_pending_updates=true"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
