// Package bootstrap assembles the application from configuration: logger,
// session store backend, catalog and geocoder clients, the token manager,
// and the conversation state machine.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tbaiguzhinov/pizza-bot/core/catalog"
	coreconfig "github.com/tbaiguzhinov/pizza-bot/core/config"
	coredatabase "github.com/tbaiguzhinov/pizza-bot/core/database"
	"github.com/tbaiguzhinov/pizza-bot/core/flow"
	"github.com/tbaiguzhinov/pizza-bot/core/geo"
	"github.com/tbaiguzhinov/pizza-bot/core/logger"
	"github.com/tbaiguzhinov/pizza-bot/core/session"
	"github.com/tbaiguzhinov/pizza-bot/core/telegram"
)

// Options control the bootstrap pipeline. The function fields exist for
// tests; nil selects the real implementation.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(coreconfig.DatabaseConfig) error
}

// App holds the wired application components.
type App struct {
	Config  *coreconfig.Config
	Store   session.Store
	Tokens  *session.TokenManager
	Machine *flow.Machine

	db *sqlx.DB
}

// Run initializes the logger, selects the session store backend, and
// wires the domain clients.
func Run(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	app := &App{Config: cfg}

	switch cfg.Store.Backend {
	case coreconfig.StorePostgres:
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(cfg.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		app.db = db
		app.Store = session.NewPostgresStore(db)
	default:
		app.Store = session.NewMemoryStore()
	}

	catalogClient := catalog.New(cfg.Catalog, nil)
	geocoder := geo.New(cfg.Geocoder, nil)

	app.Tokens = session.NewTokenManager(app.Store, func(ctx context.Context) (session.Token, error) {
		value, expiresAt, err := catalogClient.Authenticate(ctx)
		if err != nil {
			return session.Token{}, err
		}
		return session.Token{Value: value, ExpiresAt: expiresAt}, nil
	})

	app.Machine = flow.NewMachine(flow.Options{
		Catalog:     catalogClient,
		Geocoder:    geocoder,
		CacheStore:  app.Store,
		AddressFlow: cfg.Catalog.AddressFlow,
	})

	return app, nil
}

// TelegramRunOptions builds the transport run options for the wired app.
// The token is primed on start so the first inbound event never pays the
// authentication round trip.
func (a *App) TelegramRunOptions() telegram.RunOptions {
	return telegram.RunOptions{
		Config: a.Config,
		NewHandler: func(m *telegram.Messenger) telegram.EventHandler {
			return flow.NewRouter(a.Store, a.Tokens, a.Machine, m)
		},
		OnStart: func(ctx context.Context) error {
			return a.Tokens.Prime(ctx)
		},
		OnStop: func(context.Context) error {
			return a.Close()
		},
	}
}

// Close releases infrastructure owned by the app.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
