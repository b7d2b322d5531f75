package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/johnrirwin/youthinvest/internal/api"
	"github.com/johnrirwin/youthinvest/internal/auth"
	"github.com/johnrirwin/youthinvest/internal/cache"
	"github.com/johnrirwin/youthinvest/internal/config"
	"github.com/johnrirwin/youthinvest/internal/crypto"
	"github.com/johnrirwin/youthinvest/internal/database"
	"github.com/johnrirwin/youthinvest/internal/httpapi"
	"github.com/johnrirwin/youthinvest/internal/investing"
	"github.com/johnrirwin/youthinvest/internal/kvstore"
	"github.com/johnrirwin/youthinvest/internal/logging"
	"github.com/johnrirwin/youthinvest/internal/mcp"
)

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Store          kvstore.Store
	Cache          *cache.Cache
	Client         *api.Client
	Service        *investing.Service
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	HTTPServer     *httpapi.Server
	MCPServer      *mcp.Server
	closers        []func() error
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = app.initLogger()

	store, err := app.initStore()
	if err != nil {
		return nil, err
	}
	if key := cfg.Cache.EncryptionKey; key != "" {
		enc, err := crypto.NewEncryptor([]byte(key))
		if err != nil {
			app.close()
			return nil, fmt.Errorf("cache encryption: %w", err)
		}
		store = kvstore.NewEncrypted(store, enc)
		app.Logger.Info("Cache values are encrypted at rest")
	}
	app.Store = store

	app.Cache = cache.New(store, policyFromConfig(cfg.Cache.TTL),
		cache.WithKeyPrefix(cfg.Cache.KeyPrefix),
		cache.WithLogger(app.Logger),
	)

	app.AuthService = auth.NewService(cfg.Auth, app.Logger)
	if cfg.Auth.RequireAuth {
		app.AuthMiddleware = auth.NewMiddleware(app.AuthService)
	}

	client, err := api.NewClient(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserID:    cfg.API.UserID,
		RateLimit: cfg.API.RateLimitDur,
	}, api.WithTokenSource(app.AuthService), api.WithLogger(app.Logger))
	if err != nil {
		app.close()
		return nil, err
	}
	app.Client = client

	app.Service = investing.NewService(client, app.Cache, app.Logger)
	app.HTTPServer = httpapi.New(app.Service, app.AuthMiddleware, app.Logger)
	app.MCPServer = mcp.NewServer(mcp.NewHandler(app.Service, app.Logger), app.Logger)

	return app, nil
}

// Run starts the application in the configured mode.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Server.MCPMode {
		return a.runMCPMode(ctx)
	}
	return a.runHTTPMode(ctx)
}

func (a *App) runMCPMode(ctx context.Context) error {
	a.Logger.Info("Starting MCP server in stdio mode")
	a.prefetch(ctx)
	return a.MCPServer.Run(ctx)
}

// runHTTPMode serves until ctx is cancelled or the listener fails.
func (a *App) runHTTPMode(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))

	go a.prefetch(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.HTTPServer.Start(a.Config.Server.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	a.close()
	return nil
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Error("Close error", logging.WithField("error", err.Error()))
		}
	}
	a.closers = nil
}

func (a *App) initLogger() *logging.Logger {
	level := logging.ParseLevel(a.Config.Logging.Level)
	if a.Config.Logging.Format == "console" {
		return logging.NewConsole(level)
	}
	return logging.New(level)
}

// initStore opens the configured backend. Redis and PostgreSQL fall back to
// memory when unreachable; file and SQLite failures are fatal.
func (a *App) initStore() (kvstore.Store, error) {
	cfg := a.Config.Cache

	switch cfg.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache store", logging.WithField("addr", cfg.RedisAddr))
		store, err := kvstore.NewRedis(kvstore.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory store", logging.WithField("error", err.Error()))
			return kvstore.NewMemory(), nil
		}
		a.closers = append(a.closers, store.Close)
		return store, nil

	case "postgres":
		store, err := a.initPostgresStore()
		if err != nil {
			a.Logger.Warn("Failed to set up PostgreSQL, falling back to memory store", logging.WithField("error", err.Error()))
			return kvstore.NewMemory(), nil
		}
		return store, nil

	case "sqlite":
		a.Logger.Info("Using SQLite cache store", logging.WithField("path", cfg.SQLitePath))
		store, err := kvstore.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil

	case "file":
		a.Logger.Info("Using file cache store", logging.WithField("dir", cfg.FileDir))
		store, err := kvstore.NewFileStore(cfg.FileDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return store, nil

	default:
		a.Logger.Info("Using in-memory cache store")
		return kvstore.NewMemory(), nil
	}
}

func (a *App) initPostgresStore() (kvstore.Store, error) {
	dbConfig := database.DefaultConfig()
	dbConfig.Host = a.Config.Database.Host
	dbConfig.Port = a.Config.Database.Port
	dbConfig.User = a.Config.Database.User
	dbConfig.Password = a.Config.Database.Password
	dbConfig.Database = a.Config.Database.Database
	dbConfig.SSLMode = a.Config.Database.SSLMode

	db, err := database.New(dbConfig)
	if err != nil {
		return nil, err
	}

	a.Logger.Info("Connected to PostgreSQL")
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a.closers = append(a.closers, db.Close)
	return kvstore.NewPostgres(db.DB), nil
}

// prefetch warms the dashboard domains so the first page load is a hit.
func (a *App) prefetch(ctx context.Context) {
	a.Logger.Info("Pre-fetching dashboard in background...")
	if _, err := a.Service.Dashboard(ctx); err != nil {
		a.Logger.Warn("Initial fetch had errors", logging.WithField("error", err.Error()))
		return
	}
	a.Logger.Info("Initial fetch complete")
}

func policyFromConfig(ttl config.TTLConfig) cache.Policy {
	return cache.Policy{
		cache.Projects:       ttl.Projects,
		cache.Portfolio:      ttl.Portfolio,
		cache.UserBalance:    ttl.UserBalance,
		cache.SimulationData: ttl.SimulationData,
	}
}
