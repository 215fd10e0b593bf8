package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	specpkg "github.com/daap14/contractd/api"
	"github.com/daap14/contractd/internal/api"
	"github.com/daap14/contractd/internal/api/handler"
	"github.com/daap14/contractd/internal/blueprint"
	"github.com/daap14/contractd/internal/config"
	"github.com/daap14/contractd/internal/contract"
	"github.com/daap14/contractd/internal/database"
	"github.com/daap14/contractd/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(os.Stdout, cfg.LogLevel))

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open store", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer st.close()

	router := api.NewRouter(api.RouterDeps{
		Pinger:             st.pinger,
		Store:              cfg.Store,
		Version:            cfg.Version,
		OpenAPISpec:        specpkg.OpenAPISpec,
		Blueprints:         blueprint.NewService(st.blueprints),
		Contracts:          contract.NewService(st.contracts, st.blueprints),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WriteRateLimit:     cfg.WriteRateLimit,
		WriteRateBurst:     cfg.WriteRateBurst,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting contractd server", "port", cfg.Port, "version", cfg.Version, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		st.close()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		st.close()
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// store bundles the repositories backing one STORE choice.
type store struct {
	blueprints blueprint.Repository
	contracts  contract.Repository
	pinger     handler.StorePinger
	close      func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	if cfg.Store == config.StoreMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		return &store{
			blueprints: blueprint.NewMemoryRepository(),
			contracts:  contract.NewMemoryRepository(),
			close:      func() {},
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(connectCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")
	}

	return &store{
		blueprints: blueprint.NewPostgresRepository(db.Pool()),
		contracts:  contract.NewPostgresRepository(db.Pool()),
		pinger:     db,
		close:      db.Close,
	}, nil
}
