// Command resumaster-server serves the resume API: analysis, portfolio
// generation, job search, contact replies, and the saved-resume library.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/resumaster/resumaster/internal/dotenv"
	"github.com/resumaster/resumaster/pkg/config"
	"github.com/resumaster/resumaster/pkg/gemini"
	"github.com/resumaster/resumaster/pkg/server"
	"github.com/resumaster/resumaster/pkg/store"
)

type serverDeps struct {
	loadConfig   func() (config.Config, error)
	newGenerator func(ctx context.Context, apiKey string, logger *slog.Logger) (server.Generator, error)
	openStore    func(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, func(), error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultServerDeps() serverDeps {
	return serverDeps{
		loadConfig: config.LoadFromEnv,
		newGenerator: func(ctx context.Context, apiKey string, logger *slog.Logger) (server.Generator, error) {
			return gemini.NewClient(ctx, apiKey, logger)
		},
		openStore: openStore,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

// openStore selects the persistence backend: Postgres when DATABASE_URL is
// set, otherwise the in-memory store. The returned cleanup releases the pool.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("no DATABASE_URL set, using in-memory resume store")
		return store.NewMemoryStore(), func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := store.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("using postgres resume store")
	return store.NewPostgresStore(pool), pool.Close, nil
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func runServer(ctx context.Context, stderr io.Writer, deps serverDeps) error {
	if deps.loadConfig == nil || deps.newGenerator == nil || deps.openStore == nil {
		return errors.New("missing server dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	generator, err := deps.newGenerator(ctx, cfg.GeminiAPIKey, logger)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	st, closeStore, err := deps.openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.New(cfg, generator, st, logger)
	httpSrv := buildHTTPServer(cfg, srv.Handler())

	logger.Info("starting server", "addr", cfg.Addr)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps serverDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}

	if err := dotenv.LoadFile(".env"); err != nil {
		fmt.Fprintf(stderr, "resumaster-server: %v\n", err)
		return 1
	}

	if err := runServer(ctx, stderr, deps); err != nil {
		fmt.Fprintf(stderr, "resumaster-server: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultServerDeps()))
}
