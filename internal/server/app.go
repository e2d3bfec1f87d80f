// Package server initializes and runs the application: it opens the
// on-disk stores, wires the services together, and serves the HTTP API
// until a termination signal arrives.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dstepanenko/dreamhouse/internal/filex"
	"github.com/dstepanenko/dreamhouse/internal/logging"
	"github.com/dstepanenko/dreamhouse/internal/server/auth"
	"github.com/dstepanenko/dreamhouse/internal/server/blob"
	"github.com/dstepanenko/dreamhouse/internal/server/config"
	"github.com/dstepanenko/dreamhouse/internal/server/httpapi"
	"github.com/dstepanenko/dreamhouse/internal/server/projects"
	"github.com/dstepanenko/dreamhouse/internal/server/versions"
	"github.com/dstepanenko/dreamhouse/internal/syncx"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	httpServer *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	dataDir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir init error: %w", err)
	}

	store := blob.New(dataDir)

	authStore, err := auth.Open(dataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("auth store init error: %w", err)
	}

	// one lock table shared by both services: update, revert, and delete
	// on the same project id must serialize
	locks := syncx.NewKeyedMutex()
	vs := versions.NewService(store, locks, logger)
	ps := projects.NewService(store, vs, locks, cfg.DefaultPageSize, cfg.MaxPageSize, logger)

	srv := httpapi.NewServer(cfg, authStore, ps, vs, logger)

	return &App{config: cfg, logger: logger, httpServer: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "data_dir", app.config.DataDir)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
