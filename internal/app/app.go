package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/meshview/internal/catalog"
	"github.com/chrissnell/meshview/internal/controllers/restserver"
	"github.com/chrissnell/meshview/internal/log"
	"github.com/chrissnell/meshview/internal/pathstore"
	"github.com/chrissnell/meshview/pkg/config"
	"go.uber.org/zap"
)

// App represents the meshview server
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the REST server and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cat := catalog.New(a.cfg.Datasets, a.logger.Named("catalog"))

	// Fail fast on broken datasets instead of on the first request
	if err := cat.LoadAll(); err != nil {
		return fmt.Errorf("loading datasets: %w", err)
	}

	var paths *pathstore.Store
	if a.cfg.PathStore != nil && a.cfg.PathStore.Path != "" {
		var err error
		paths, err = pathstore.Open(a.cfg.PathStore.Path)
		if err != nil {
			return err
		}
		defer paths.Close()
		log.Infof("saved paths stored in %s", a.cfg.PathStore.Path)
	}

	ctrl, err := restserver.NewController(ctx, &wg, a.cfg, cat, paths, a.logger.Named("restserver"))
	if err != nil {
		return err
	}
	if err := ctrl.StartController(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
