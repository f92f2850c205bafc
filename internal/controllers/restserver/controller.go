package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/meshview/internal/catalog"
	"github.com/chrissnell/meshview/internal/pathstore"
	"github.com/chrissnell/meshview/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx          context.Context
	wg           *sync.WaitGroup
	serverConfig config.ServerData
	rasterConfig config.RasterData
	Server       http.Server
	Catalog      *catalog.Catalog
	Paths        *pathstore.Store // nil when no path store is configured
	logger       *zap.SugaredLogger
	handlers     *Handlers
	started      time.Time
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, cat *catalog.Catalog, paths *pathstore.Store, logger *zap.SugaredLogger) (*Controller, error) {
	if len(cat.Names()) == 0 {
		return nil, fmt.Errorf("no datasets configured - at least one dataset must be configured for the REST server")
	}

	ctrl := &Controller{
		ctx:          ctx,
		wg:           wg,
		serverConfig: cfg.Server,
		rasterConfig: cfg.Raster,
		Catalog:      cat,
		Paths:        paths,
		logger:       logger,
		started:      time.Now(),
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if ctrl.serverConfig.ListenAddr == "" {
		logger.Info("server.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		ctrl.serverConfig.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if ctrl.serverConfig.HTTPPort == 0 {
		logger.Info("server.http-port not provided; defaulting to 8080")
		ctrl.serverConfig.HTTPPort = 8080
	}

	if paths != nil && ctrl.serverConfig.AuthToken == "" {
		logger.Warn("server.auth-token not provided; saved paths can be modified without authentication")
	}

	if ctrl.rasterConfig.Width == 0 && ctrl.rasterConfig.Height == 0 {
		logger.Info("raster.width not provided; defaulting to 600")
		ctrl.rasterConfig.Width = 600
	}

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", ctrl.serverConfig.ListenAddr, ctrl.serverConfig.HTTPPort)
	ctrl.Server.Handler = ctrl.corsMiddleware(ctrl.setupRouter())
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.serverConfig.TLSCertPath != "" && c.serverConfig.TLSKeyPath != "" {
			if err := c.Server.ListenAndServeTLS(c.serverConfig.TLSCertPath, c.serverConfig.TLSKeyPath); err != http.ErrServerClosed {
				c.logger.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				c.logger.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.requestLogMiddleware)

	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/datasets", c.handlers.ListDatasets).Methods(http.MethodGet)
	router.HandleFunc("/datasets/{name}", c.handlers.GetDataset).Methods(http.MethodGet)
	router.HandleFunc("/datasets/{name}/raster.png", c.handlers.GetRaster).Methods(http.MethodGet)
	router.HandleFunc("/datasets/{name}/cross-section", c.handlers.PostCrossSection).Methods(http.MethodPost)
	router.HandleFunc("/datasets/{name}/surface-section", c.handlers.PostSurfaceSection).Methods(http.MethodPost)

	// Saved paths are only available when a path store is configured
	if c.Paths != nil {
		router.HandleFunc("/datasets/{name}/paths", c.handlers.ListPaths).Methods(http.MethodGet)
		router.Handle("/datasets/{name}/paths", c.authMiddleware(c.handlers.SavePath)).Methods(http.MethodPost)
		router.HandleFunc("/paths/{id}", c.handlers.GetPath).Methods(http.MethodGet)
		router.Handle("/paths/{id}", c.authMiddleware(c.handlers.DeletePath)).Methods(http.MethodDelete)
	}

	return router
}

// Handler exposes the router, mainly for tests
func (c *Controller) Handler() http.Handler {
	return c.Server.Handler
}
