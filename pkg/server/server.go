package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"serverlist/pkg/coordinator"
	"serverlist/pkg/history"
	"serverlist/pkg/log"
	"serverlist/pkg/models"
)

const (
	shutdownTimeout = 10
)

// ServerList is the part of the coordinator the API drives.
type ServerList interface {
	Snapshot() coordinator.View
	LoadAll(ctx context.Context) error
	Add(ctx context.Context, name, addr string) (models.ServerEntry, error)
	Edit(ctx context.Context, id, name, addr string) (models.ServerEntry, error)
	Delete(ctx context.Context, id string) error
	Refresh(id string, force bool) error
	SetFilter(substring string) coordinator.View
	Entry(id string) (models.ServerEntry, error)
}

// HistoryReader returns stored probe outcomes.
type HistoryReader interface {
	Recent(ctx context.Context, address string, limit int) ([]history.Record, error)
}

// APIServer exposes the server list over HTTP.
type APIServer struct {
	echo         *echo.Echo
	list         ServerList
	prober       coordinator.Prober
	history      HistoryReader
	probeTimeout time.Duration
	version      string
}

// NewAPIServer creates the HTTP API. hist may be nil when history is disabled.
func NewAPIServer(list ServerList, prober coordinator.Prober, hist HistoryReader, probeTimeout time.Duration, version string) *APIServer {
	api := &APIServer{
		echo:         echo.New(),
		list:         list,
		prober:       prober,
		history:      hist,
		probeTimeout: probeTimeout,
		version:      version,
	}
	api.setupRoutes()
	return api
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down.
func (api *APIServer) Start(addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("version", api.version).
			Msg("Starting server list API")

		if err := api.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		log.Error().Err(err).Msg("Server startup failed")
		return err
	}

	return api.Shutdown()
}

// Shutdown stops accepting requests and waits for running ones.
func (api *APIServer) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := api.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

// Handler returns the routed HTTP handler.
func (api *APIServer) Handler() http.Handler {
	return api.echo
}

func (api *APIServer) setupRoutes() {
	api.echo.HideBanner = true
	api.echo.HidePort = true
	api.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	api.echo.Use(middleware.Recover())

	api.echo.GET("/", api.serveSwaggerUI)
	api.echo.GET("/swagger.yml", api.serveSwaggerSpec)

	api.echo.GET("/servers", api.listServers)
	api.echo.POST("/servers", api.addServer)
	api.echo.POST("/servers/reload", api.reloadServers)
	api.echo.PUT("/servers/:id", api.editServer)
	api.echo.DELETE("/servers/:id", api.deleteServer)
	api.echo.POST("/servers/:id/refresh", api.refreshServer)
	api.echo.GET("/servers/:id/icon", api.serverIcon)
	api.echo.GET("/servers/:id/history", api.serverHistory)
	api.echo.PUT("/filter", api.setFilter)
	api.echo.GET("/ping", api.ping)
}
