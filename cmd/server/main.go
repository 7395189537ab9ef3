// Command server runs the simulation live against the wall clock and serves
// it over HTTP.
package main

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/api"
	"github.com/cxd309/railsim/internal/config"
	"github.com/cxd309/railsim/internal/fleet"
	"github.com/cxd309/railsim/internal/live"
	"github.com/cxd309/railsim/internal/network"
	"github.com/cxd309/railsim/internal/route"
	"github.com/cxd309/railsim/internal/routestore"
)

func main() {
	cfg := config.Load()
	logger := cfg.Logger()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Static network and services
	data, err := loadNetwork(cfg.NetworkFile)
	if err != nil {
		return err
	}
	net := network.New(data, logger)
	logger.Info("network loaded", "file", cfg.NetworkFile, "ways", len(net.Ways()), "stations", len(net.Stations()))

	services, err := loadServices(cfg.ServicesFile, net, cfg.RouteOptions(), logger)
	if err != nil {
		return err
	}

	// Route store
	store, err := routestore.Open(ctx, cfg.RouteStore, cfg.DatabasePath, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening route store: %w", err)
	}
	defer store.Close()
	logger.Info("route store ready", "kind", cfg.RouteStore)

	// Simulation
	fl := fleet.New(net, fleet.Defaults{Vehicle: cfg.Vehicle(), Train: cfg.TrainConfig()}, logger)
	runner := live.New(fl, services, cfg.TickInterval, cfg.RateMultiplier, logger)

	runErr := make(chan error, 1)
	go func() {
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			runErr <- err
		}
	}()

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(runner, store, api.Options{
			RouteOptions: cfg.RouteOptions(),
			Logger:       logger,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-runErr:
		return fmt.Errorf("simulation: %w", err)
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadNetwork reads the static network: JSON network data, or an OSM XML
// extract when the file ends in .osm.
func loadNetwork(path string) (network.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return network.Data{}, fmt.Errorf("reading network: %w", err)
	}
	if filepath.Ext(path) == ".osm" {
		var o osm.OSM
		if err := xml.Unmarshal(raw, &o); err != nil {
			return network.Data{}, fmt.Errorf("decoding %s: %w", path, err)
		}
		return network.FromOSM(&o), nil
	}
	var data network.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return network.Data{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return data, nil
}

// loadServices builds every service route. A missing services file means no
// services; a service that cannot be built is kept as nil and logged.
func loadServices(path string, net *network.Network, opts route.Options, logger *slog.Logger) (map[string]*route.Route, error) {
	services := map[string]*route.Route{}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("no services file", "file", path)
		return services, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading services: %w", err)
	}
	var defs []route.Definition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	for _, def := range defs {
		r, err := def.Build(net, opts)
		if err != nil {
			logger.Warn("service route cannot be built", "service", def.Name, "error", err)
			services[def.Name] = nil
			continue
		}
		services[def.Name] = r
		logger.Info("service loaded", "service", def.Name, "sections", r.Len(), "length", r.TotalDistance())
	}
	return services, nil
}
