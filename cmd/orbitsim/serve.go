package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/api"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/catalog"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/config"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/health"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/httputil"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/observability"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/sim"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/stream"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
	"github.com/douglassimoes/space-station-orbit-simulation/web"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), a.cfg, a.logger)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("clock", "fixed", "clock mode: fixed or realtime")
	a.v.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	a.v.BindPFlag("clock.mode", cmd.Flags().Lookup("clock"))
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	ds, err := tle.Load(ctx, cfg.Elements, logger)
	if err != nil {
		return fmt.Errorf("loading elements: %w", err)
	}
	store := tle.NewStore()
	store.Set(ds)
	logger.Info("elements loaded",
		"source", ds.Source,
		"count", len(ds.Satellites),
		"epoch_max", ds.EpochRange.Max.Format(time.RFC3339),
	)

	prop := propagation.NewPropagator(store, cfg.Propagation, logger)
	state, err := sim.NewState(prop, cfg.Sim, logger)
	if err != nil {
		return fmt.Errorf("initial state: %w", err)
	}

	catStore := catalog.NewStore()
	runnerCfg := sim.RunnerConfig{FrameRate: cfg.FrameRate, CatalogStore: catStore}

	var refresher *catalog.Refresher
	var history *catalog.History
	if cfg.Catalog.Enabled {
		var recorder catalog.Recorder
		if cfg.Catalog.HistoryPath != "" {
			history, err = catalog.OpenHistory(cfg.Catalog.HistoryPath)
			if err != nil {
				return fmt.Errorf("catalog history: %w", err)
			}
			defer history.Close()
			recorder = history
			logger.Info("catalog history enabled", "path", cfg.Catalog.HistoryPath, "sqlite", catalog.DriverVersion())
		}
		source := catalog.NewN2YO(cfg.Catalog.N2YO, logger)
		refresher = catalog.NewRefresher(source, catalog.RefresherConfig{
			LatDeg:   cfg.Observer.LatDeg,
			LonDeg:   cfg.Observer.LonDeg,
			Timeout:  cfg.Catalog.Timeout,
			Interval: cfg.Catalog.Interval,
		}, recorder, logger)
		runnerCfg.Catalog = refresher.Results()
	}

	runner := sim.NewRunner(state, sim.NewInputBuffer(cfg.HoldTTL), runnerCfg, logger)

	resolver, err := httputil.NewResolver(cfg.HTTP.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	checks := health.NewChecker()
	checks.Add("elements", func() error {
		if store.Get() == nil {
			return propagation.ErrNoDataset
		}
		return nil
	})
	checks.Add("simulation", func() error {
		if runner.Latest() == nil {
			return errors.New("no frame published yet")
		}
		return nil
	})

	srv := api.NewServer(cfg.HTTP.Addr, logger, cfg.Auth, api.Deps{
		Sim:        runner,
		Elements:   store,
		Propagator: prop,
		Model:      cfg.Propagation.Model,
		Observer:   cfg.Observer.Position(),
		Catalog:    catStore,
		Refresher:  refresher,
		History:    history,
		Trail:      state.Trail(),
		Stream:     stream.NewHandler(runner, store, cfg.Stream, resolver, logger),
		Health:     checks,
		Resolver:   resolver,
		Web:        web.Content,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go runner.Run(ctx)
	if refresher != nil {
		go refresher.Run(ctx)
		refresher.Request()
	}
	go reportElementsAge(ctx, store)
	if cfg.Elements.Fetch && cfg.Elements.MaxAge > 0 {
		go refreshElements(ctx, cfg.Elements, cfg.Propagation.NORADID, store, logger)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTP.Addr,
			"auth_enabled", cfg.Auth.Enabled,
			"catalog_enabled", cfg.Catalog.Enabled,
			"model", cfg.Propagation.Model,
			"clock", string(cfg.Sim.Clock.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// reportElementsAge keeps the dataset age gauge current.
func reportElementsAge(ctx context.Context, store *tle.Store) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if age := store.AgeSeconds(); age >= 0 {
				metrics.SetElementsAge(age)
			}
		case <-ctx.Done():
			return
		}
	}
}

// refreshElements reloads the dataset once it is older than MaxAge. The
// propagator rebuilds its model on the next tick.
func refreshElements(ctx context.Context, lc tle.LoadConfig, noradID int, store *tle.Store, logger *slog.Logger) {
	ticker := time.NewTicker(lc.MaxAge)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ds, err := tle.Load(ctx, lc, logger)
			if err != nil {
				logger.Warn("element refresh failed", "error", err)
				continue
			}
			prev := store.Swap(ds)
			attrs := []any{"source", ds.Source, "count", len(ds.Satellites), "revision", store.Revision()}
			if age, ok := store.EpochAge(noradID, time.Now()); ok {
				attrs = append(attrs, "epoch_age", age.Round(time.Minute).String())
			}
			if prev != nil && prev.EpochRange.Min.Equal(ds.EpochRange.Min) && prev.EpochRange.Max.Equal(ds.EpochRange.Max) {
				attrs = append(attrs, "unchanged", true)
			}
			logger.Info("elements refreshed", attrs...)
		case <-ctx.Done():
			return
		}
	}
}
