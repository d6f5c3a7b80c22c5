package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	servicelink "github.com/MohanGuptaKoduru/ServiceLink"
	"github.com/MohanGuptaKoduru/ServiceLink/api"
	"github.com/MohanGuptaKoduru/ServiceLink/assistant"
	"github.com/MohanGuptaKoduru/ServiceLink/config"
	"github.com/MohanGuptaKoduru/ServiceLink/geo"
	"github.com/MohanGuptaKoduru/ServiceLink/observe"
	"github.com/MohanGuptaKoduru/ServiceLink/search"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the search, booking and chat API over HTTP",
		Action: serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides server.addr)",
			},
			&cli.StringFlag{
				Name:  "cors-origin",
				Usage: "Allow browser requests from this origin",
			},
		},
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := observe.New(ctx, observe.Config{
		ServiceName:    "servicelink",
		ServiceVersion: version,
		Global:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutCtx)
	}()

	m, err := openMarketplace(ctx, cfg,
		servicelink.WithMeterProvider(telemetry.MeterProvider()),
		servicelink.WithTracerProvider(telemetry.TracerProvider()))
	if err != nil {
		return err
	}
	defer m.Close()

	srv, cleanup, err := buildServer(cfg, m, telemetry, c.String("cors-origin"))
	if err != nil {
		return err
	}
	defer cleanup()

	return runServer(ctx, srv, cfg.ShutdownTimeout())
}

// buildServer wires the marketplace into an http.Server. The returned
// cleanup releases the searcher's worker pool.
func buildServer(cfg *config.AppConfig, m *servicelink.Marketplace, telemetry *observe.Provider, corsOrigin string) (*http.Server, func(), error) {
	logger := slog.Default()

	var searchOpts []search.Option
	if cfg.Search.PoolSize > 0 {
		searchOpts = append(searchOpts, search.WithPoolSize(cfg.Search.PoolSize))
	}
	searcher, err := m.NewSearcher(searchOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create searcher: %w", err)
	}

	bookings, err := m.NewBookingService()
	if err != nil {
		searcher.Close()
		return nil, nil, fmt.Errorf("failed to create booking service: %w", err)
	}

	opts := []api.Option{
		api.WithBookings(bookings),
		api.WithDefaultLimit(cfg.Search.DefaultLimit),
		api.WithCORSOrigin(corsOrigin),
		api.WithLogger(logger),
	}
	if telemetry != nil {
		opts = append(opts,
			api.WithMetricsHandler(telemetry.Handler()),
			api.WithTelemetry(telemetry.MeterProvider(), telemetry.TracerProvider()))
	}

	if cfg.Assistant.Enabled {
		chat, err := m.NewAssistant(assistantOptions(cfg.Assistant)...)
		if err != nil {
			searcher.Close()
			return nil, nil, fmt.Errorf("failed to create assistant: %w", err)
		}
		opts = append(opts, api.WithResponder(chat))
	}

	if key := cfg.MapsKey(); key != "" {
		mapsOpts := []geo.Option{geo.WithLogger(logger)}
		if cfg.Maps.BaseURL != "" {
			mapsOpts = append(mapsOpts, geo.WithBaseURL(cfg.Maps.BaseURL))
		}
		if cfg.Maps.RequestsPerSecond > 0 {
			mapsOpts = append(mapsOpts, geo.WithRateLimit(cfg.Maps.RequestsPerSecond))
		}
		maps, err := geo.NewClient(key, mapsOpts...)
		if err != nil {
			searcher.Close()
			return nil, nil, fmt.Errorf("failed to create maps client: %w", err)
		}
		opts = append(opts, api.WithRouter(maps))
	} else {
		logger.Info("maps key not set, route lookups disabled", "env", cfg.Maps.KeyEnv)
	}

	server, err := api.NewServer(searcher, opts...)
	if err != nil {
		searcher.Close()
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv, searcher.Close, nil
}

// runServer serves until ctx is cancelled, then drains in-flight requests
// for at most shutdownTimeout.
func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("api server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down api server")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}

func assistantOptions(cfg config.AssistantConfig) []assistant.Option {
	opts := []assistant.Option{assistant.WithMaxSessions(cfg.MaxSessions)}
	if cfg.HistoryTurns > 0 {
		opts = append(opts, assistant.WithHistoryTurns(cfg.HistoryTurns))
	}
	if cfg.SystemPrompt != "" {
		opts = append(opts, assistant.WithSystemPrompt(cfg.SystemPrompt))
	}
	return opts
}
