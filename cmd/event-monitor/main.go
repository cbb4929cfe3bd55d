package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vilaca/event-monitor/internal/api"
	"github.com/vilaca/event-monitor/internal/api/github"
	"github.com/vilaca/event-monitor/internal/config"
	"github.com/vilaca/event-monitor/internal/dashboard"
	"github.com/vilaca/event-monitor/internal/service"
	"github.com/vilaca/event-monitor/internal/store/postgres"
)

const shutdownTimeout = 10 * time.Second

// app holds the wired components that main starts and stops.
type app struct {
	server *http.Server
	poller *service.Poller
	pool   *pgxpool.Pool
}

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	initConfig := flag.String("init-config", "", "write the default configuration to this path and exit")
	resetCache := flag.Bool("reset-cache", false, "discard cached events before starting")
	flag.Parse()

	if *initConfig != "" {
		if err := config.WriteDefault(*initConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		log.Printf("Default configuration written to %s", *initConfig)
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wire up dependencies
	a, err := buildApp(ctx, cfg, *resetCache)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	if a.pool != nil {
		defer a.pool.Close()
	}

	log.Printf("Monitoring %v every %v from %s", cfg.MonitoredEventTypes, cfg.PollInterval(), cfg.FeedURL)
	if cfg.CacheEvents {
		log.Printf("Event cache enabled (backend: %s)", cfg.CacheBackend)
	}
	if cfg.GitHubToken == "" {
		log.Printf("WARNING: No GITHUB_TOKEN set, the feed is rate limited to 60 requests per hour")
	}

	a.poller.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting event monitor on http://localhost%s", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Printf("Shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	a.poller.Stop()
}

// buildApp wires up all dependencies.
// This is the composition root where all dependencies are created and injected.
func buildApp(ctx context.Context, cfg *config.Config, resetCache bool) (*app, error) {
	logger := dashboard.NewStdLogger()
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout(),
	}

	fetcher := github.NewClient(api.ClientConfig{
		FeedURL: cfg.FeedURL,
		Token:   cfg.GitHubToken,
	}, httpClient)

	index := service.NewIndex()
	indexer := service.NewIndexer(index, cfg.EntityEventTypes, logger)
	metrics := service.NewMetricsEngine(index, service.RealClock{})
	broadcaster := service.NewBroadcaster(0)

	a := &app{}
	var sink service.CacheSink
	if cfg.CacheEvents {
		switch cfg.CacheBackend {
		case config.CacheBackendPostgres:
			pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			a.pool = pool
			pgSink := postgres.NewSink(pool)
			if err := pgSink.EnsureTable(ctx); err != nil {
				pool.Close()
				return nil, err
			}
			if resetCache {
				if err := pgSink.Truncate(ctx); err != nil {
					pool.Close()
					return nil, err
				}
			}
			sink = pgSink
		default:
			fileSink := service.NewFileSink(cfg.CacheFilepath, logger)
			if resetCache {
				if err := fileSink.Clear(); err != nil {
					return nil, err
				}
			}
			sink = fileSink
		}
	}

	a.poller = service.NewPoller(service.PollerConfig{
		Fetcher:     fetcher,
		Indexer:     indexer,
		Sink:        sink,
		Broadcaster: broadcaster,
		Kinds:       cfg.MonitoredEventTypes,
		Interval:    cfg.PollInterval(),
		Logger:      logger,
	})

	handlerCfg := dashboard.HandlerConfig{
		Renderer: dashboard.NewJSONRenderer(),
		Logger:   logger,
		Metrics:  metrics,
		Poller:   a.poller,
		Stream:   broadcaster,
	}
	if sink != nil {
		handlerCfg.Cache = sink
	}
	handler := dashboard.NewHandler(handlerCfg)

	// Register routes
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}
