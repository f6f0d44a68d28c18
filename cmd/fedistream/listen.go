package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rickgao/fedistream/internal/api"
	"github.com/rickgao/fedistream/internal/config"
	"github.com/rickgao/fedistream/internal/connection"
	"github.com/rickgao/fedistream/internal/database"
	"github.com/rickgao/fedistream/internal/metrics"
	"github.com/rickgao/fedistream/internal/redisx"
	"github.com/rickgao/fedistream/internal/sink"
	"github.com/rickgao/fedistream/internal/version"
)

func listenCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Listen to every stream in the config file",
		Long: `Listen opens one supervised connection per configured stream and runs
until interrupted or until every stream is closed normally by the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/fedistream.yaml", "path to config file")

	return cmd
}

func runListen(parent context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, _ := config.ParseLevel(cfg.Logging.Level)
	logger := newLogger(os.Stdout, level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting listener",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"streams", len(cfg.Streams),
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Resolve the streaming endpoint
	baseURL, err := resolveServer(ctx, cfg.Server, logger)
	if err != nil {
		return err
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	checks := make(map[string]pinger)

	// Optional PostgreSQL sink
	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database, "fedistream-"+cfg.Instance.ID, logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool, sink.Schema); err != nil {
			return err
		}
		checks["postgres"] = pool.Ping
	}

	// Optional Redis sink
	var rdb redis.UniversalClient
	if cfg.Redis.Enabled() {
		rdb, err = redisx.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()

		logger.Info("redis connected", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}

	// Health and metrics server
	streams := newStreamTracker()
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           createHealthHandler(checks, streams, reg, cfg.Metrics.Path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port, "metrics_path", cfg.Metrics.Path)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	// One supervisor per stream
	policy := retryPolicy(cfg.Retry)
	sessionCfg := connection.SessionConfig{
		HandshakeTimeout: cfg.Connection.HandshakeTimeout,
		ReadTimeout:      cfg.Connection.ReadTimeout,
		WriteTimeout:     cfg.Connection.WriteTimeout,
	}

	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		errs   []error
	)
	for _, sc := range cfg.Streams {
		endpoint := connection.Endpoint{
			BaseURL:     baseURL,
			Stream:      sc.Stream,
			Params:      sc.Params,
			AccessToken: cfg.Server.AccessToken,
		}
		sup := connection.NewSupervisor(endpoint,
			connection.WithName(sc.Name),
			connection.WithLogger(logger),
			connection.WithMetrics(m),
			connection.WithRetryPolicy(policy),
			connection.WithSessionConfig(sessionCfg),
		)
		out := buildSink(ctx, sc.Name, pool, rdb, cfg.Redis.Channel, m, logger)

		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			logger.Info("listening", "stream", name, "url", endpoint.RedactedURL())
			streams.set(name, streamListening, nil)

			err := sup.Listen(ctx, out)
			switch {
			case err == nil:
				streams.set(name, streamClosed, nil)
			case errors.Is(err, context.Canceled):
				streams.set(name, streamClosed, nil)
			default:
				logger.Error("stream failed", "stream", name, "error", err)
				streams.set(name, streamFailed, err)
				errsMu.Lock()
				errs = append(errs, fmt.Errorf("stream %s: %w", name, err))
				errsMu.Unlock()
			}
		}(sc.Name)
	}

	logger.Info("listener running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for every stream to end
	wg.Wait()

	logger.Info("shutting down...")

	// Graceful shutdown of health server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("listener stopped")
	return errors.Join(errs...)
}

// resolveServer returns the streaming base URL, discovering it from the
// instance when only instance_url is configured.
func resolveServer(ctx context.Context, srv config.ServerConfig, logger *slog.Logger) (string, error) {
	if srv.InstanceURL == "" {
		return srv.BaseURL, nil
	}

	client := api.NewClient(srv.InstanceURL, srv.AccessToken,
		api.WithLogger(logger),
		api.WithTimeout(15*time.Second),
	)

	if srv.VerifyCredentials {
		acct, err := client.VerifyCredentials(ctx)
		if err != nil {
			return "", err
		}
		logger.Info("credentials verified", "account", acct.Acct)
	}

	if srv.BaseURL != "" {
		return srv.BaseURL, nil
	}

	streamingURL, err := client.StreamingURL(ctx)
	if err != nil {
		return "", fmt.Errorf("discover streaming url: %w", err)
	}
	logger.Info("discovered streaming url", "url", streamingURL)

	// Pleroma has no streaming health endpoint.
	if err := client.StreamingHealth(ctx); err != nil {
		logger.Debug("streaming health check failed", "error", err)
	}
	return streamingURL, nil
}

// buildSink assembles the sink chain for one stream. pool and rdb are
// optional.
func buildSink(
	ctx context.Context,
	stream string,
	pool *pgxpool.Pool,
	rdb redis.UniversalClient,
	channel string,
	m *metrics.Metrics,
	logger *slog.Logger,
) connection.Sink {
	sinks := sink.Multi{sink.NewLog(logger.With("stream", stream))}
	if pool != nil {
		sinks = append(sinks, sink.NewPostgres(ctx, pool, stream, m, logger))
	}
	if rdb != nil {
		sinks = append(sinks, sink.NewRedis(ctx, sink.RedisOptions{
			Client:  rdb,
			Channel: channel,
			Stream:  stream,
			Metrics: m,
			Logger:  logger,
		}))
	}
	return sink.NewInstrumented(sinks, stream, m)
}

// retryPolicy maps the retry config onto a connection.RetryPolicy.
func retryPolicy(cfg config.RetryConfig) connection.RetryPolicy {
	if cfg.Strategy == config.RetryExponential {
		return connection.ExponentialBackoff{
			Base:        cfg.Interval,
			Max:         cfg.MaxInterval,
			MaxAttempts: cfg.MaxAttempts,
		}
	}
	return connection.FixedDelay{
		Interval:    cfg.Interval,
		MaxAttempts: cfg.MaxAttempts,
	}
}
