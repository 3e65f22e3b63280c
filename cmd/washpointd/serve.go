package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/washpoint/washpoint/config"
	"github.com/washpoint/washpoint/httpapi"
	"github.com/washpoint/washpoint/iot"
	"github.com/washpoint/washpoint/metrics"
	"github.com/washpoint/washpoint/payment"
	"github.com/washpoint/washpoint/policy"
	"github.com/washpoint/washpoint/redisstore"
	"github.com/washpoint/washpoint/resilience"
	"github.com/washpoint/washpoint/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Washpoint server",
	Long:  `Start the session API, the metrics endpoint, and the expired-session reaper.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting Washpoint")

	metrics.Register()

	// Session store
	store, err := redisstore.Open(redisstore.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  config.Duration(cfg.Redis.DialTimeout, 5*time.Second),
		ReadTimeout:  config.Duration(cfg.Redis.ReadTimeout, 3*time.Second),
		WriteTimeout: config.Duration(cfg.Redis.WriteTimeout, 3*time.Second),
	})
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close session store")
		}
	}()
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Session store connected")

	// Dependency clients
	var gatewayOpts []payment.HTTPGatewayOption
	if cfg.Payment.APIKey != "" {
		gatewayOpts = append(gatewayOpts, payment.WithAPIKey(cfg.Payment.APIKey))
	}
	gateway := payment.NewHTTPGateway(cfg.Payment.BaseURL,
		config.Duration(cfg.Payment.Timeout, 10*time.Second), logger, gatewayOpts...)
	controller := iot.NewHTTPController(cfg.IoT.BaseURL,
		config.Duration(cfg.IoT.Timeout, 10*time.Second), logger)

	// One breaker per dependency, state exported as a gauge
	paymentBreaker := newBreaker("payment", cfg.Breaker, logger)
	iotBreaker := newBreaker("iot", cfg.Breaker, logger)

	payPolicy := policy.NewPayment(policy.PaymentConfig{
		MaxAttempts:  cfg.Retry.PaymentMaxAttempts,
		InitialDelay: config.Duration(cfg.Retry.PaymentInitialDelay, 2*time.Second),
	}, paymentBreaker, logger)

	iotPolicy := policy.NewIoT(policy.IoTConfig{
		MaxAttempts:   cfg.Retry.IoTMaxAttempts,
		InitialDelay:  config.Duration(cfg.Retry.IoTInitialDelay, time.Second),
		AllowDegraded: cfg.IoT.AllowDegraded,
		OfflineFallback: func(ctx context.Context) error {
			// Degraded mode: the on-site operator activates the machine
			// by hand while the bridge is down.
			logger.Warn().Msg("bridge unreachable, command handed to on-site fallback")
			return nil
		},
	}, iotBreaker, logger)

	service := session.NewService(store, gateway, controller, payPolicy, iotPolicy, logger)
	reaper := session.NewReaper(service, config.Duration(cfg.Reaper.Interval, 30*time.Second), logger)
	handler := httpapi.New(service, logger)

	apiServer := &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.Server.ListenAddress).Msg("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := metrics.Serve(cfg.Server.MetricsAddress, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := reaper.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second))
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}

// newBreaker builds a dependency breaker that mirrors its state into
// the circuit state gauge and logs every change.
func newBreaker(dependency string, cfg config.BreakerConfig, logger zerolog.Logger) *resilience.CircuitBreaker {
	metrics.CircuitState.WithLabelValues(dependency).Set(0)

	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.MaxFailures,
		CallTimeout:  config.Duration(cfg.CallTimeout, 10*time.Second),
		ResetTimeout: config.Duration(cfg.ResetTimeout, 30*time.Second),
		OnStateChange: func(from, to resilience.State) {
			metrics.CircuitState.WithLabelValues(dependency).Set(float64(to))
			logger.Warn().
				Str("dependency", dependency).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
