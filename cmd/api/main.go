package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/srgjo27/bookingcore/internal/adapter/cache"
	"github.com/srgjo27/bookingcore/internal/adapter/handler"
	"github.com/srgjo27/bookingcore/internal/adapter/notifier"
	"github.com/srgjo27/bookingcore/internal/adapter/payment"
	"github.com/srgjo27/bookingcore/internal/adapter/repository/postgres"
	"github.com/srgjo27/bookingcore/internal/config"
	"github.com/srgjo27/bookingcore/internal/core/ports"
	"github.com/srgjo27/bookingcore/internal/core/services"
	"github.com/srgjo27/bookingcore/internal/platform/database"
	"github.com/srgjo27/bookingcore/internal/platform/logger"
	"github.com/srgjo27/bookingcore/internal/platform/telemetry"
	"github.com/srgjo27/bookingcore/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
	log.Info("server exiting")
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	db, err := database.NewPostgresDB(database.Config{
		DSN:             cfg.PostgresDSN(),
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		MaxRetries:      cfg.DBConnectRetries,
	}, log)
	if err != nil {
		return fmt.Errorf("connect to db after retries: %w", err)
	}
	defer db.Close()

	if cfg.DBMigrate {
		if err := postgres.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}

	log.Info("connecting to redis", zap.String("addr", cfg.RedisAddr))
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	var availabilityCache ports.AvailabilityCache
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, availability cache disabled", zap.Error(err))
	} else {
		availabilityCache = cache.NewAvailabilityCache(redisClient, cfg.AvailabilityTTL)
	}

	notify, closeNotifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeNotifier.Close(); err != nil {
			log.Warn("close notifier", zap.Error(err))
		}
	}()

	var (
		gateway  ports.PaymentGateway
		verifier ports.PaymentEventVerifier
	)
	if cfg.PaymentsEnabled() {
		omiseGateway, err := payment.NewOmiseGateway(cfg.OmisePublicKey, cfg.OmiseSecretKey, cfg.OmiseSourceType, cfg.OmiseReturnURI)
		if err != nil {
			return fmt.Errorf("omise client: %w", err)
		}
		gateway, verifier = omiseGateway, omiseGateway
	} else {
		log.Warn("OMISE keys not set, payment intents and webhooks disabled")
	}

	store := postgres.NewStore(db, cfg.DBLockTimeout)
	ledger := services.NewInventoryLedger(store, availabilityCache, log)
	bookingService := services.NewBookingService(store, ledger, notify, log, cfg.BookingMaxSeats)
	orderService := services.NewOrderService(store, bookingService, postgres.NewCatalogRepository(db), gateway, notify, log,
		services.OrderConfig{
			Currency:    cfg.Currency,
			TaxBps:      cfg.TaxBps,
			MaxQuantity: cfg.OrderMaxQuantity,
		})

	handlers := handler.Handlers{
		Bookings: handler.NewBookingHandler(bookingService, ledger, log),
		Orders:   handler.NewOrderHandler(orderService, log),
		Health:   handler.NewHealthHandler(db),
	}
	if verifier != nil {
		handlers.Webhooks = handler.NewWebhookHandler(orderService, verifier, log)
	}

	sweeper := worker.NewSweeper(store.Orders(), store.Bookings(), orderService, bookingService, worker.Config{
		Interval:   cfg.SweepInterval,
		OrderTTL:   cfg.OrderPendingTTL,
		BookingTTL: cfg.BookingPendingTTL,
		BatchSize:  cfg.SweepBatchSize,
	}, log)
	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.NewRouter(handlers, []byte(cfg.JWTSecret), log),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server startup failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func newNotifier(cfg config.Config, log *zap.Logger) (ports.Notifier, io.Closer, error) {
	switch cfg.NotifierDriver {
	case "rabbitmq":
		n, err := notifier.NewRabbitMQ(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq notifier: %w", err)
		}
		return n, n, nil
	case "kafka":
		n := notifier.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		return n, n, nil
	default:
		n := notifier.NewLog(log)
		return n, n, nil
	}
}
