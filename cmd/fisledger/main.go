package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	amqp "github.com/rabbitmq/amqp091-go"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/finstack/fisledger/internal/core/services"
	"github.com/finstack/fisledger/internal/handlers"
	"github.com/finstack/fisledger/internal/messaging"
	"github.com/finstack/fisledger/internal/middleware"
	"github.com/finstack/fisledger/internal/platform/config"
	"github.com/finstack/fisledger/internal/platform/database"
	"github.com/finstack/fisledger/internal/repositories/cache"
	"github.com/finstack/fisledger/internal/repositories/database/pgsql"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established")

	if err := runMigrations(logger, cfg.DatabaseURL); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The idempotency layer degrades per its fail-open setting, so a
		// cache outage at boot is not fatal.
		logger.Warn("Redis unreachable at startup", slog.String("error", err.Error()))
	}

	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpChannel, err := amqpConn.Channel()
	if err != nil {
		logger.Error("Failed to open AMQP channel", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer amqpChannel.Close()

	if err := messaging.DeclareTopology(amqpChannel, cfg.ExchangeName, cfg.IngestQueueName, cfg.DLXExchangeName, cfg.DeadLetterQueue); err != nil {
		logger.Error("Failed to declare messaging topology", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos := pgsql.NewRepositoryProvider(dbPool)
	idempotencyCache := cache.NewRedisIdempotencyCache(redisClient, cfg.IdempotencyTTL)
	publisher := messaging.NewRabbitPublisher(amqpChannel, cfg.ExchangeName)

	svcs := services.NewContainer(repos, idempotencyCache, publisher, services.Config{
		ApprovalThresholdCents: cfg.ApprovalThresholdCents,
		IdempotencyFailOpen:    cfg.IdempotencyFailOpen,
		Outbox: services.OutboxRelayConfig{
			Interval:        cfg.OutboxRelayInterval,
			BatchSize:       cfg.OutboxRelayBatchSize,
			CleanupInterval: cfg.OutboxCleanupInterval,
			Retention:       cfg.OutboxRetention,
		},
	})

	relayCtx := middleware.WithLogger(ctx, logger.With(slog.String("component", "outbox_relay")))
	go svcs.Relay.Run(relayCtx)
	go svcs.Relay.RunCleanup(relayCtx)

	if cfg.ConsumerEnabled {
		consumerChannel, err := amqpConn.Channel()
		if err != nil {
			logger.Error("Failed to open AMQP consumer channel", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer consumerChannel.Close()

		consumer := messaging.NewEventConsumer(consumerChannel, cfg.IngestQueueName, svcs.Posting)
		consumerCtx := middleware.WithLogger(ctx, logger.With(slog.String("component", "event_consumer")))
		go func() {
			if err := consumer.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumer stopped", slog.String("error", err.Error()))
				stop()
			}
		}()
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, svcs)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", slog.String("error", err.Error()))
	}
}

func runMigrations(logger *slog.Logger, databaseURL string) error {
	logger.Info("Running database migrations")

	// A separate database/sql connection keeps migrate decoupled from the
	// pgx pool used by the application.
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	if err := migrationDB.Ping(); err != nil {
		migrationDB.Close()
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		migrationDB.Close()
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		migrationDB.Close()
		return err
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		m.Close()
		return upErr
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if upErr == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Database migrations applied successfully")
	}
	return nil
}
