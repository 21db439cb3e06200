package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dinner-ticketing/internal/analytics"
	analytics_api "dinner-ticketing/internal/analytics/api"
	"dinner-ticketing/internal/auth"
	"dinner-ticketing/internal/config"
	"dinner-ticketing/internal/database/migrations"
	"dinner-ticketing/internal/email"
	"dinner-ticketing/internal/kafka"
	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/order"
	"dinner-ticketing/internal/order/db"
	"dinner-ticketing/internal/order/order_api"
	rediswrap "dinner-ticketing/internal/order/redis"
	"dinner-ticketing/internal/payment/hashpay"
	"dinner-ticketing/internal/router"
	"dinner-ticketing/internal/sse"
	tickets "dinner-ticketing/internal/tickets/service"
	"dinner-ticketing/internal/tickets/template"
	"dinner-ticketing/internal/tickets/ticket_api"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	if cfg.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	for i := 0; i < cfg.MaxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, cfg.MaxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < cfg.MaxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil || sqldb == nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", cfg.MaxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

// runMigrations uses its own connection because closing the migrator closes
// the database handle it was given.
func runMigrations(dsn string, log *logger.Logger) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open migration connection: %v", err))
	}

	runner := migrations.NewRunner(sqldb, log)
	defer func() {
		if err := runner.Close(); err != nil {
			log.Warn("DATABASE", fmt.Sprintf("Failed to close migrator: %v", err))
		}
	}()

	if err := runner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
}

// connectRedis returns nil when Redis is not configured or unreachable; order
// creation then runs without idempotency keys.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if cfg.Addr == "" {
		log.Info("REDIS", "REDIS_ADDR not set, idempotency keys disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis connection error, idempotency keys disabled: %v", err))
		client.Close()
		return nil
	}

	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func buildVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) auth.Verifier {
	if cfg.OIDCIssuer != "" {
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to set up OIDC verifier: %v", err))
		}
		log.Info("AUTH", fmt.Sprintf("Staff routes verify tokens from %s", cfg.OIDCIssuer))
		return v
	}
	if cfg.JWTSecret != "" {
		log.Info("AUTH", "Staff routes verify HS256 tokens signed with STAFF_JWT_SECRET")
		return auth.NewHMACVerifier(cfg.JWTSecret)
	}
	log.Fatal("CONFIG", "Either OIDC_ISSUER or STAFF_JWT_SECRET must be set")
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, ".env file not found, using environment variables")
	}
	cfg := config.Load()

	log := logger.NewLogger(cfg.Log.Dir)
	defer log.Close()
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	log.Info("APP", "Starting ticketing service initialization")

	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()
	if cfg.Database.AutoMigrate {
		runMigrations(cfg.Database.DSN, log)
	}

	// With Kafka on, the admin feed reads the topics back so every instance
	// sees events from the whole deployment.
	emitter := sse.NewOrderEventEmitter()
	var events order.EventPublisher = emitter
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		events = kafka.NewEventPublisher(producer, cfg.Kafka.Topics, log).WithTimeout(cfg.Kafka.PublishTimeout)
		log.Info("KAFKA", fmt.Sprintf("Publishing order events to %v", cfg.Kafka.Brokers))

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), cfg.Kafka.FeedGroupPrefix+uuid.NewString(), log)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(feedCtx, emitter.PublishOrderEvent); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Admin feed consumer exited: %v", err))
			}
		}()
	} else {
		log.Info("KAFKA", "KAFKA_ENABLED=false, order events go to the admin stream only")
	}

	store := db.New(bunDB)
	mailer := email.NewSMTPMailer(cfg.Email, log)

	orderService := order.NewOrderService(
		store,
		hashpay.NewClient(cfg.Payment, log),
		mailer,
		template.NewRenderer(cfg.Event),
		events,
		cfg.Ticket,
		cfg.Payment.ReferencePrefix,
		log,
	)
	if redisClient := connectRedis(ctx, cfg.Redis, log); redisClient != nil {
		defer redisClient.Close()
		orderService.Idempotency = rediswrap.NewStore(redisClient, cfg.Redis.IdempotencyTTL, log)
	}

	ticketService := tickets.NewTicketService(store, events, log)
	analyticsService := analytics.NewService(bunDB)

	log.Info("HTTP", "Setting up router and middleware")
	handler := router.New(router.Deps{
		Orders:    order_api.NewHandler(orderService, log),
		Tickets:   ticket_api.NewHandler(ticketService, log),
		Analytics: analytics_api.NewHandler(analyticsService, log),
		Stream:    order_api.NewSSEHandler(log, emitter),
		Verifier:  buildVerifier(ctx, cfg.Auth, log),
		Logger:    log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Ticketing service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stopFeed()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Ticketing service shutdown complete")
	}
}
