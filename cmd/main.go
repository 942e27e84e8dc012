/**
 * @description
 * This is the main entry point for the settlement service. It is responsible
 * for initializing all components of the service, including configuration,
 * the database connection pool, the Redis replay cache, the RabbitMQ
 * producer, the notification dispatch client, the webhook processor, the
 * admin service, the cron scheduler and the HTTP server. It wires everything
 * together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/mailerclient, pkg/rabbitmq: External collaborator clients.
 */

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/labelhq/settlement-service/internal/api"
	"github.com/labelhq/settlement-service/internal/app"
	"github.com/labelhq/settlement-service/internal/config"
	"github.com/labelhq/settlement-service/internal/store"
	"github.com/labelhq/settlement-service/pkg/mailerclient"
	"github.com/labelhq/settlement-service/pkg/rabbitmq"
)

func main() {
	// Load .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting settlement-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	repo := store.NewPostgresRepository(dbpool)

	// RabbitMQ is optional; without it escalations still reach the audit
	// table and the logs.
	var producer *rabbitmq.EventProducer
	if cfg.RabbitMQURL != "" {
		producer, err = rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq unavailable; continuing without event publishing\" err=%v", err)
			producer = nil
		} else {
			defer producer.Close()
		}
	}

	// Redis is optional; without it duplicate suppression falls back to the
	// store's conditional confirm alone.
	var replay app.ReplayCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("level=warn component=bootstrap msg=\"invalid redis url; replay cache disabled\" err=%v", err)
		} else {
			client := redis.NewClient(opts)
			defer client.Close()
			replay = app.NewRedisReplayCache(client, cfg.RedisReplayPrefix, time.Duration(cfg.WebhookReplayTTLMin)*time.Minute)
		}
	}

	notifyTimeout := time.Duration(cfg.NotifyTimeoutSeconds) * time.Second
	mailer := mailerclient.NewClient(cfg.MailerBaseURL, cfg.MailerAPIKey, notifyTimeout)

	var publisher app.EventPublisher
	if producer != nil {
		publisher = producer
	}

	escalator := app.NewEscalator(repo, publisher, mailer)
	haircut := decimal.NewFromFloat(cfg.TicketNetHaircutPercent)
	processor := app.NewWebhookProcessor(repo, mailer, escalator, replay, publisher, haircut, notifyTimeout)
	service := app.NewService(repo, mailer, escalator, publisher, notifyTimeout)

	// Scheduled sweeps.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	jobs := app.NewJobs(repo, service, logger, cfg.SweepBatchSize, time.Duration(cfg.StaleOrderTTLHours)*time.Hour)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(processor, service, escalator, cfg.GatewayWebhookSecret)
	router := api.NewRouter(handler, cfg.AdminJWKSURL, cfg.InternalAPIKey)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	// Run the server in a goroutine so shutdown signals can be handled.
	go func() {
		log.Printf("level=info component=bootstrap msg=\"http server listening\" addr=%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=bootstrap msg=\"http server failed\" err=%v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("level=info component=bootstrap msg=\"shutting down\"")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"graceful shutdown failed\" err=%v", err)
	}
}
