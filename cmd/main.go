package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thejerf/suture/v4"

	"cafe-backoffice/internal/config"
	"cafe-backoffice/internal/database"
	"cafe-backoffice/internal/httpapi"
	"cafe-backoffice/internal/idempotency"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/messaging"
	"cafe-backoffice/internal/repository"
	"cafe-backoffice/internal/repository/memory"
	"cafe-backoffice/internal/repository/postgres"
	"cafe-backoffice/internal/services/billing"
	"cafe-backoffice/internal/services/booking"
	"cafe-backoffice/internal/services/kitchen"
	"cafe-backoffice/internal/services/order"
)

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (api, kot-printer, migrate)")
		configPath = flag.String("config", "config.yaml", "Path to the YAML config file")
		workerName = flag.String("worker-name", "", "Printer worker name (kot-printer mode)")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode, cfg.Logging.Level)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":    *mode,
		"storage": cfg.Storage.Driver,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	switch *mode {
	case "api":
		err = runAPI(ctx, cfg, log)
	case "kot-printer":
		if *workerName == "" {
			hostname, _ := os.Hostname()
			*workerName = "kot-printer-" + hostname
		}
		err = runPrinter(ctx, cfg, log, *workerName)
	case "migrate":
		err = runMigrate(ctx, cfg, log)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// newSupervisor logs suture's restart and backoff events through log.
func newSupervisor(name string, log *logger.Logger) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn("supervisor_event", e.String(), "", e.Map())
		},
	})
}

// openStore returns the configured repository and, for postgres, the
// database handle so callers can close it and health-check it.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Store, *database.DB, error) {
	if cfg.Storage.Driver == "memory" {
		store := memory.New()
		seedDemo(store, log)
		return store, nil, nil
	}

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx, database.Migrations()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return postgres.New(db, log), db, nil
}

// runAPI serves the HTTP API and runs the KOT dispatch sweeper.
func runAPI(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	store, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	health := httpapi.NewHealth("api", log)
	if db != nil {
		defer db.Close()
		health.Register("database", db.Ping)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()
	health.Register("rabbitmq", conn.Ping)

	publisher := messaging.NewPublisher(conn, log, cfg.RabbitMQ.PublishTimeout)

	kitchenService := kitchen.NewService(store, publisher, log)
	orderService := order.NewService(store, kitchenService, log)
	bookingService := booking.NewService(store, log)
	billingService := billing.NewService(store, log)

	router := httpapi.NewRouter(cfg, httpapi.Handlers{
		Orders:   order.NewHandler(orderService, log),
		Kitchen:  kitchen.NewHandler(kitchenService, log),
		Bookings: booking.NewHandler(bookingService, log),
		Billing:  billing.NewHandler(billingService, log),
	}, health, log)

	sup := newSupervisor("api", log)
	sup.Add(httpapi.NewServer(cfg.Server, router, log))
	sup.Add(kitchen.NewSweeper(kitchenService, cfg.Printer, log))
	return sup.Serve(ctx)
}

// runPrinter consumes print-kot jobs. Redis drops redelivered jobs.
func runPrinter(ctx context.Context, cfg *config.Config, log *logger.Logger, name string) error {
	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("kot-printer needs a shared store, storage.driver is %q", cfg.Storage.Driver)
	}
	store, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	client := idempotency.NewClient(cfg.Redis)
	defer client.Close()
	dedup := idempotency.New(client, cfg.Redis.DedupTTL)
	if err := dedup.Ping(ctx); err != nil {
		log.Warn("redis_unavailable", "Redis not reachable yet, jobs will be retried until it is", "",
			map[string]interface{}{"addr": cfg.Redis.Addr, "error": err.Error()})
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	consumer := messaging.NewConsumer(conn, log, messaging.PrintQueue, name, cfg.Printer.Prefetch)
	worker := kitchen.NewWorker(name, store, consumer, dedup, os.Stdout, log)

	sup := newSupervisor("kot-printer", log)
	sup.Add(worker)
	return sup.Serve(ctx)
}

func runMigrate(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, database.Migrations()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations_applied", "Database schema is up to date", "", nil)
	return nil
}
