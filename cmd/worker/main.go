package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/SumanthNagolu/intime-v3-sub032/internal/config"
	"github.com/SumanthNagolu/intime-v3-sub032/services"
	"github.com/SumanthNagolu/intime-v3-sub032/workers"
)

func main() {
	log.Println("Starting workers...")

	// Load Config
	configPath := os.Getenv("SLA_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database connection
	if config.App.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable (or config) is required")
	}

	pg, err := sql.Open("postgres", config.App.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	// Test database connection
	if err := pg.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Timestamps are stored as UTC; evaluation converts to each organization's zone
	if _, err := pg.Exec("SET TIME ZONE 'UTC'"); err != nil {
		log.Printf("Failed to set timezone to UTC: %v", err)
	} else {
		log.Println("  Set database timezone to UTC")
	}

	log.Println("  Connected to database successfully")

	var rdb *redis.Client
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	// Initialize services
	slaService := services.NewSLAService(pg, rdb, config.App.DefaultBusinessHours())
	if config.App.BusinessHoursCacheTTL > 0 {
		slaService.CacheTTL = config.App.BusinessHoursCacheTTL
	}

	// Initialize workers
	notifier := workers.NewEscalationNotifier(pg, config.App.Worker.NotificationQueue)
	if err := notifier.EnsureQueue(context.Background()); err != nil {
		log.Printf("Warning: %v", err)
	}

	slaWorker := workers.NewSLAWorker(slaService, notifier, config.App.Worker.Interval, config.App.Worker.BatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// Start SLA evaluation worker
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Starting SLA evaluation worker...")
		slaWorker.Start(ctx)
	}()

	log.Println("Workers started successfully. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Println("Shutting down workers...")
	wg.Wait()
}
