package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/unweightedai/kol-trust-service/internal/ai"
	"github.com/unweightedai/kol-trust-service/internal/api"
	"github.com/unweightedai/kol-trust-service/internal/chain"
	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/credibility"
	"github.com/unweightedai/kol-trust-service/internal/database"
	"github.com/unweightedai/kol-trust-service/internal/kafka"
	"github.com/unweightedai/kol-trust-service/internal/ledger"
	"github.com/unweightedai/kol-trust-service/internal/redis"
	"github.com/unweightedai/kol-trust-service/internal/report"
	"github.com/unweightedai/kol-trust-service/internal/scanner"
	"github.com/unweightedai/kol-trust-service/internal/scoring"
	"github.com/unweightedai/kol-trust-service/internal/social"
	"github.com/unweightedai/kol-trust-service/internal/tracker"
)

func main() {
	// Load .env in development; production uses real env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.Load()

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(cfg.Database.ConnectionString()); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Println("Connected to PostgreSQL database")

	// Connect to Redis
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v (continuing without cache)", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Connected to Redis cache")
	}

	// Create Kafka producer for trust events
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic)
	defer producer.Close()
	log.Printf("Kafka producer initialized (brokers: %v)", cfg.Kafka.Brokers)

	// Wire the tracker and its collaborators
	deps := tracker.Deps{
		Repo:     db,
		Trust:    ledger.New(db),
		Scorer:   scoring.NewRiskScorer(cfg.Scoring),
		Perf:     scoring.NewPerformanceCalculator(),
		Chain:    chain.NewSolanaClient(cfg.Solana),
		Social:   social.NewTwitterClient(cfg.Twitter),
		Analyzer: ai.NewOpenAIAnalyzer(cfg.OpenAI),
		Assessor: credibility.NewAggregator(cfg.Scoring),
		Reports:  report.NewBuilder(db, cfg.Scoring.ReportWindowDays),
		Events:   producer,
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}
	trk := tracker.New(cfg.Scoring, deps)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create and start Kafka consumer for token-call events
	consumer := kafka.NewCallsConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.CallsTopic,
		cfg.Kafka.ConsumerGroup,
		trk,
	)
	go func() {
		log.Printf("Starting Kafka consumer for topic: %s (group: %s)",
			cfg.Kafka.CallsTopic, cfg.Kafka.ConsumerGroup)
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Kafka consumer error: %v", err)
		}
	}()

	// Start the scheduled scan passes
	scans := scanner.New(cfg.Scoring, trk)
	if err := scans.Start(ctx); err != nil {
		log.Fatalf("Failed to start scanner: %v", err)
	}

	// Set up HTTP handler and routes
	handler := api.NewHandler(db, trk, redisClient)
	router := api.SetupRoutes(handler)

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Cancel context to stop the Kafka consumer and any running pass
	cancel()

	// Let in-flight scan passes drain
	<-scans.Stop().Done()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := consumer.Close(); err != nil {
		log.Printf("Error closing Kafka consumer: %v", err)
	}

	log.Println("Server stopped")
}

func runMigrations(databaseUrl string) error {
	m, err := migrate.New("file://./db/migrations", databaseUrl)
	if err != nil {
		return err
	}

	// Apply all available migrations up to the latest version
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}
