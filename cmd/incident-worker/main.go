package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/metrics"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/repository"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/worker"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/config"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/database"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/kafka"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/logger"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/retry"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

const serviceName = "incident-worker"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateDatabase(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
		FilePath:    cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Incident Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
		MetricInterval: cfg.OTel.MetricInterval,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry init failed: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()
	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Metrics init failed: %v", err))
	}

	// Initialize database connection
	dbCfg := database.DefaultPostgresConfig()
	dbCfg.DSN = cfg.Database.DSN()
	if cfg.Database.MaxConns > 0 {
		dbCfg.MaxConns = int32(cfg.Database.MaxConns)
	}
	if cfg.Database.MinConns > 0 {
		dbCfg.MinConns = int32(cfg.Database.MinConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	}
	dbCfg.EnableTracing = cfg.OTel.Enabled

	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Initialize Kafka consumer
	consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.ConsumerGroup,
		Topics:         []string{cfg.Kafka.CheckoutTopic},
		ClientID:       serviceName,
		MaxRetries:     3,
		RetryInterval:  2 * time.Second,
		SessionTimeout: 30 * time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to create Kafka consumer: %v", err))
	}
	appLog.Info("Kafka consumer connected")

	// Dead letters go to "<topic>.dlq"
	var dlq retry.DLQPublisher = retry.NoOpDLQPublisher{}
	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Kafka.Brokers,
		ClientID:      serviceName + "-dlq",
		MaxRetries:    3,
		RetryInterval: time.Second,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("DLQ producer failed: %v, failed events will only be logged", err))
	} else {
		defer producer.Close()
		dlq = retry.NewKafkaDLQPublisher(producer, serviceName)
	}

	incidentWorker := worker.NewIncidentWorker(
		consumer,
		repository.NewPostgresIncidentRepository(db.Pool()),
		dlq,
		&worker.IncidentWorkerConfig{
			Topic:       cfg.Kafka.CheckoutTopic,
			PollBackoff: time.Second,
		},
	)
	incidentWorker.Start(ctx)

	appLog.Info("Incident Worker started successfully")

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	incidentWorker.Stop()

	appLog.Info("Worker exited gracefully")
}
