package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/peerfin/lending-engine/internal/config"
	"github.com/peerfin/lending-engine/internal/event"
	"github.com/peerfin/lending-engine/internal/jobs"
	"github.com/peerfin/lending-engine/internal/logger"
	"github.com/peerfin/lending-engine/internal/repository"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting lending scheduler", "timezone", cfg.Scheduler.Timezone)

	// Initialize database
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	offerRepo := repository.NewOfferRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	publisher := event.NewRedisPublisher(redisClient, cfg.Business.EventsChannel)
	sweeps := jobs.NewJobs(offerRepo, paymentRepo, publisher, cfg)

	// Initialize cron scheduler
	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Warn("unknown scheduler timezone, falling back to UTC", "timezone", cfg.Scheduler.Timezone)
		location = time.UTC
	}
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Schedule tasks
	setupCronJobs(c, sweeps)

	// Start the scheduler
	c.Start()
	logger.Info("Scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, sweeps *jobs.Jobs) {
	// Daily overdue sweep at midnight
	_, err := c.AddFunc("0 0 0 * * *", func() {
		if err := sweeps.RunOverdueSweep(context.Background()); err != nil {
			logger.Error("overdue sweep failed", "error", err)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling overdue sweep: %v", err)
	}

	// Weekly payment reminders on Sundays at 9 AM
	_, err = c.AddFunc("0 0 9 * * SUN", func() {
		if err := sweeps.RunReminderSweep(context.Background()); err != nil {
			logger.Error("reminder sweep failed", "error", err)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling reminder sweep: %v", err)
	}

	logger.Info("Cron jobs scheduled")
}
