package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/peerfin/lending-engine/internal/config"
	"github.com/peerfin/lending-engine/internal/event"
	"github.com/peerfin/lending-engine/internal/handler"
	"github.com/peerfin/lending-engine/internal/logger"
	"github.com/peerfin/lending-engine/internal/repository"
	"github.com/peerfin/lending-engine/internal/service"
	"github.com/peerfin/lending-engine/pkg/response"
)

func main() {
	// Load .env if present, deployed environments configure via env vars
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting lending engine", "env", cfg.Server.Env)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	offerRepo := repository.NewOfferRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	contactRepo := repository.NewContactRepository(db)

	// Initialize event publisher and service
	publisher := event.NewRedisPublisher(redisClient, cfg.Business.EventsChannel)
	lendingService := service.NewLendingService(offerRepo, paymentRepo, contactRepo, publisher, redisClient, cfg)

	lendingHandler := handler.NewLendingHandler(lendingService)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.Health.Timeout)

	// Setup routes
	router := setupRoutes(lendingHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(lendingHandler *handler.LendingHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware, response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.JSONMiddleware)

	api.HandleFunc("/offers", lendingHandler.CreateOffer).Methods("POST")
	api.HandleFunc("/offers", lendingHandler.ListOffers).Methods("GET")
	api.HandleFunc("/offers/{offerId}", lendingHandler.GetOffer).Methods("GET")
	api.HandleFunc("/offers/{offerId}/accept", lendingHandler.AcceptOffer).Methods("POST")
	api.HandleFunc("/offers/{offerId}/decline", lendingHandler.DeclineOffer).Methods("POST")
	api.HandleFunc("/offers/{offerId}/cancel", lendingHandler.CancelOffer).Methods("POST")
	api.HandleFunc("/offers/{offerId}/schedule", lendingHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/offers/{offerId}/summary", lendingHandler.GetSummary).Methods("GET")
	api.HandleFunc("/offers/{offerId}/payments", lendingHandler.SubmitPayment).Methods("POST")
	api.HandleFunc("/offers/{offerId}/payments", lendingHandler.ListPayments).Methods("GET")
	api.HandleFunc("/payments/{paymentId}/review", lendingHandler.ReviewPayment).Methods("POST")

	return router
}
