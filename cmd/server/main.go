package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/learnhub/purchase-service/internal/api"
	"github.com/learnhub/purchase-service/internal/config"
	"github.com/learnhub/purchase-service/internal/infrastructure/kafka"
	"github.com/learnhub/purchase-service/internal/infrastructure/redis"
	"github.com/learnhub/purchase-service/internal/observability"
	core "github.com/learnhub/purchase-service/internal/repository/postgres"
	service "github.com/learnhub/purchase-service/internal/services"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	shutdown := observability.Setup("purchase-service")
	defer shutdown(context.Background())

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	userRepo := core.NewPostgresUserRepository(db)
	lessonRepo := core.NewPostgresLessonRepository(db)
	entitlementRepo := core.NewPostgresEntitlementRepository(db)
	transactionRepo := core.NewPostgresTransactionRepository(db)
	purchaseRepo := core.NewPostgresPurchaseRepository(db)

	redisClient, err := redis.NewClient(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	svc := service.NewPurchaseService(
		userRepo, lessonRepo, entitlementRepo, transactionRepo, purchaseRepo,
		redisClient, producer, cfg.PurchasesTopic, cfg.JWTSecret,
	)

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	topupConsumer := kafka.NewTopupConsumer(cfg.KafkaBrokers, cfg.TopupsTopic, cfg.TopupsGroupID, userRepo, purchaseRepo, redisClient)
	go topupConsumer.Consume(consumerCtx)
	defer topupConsumer.Close()
	defer cancelConsumer()

	router := api.SetupRouter(svc, redisClient, cfg.JWTSecret)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
