package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retail-order-service/config"
	"retail-order-service/internal/api"
	"retail-order-service/internal/broker"
	"retail-order-service/internal/resilience"
	"retail-order-service/internal/service"
	"retail-order-service/internal/snapcache"
	"retail-order-service/internal/store"
	"retail-order-service/internal/util"
	"retail-order-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting retail order service")

	tp, err := util.InitTracer("retail-order-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	cache, err := snapcache.NewCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()
	log.Println("Snapshot cache connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer, db)

	// one breaker per remote operation, shared by all callers
	breakerCfg := resilience.BreakerConfig{
		WindowSize:  cfg.Resilience.WindowSize,
		FailureRate: cfg.Resilience.FailureRate,
		OpenTimeout: cfg.Resilience.OpenTimeout,
	}
	retryCfg := resilience.RetryConfig{
		MaxAttempts: cfg.Resilience.MaxAttempts,
		BackoffBase: cfg.Resilience.BackoffBase,
	}
	productExec := resilience.NewExecutor(resilience.NewBreaker("catalog.products", breakerCfg), retryCfg)
	categoryExec := resilience.NewExecutor(resilience.NewBreaker("catalog.categories", breakerCfg), retryCfg)
	inventoryExec := resilience.NewExecutor(resilience.NewBreaker("catalog.inventory", breakerCfg), retryCfg)
	reserveExec := resilience.NewExecutor(resilience.NewBreaker("inventory.reserve", breakerCfg), retryCfg)

	catalogClient := service.NewCatalogClient(
		cfg.Catalog.BaseURL, cfg.Catalog.HTTPTimeout,
		cache, cache, cache,
		productExec, categoryExec, inventoryExec,
	)
	reservationClient := service.NewReservationClient(cfg.Catalog.BaseURL, cfg.Catalog.HTTPTimeout, reserveExec)

	orderService := service.NewOrderService(db, catalogClient, reservationClient, eventPublisher, cfg.Kafka.TopicOrderEvents)
	retryService := service.NewRetryService(db, reservationClient, eventPublisher, cfg.Kafka.TopicOrderEvents, cfg.Retry.MaxAttempts)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	snapshotWorkers := []*worker.SnapshotWorker{
		worker.NewSnapshotWorker("product",
			broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicProducts, cfg.Kafka.ConsumerGroup),
			service.NewProductEventConsumer(cache, db).Handle),
		worker.NewSnapshotWorker("category",
			broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCategories, cfg.Kafka.ConsumerGroup),
			service.NewCategoryEventConsumer(cache, db).Handle),
		worker.NewSnapshotWorker("inventory",
			broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory, cfg.Kafka.ConsumerGroup),
			service.NewInventoryEventConsumer(cache, db).Handle),
	}
	for _, w := range snapshotWorkers {
		w := w
		go func() {
			if err := w.Start(workerCtx); err != nil {
				log.Printf("Snapshot worker error: %v", err)
			}
		}()
	}

	retryWorker := worker.NewRetryWorker(retryService, cfg.Retry.SweepInterval)
	go retryWorker.Start(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orderService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	for _, w := range snapshotWorkers {
		w.Stop()
	}

	log.Println("Server exited")
}
