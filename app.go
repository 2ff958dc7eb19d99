package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/config"
	"github.com/manasa1349/payment-gateway-task/database"
	"github.com/manasa1349/payment-gateway-task/events"
	"github.com/manasa1349/payment-gateway-task/middlewares"
	"github.com/manasa1349/payment-gateway-task/queue"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/router"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

type runOptions struct {
	api     bool
	workers bool
	migrate bool
}

// pipeline is the wired service graph shared by the API and the workers.
type pipeline struct {
	jobs       *queue.Client
	orders     *services.OrderService
	payments   *services.PaymentService
	settlement *services.SettlementProcessor
	refunds    *services.RefundService
	webhooks   *services.WebhookService
	merchants  *services.MerchantService
	monitor    *services.PipelineMonitor
	sweeper    *services.Sweeper
}

func newPipeline(cfg *config.Config, store *repository.Store, backend queue.Backend, live services.LivePublisher) *pipeline {
	jobs := queue.NewClient(backend)
	webhooks := services.NewWebhookService(store, jobs, services.NewWebhookClient(cfg.WebhookTimeout), utils.NewRetrySchedule(cfg.WebhookRetryFast), live)

	sim := services.SimulationConfig{
		TestMode: services.TestModeConfig{
			Enabled:         cfg.TestMode,
			PaymentSuccess:  cfg.TestPaymentSuccess,
			ProcessingDelay: cfg.TestProcessingDelay,
		},
		PaymentDelay: services.DelayRange{Min: cfg.ProcessingDelayMin, Max: cfg.ProcessingDelayMax},
		RefundDelay:  services.DelayRange{Min: cfg.RefundDelayMin, Max: cfg.RefundDelayMax},
	}

	return &pipeline{
		jobs:       jobs,
		orders:     services.NewOrderService(store),
		payments:   services.NewPaymentService(store, services.NewIdempotencyGuard(store.Idempotency), jobs, webhooks, live),
		settlement: services.NewSettlementProcessor(store, services.NewRandomOutcome(cfg.UPISuccessRate, cfg.CardSuccessRate), sim, webhooks, live),
		refunds:    services.NewRefundService(store, jobs, webhooks, live, sim.RefundDelay),
		webhooks:   webhooks,
		merchants:  services.NewMerchantService(store, utils.NewTokenManager(cfg.JWTSecret, 24*time.Hour)),
		monitor:    services.NewPipelineMonitor(jobs, store, time.Minute),
		sweeper:    services.NewSweeper(store, jobs, cfg.SweeperInterval),
	}
}

func (p *pipeline) router(cfg *config.Config, store *repository.Store, hub *events.Hub) *gin.Engine {
	return router.SetupRouter(router.Deps{
		DB:                 store,
		Orders:             p.orders,
		Payments:           p.payments,
		Refunds:            p.refunds,
		Webhooks:           p.webhooks,
		Merchants:          p.merchants,
		Monitor:            p.monitor,
		Hub:                hub,
		TestMerchantID:     database.TestMerchantID,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PublicLimiter:      middlewares.NewRateLimiter(cfg.PublicRateLimit, cfg.PublicRateBurst),
	})
}

func (p *pipeline) workers(backend queue.Backend, concurrency int) []*queue.Worker {
	return []*queue.Worker{
		queue.NewWorker(backend, queue.QueuePayments, p.settlement.Process, concurrency),
		queue.NewWorker(backend, queue.QueueRefunds, p.refunds.ProcessRefund, concurrency),
		queue.NewWorker(backend, queue.QueueWebhooks, p.webhooks.Deliver, concurrency),
	}
}

func migrate(db *gorm.DB, cfg *config.Config) error {
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	return database.SeedTestMerchant(db, database.TestMerchantSeed{
		Email:     cfg.TestMerchantEmail,
		APIKey:    cfg.TestAPIKey,
		APISecret: cfg.TestAPISecret,
		Password:  cfg.TestMerchantPassword,
	})
}

// openBackend returns the queue backend for QUEUE_DRIVER. A Redis client is
// returned whenever one could be opened; it also carries live events.
func openBackend(ctx context.Context, cfg *config.Config) (queue.Backend, *redis.Client, error) {
	switch cfg.QueueDriver {
	case "memory":
		return queue.NewMemoryBackend(), nil, nil
	case "redis":
		client, err := config.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return queue.NewRedisBackend(client), client, nil
	case "rabbitmq":
		backend, err := queue.DialRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return nil, nil, err
		}
		client, err := config.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			utils.ErrorLogger.Warnf("Live events limited to this process: %v", err)
			return backend, nil, nil
		}
		return backend, client, nil
	}
	return nil, nil, fmt.Errorf("unsupported QUEUE_DRIVER %q", cfg.QueueDriver)
}

func run(parent context.Context, opts runOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	store := repository.NewStore(db)
	defer store.Close()

	if opts.migrate {
		if err := migrate(db, cfg); err != nil {
			return err
		}
	}

	backend, redisClient, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer backend.Close()
	if redisClient != nil {
		defer redisClient.Close()
	}

	hub := events.NewHub()
	var live services.LivePublisher = hub
	var bus *events.RedisBus
	if redisClient != nil {
		bus = events.NewRedisBus(redisClient, hub)
		live = bus
	}

	p := newPipeline(cfg, store, backend, live)
	var wg sync.WaitGroup

	if opts.api && bus != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bus.Run(ctx); err != nil && ctx.Err() == nil {
				utils.ErrorLogger.Errorf("Live event relay stopped: %v", err)
			}
		}()
	}

	if opts.workers {
		for _, w := range p.workers(backend, cfg.WorkerConcurrency) {
			wg.Add(1)
			go func(w *queue.Worker) {
				defer wg.Done()
				w.Run(ctx)
			}(w)
		}
		p.sweeper.Start(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.monitor.Run(ctx)
		}()
	}

	var serveErr error
	if opts.api {
		serveErr = serveHTTP(ctx, cfg, p.router(cfg, store, hub))
		stop()
	} else {
		<-ctx.Done()
	}
	if opts.workers {
		p.sweeper.Stop()
	}

	utils.InfoLogger.Info("Shutting down, waiting for in-flight jobs")
	wg.Wait()
	utils.InfoLogger.Info("Shutdown complete")
	return serveErr
}

// serveHTTP blocks until ctx is done or the listener fails.
func serveHTTP(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
