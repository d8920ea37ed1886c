package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"grocery-orders/config"
	"grocery-orders/consumers"
	"grocery-orders/controllers"
	"grocery-orders/database"
	"grocery-orders/delivery"
	"grocery-orders/kafka"
	"grocery-orders/logger"
	"grocery-orders/mailer"
	"grocery-orders/middlewares"
	"grocery-orders/rabbitmq"
	"grocery-orders/ratelimit"
	"grocery-orders/services"
	"grocery-orders/store"
	"grocery-orders/telegram"
)

type migrator interface {
	Migrate(ctx context.Context) ([]string, error)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Money goes out as JSON numbers, the way the storefront expects it.
	decimal.MarshalJSONWithoutQuotes = true

	if err := run(cfg, log, os.Args[1:]); err != nil {
		log.Fatal("order service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeDB, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	if len(args) > 0 && args[0] == "migrate" {
		m, ok := st.(migrator)
		if !ok {
			return fmt.Errorf("driver %s has no migrations", cfg.DBDriver)
		}
		applied, err := m.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", zap.Strings("files", applied))
		return nil
	}

	mail := mailer.New(cfg, log)

	var (
		notifiers  services.Notifiers
		publishers services.Publishers
	)

	if cfg.RabbitMQURL != "" {
		rmq, err := rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			return err
		}
		defer rmq.Close()

		if err := rmq.SetupQueues(); err != nil {
			return fmt.Errorf("setup rabbitmq queues: %w", err)
		}
		if err := consumers.NewOrderConsumer(mail, log).Start(ctx, rmq.Channel, cfg); err != nil {
			return err
		}
		notifiers = append(notifiers, rmq)
		publishers = append(publishers, rmq)
		log.Info("rabbitmq connected", zap.String("exchange", cfg.OrderExchange))
	} else {
		notifiers = append(notifiers, mail)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewOrderProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		publishers = append(publishers, producer)
	}

	if cfg.TelegramToken != "" && cfg.TelegramAdminChatID != 0 {
		tg, err := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramAdminChatID, log)
		if err != nil {
			log.Warn("telegram alerts disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	var events services.EventPublisher
	if len(publishers) > 0 {
		events = publishers
	}
	manager := services.NewOrderManager(st, notifiers, events, cfg.AdminEmail, log)

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateLimitWindow)
	limiter.Start(ctx)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           newRouter(cfg, log, manager, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("order service starting", zap.String("addr", cfg.ServerAddr), zap.String("db", cfg.DBDriver))
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.OrderStore, func(), error) {
	switch cfg.DBDriver {
	case "postgres":
		pool, err := database.OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(pool), pool.Close, nil
	case "memory":
		log.Warn("using in-memory order store, data is lost on restart")
		return store.NewMemory(), func() {}, nil
	default:
		db, err := database.OpenMySQL(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.NewMySQL(db), func() { _ = db.Close() }, nil
	}
}

func newRouter(cfg *config.Config, log *zap.Logger, manager *services.OrderManager, limiter *ratelimit.Limiter) *gin.Engine {
	if cfg.AppEnv == "production" || cfg.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(log), middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	orders := controllers.NewOrderController(manager)
	quotes := controllers.NewDeliveryController(delivery.NewPricer(cfg.Shop, cfg.Pricing))
	admin := controllers.NewAdminController(manager)

	r.POST("/api/delivery/quote", quotes.Quote)

	authGroup := r.Group("/api")
	authGroup.Use(middlewares.AuthMiddleware(cfg.JWTSecret, manager.IsAdmin))
	{
		authGroup.POST("/orders", middlewares.RateLimit(limiter, "create_order"), orders.CreateOrder)
		authGroup.GET("/orders", orders.GetUserOrders)
		authGroup.GET("/orders/:id", orders.GetOrderDetails)
	}

	adminGroup := authGroup.Group("/admin")
	adminGroup.Use(middlewares.RequireAdmin())
	{
		adminGroup.GET("/orders", admin.ListOrders)
		adminGroup.GET("/lookup/:number", admin.GetByNumber)
		adminGroup.PUT("/orders/:id/status", admin.UpdateOrderStatus)
		adminGroup.PUT("/orders/:id/notes", admin.UpdateAdminNotes)
		adminGroup.GET("/stats", admin.Stats)
	}

	return r
}
