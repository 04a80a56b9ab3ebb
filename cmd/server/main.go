// Package main is the entry point for the payment core. It wires the
// database, cache, gateway and services together, starts the retry
// scheduler and exposes the liveness and webhook surface.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"bookpay/internal/config"
	"bookpay/internal/currency"
	"bookpay/internal/gateway"
	"bookpay/internal/repositories"
	"bookpay/internal/services/booking"
	"bookpay/internal/services/discount"
	"bookpay/internal/services/ledger"
	"bookpay/internal/services/payment"
	"bookpay/internal/services/retry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	config.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repositories.InitDB(repositories.DefaultDBConfig())
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get database instance: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	log.Println("connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable, continuing without warm cache: %v", err)
	}

	cache := repositories.NewRedisCacheRepository(redisClient)
	walletRepo := repositories.NewWalletRepository(db)
	discountRepo := repositories.NewDiscountRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)

	converter := currency.NewConverter(currency.DefaultRates())

	ledgerSvc := ledger.NewService(walletRepo, cache, converter, ledger.Config{
		DefaultCurrency:        config.GetEnv("DEFAULT_CURRENCY", "USD"),
		CurrencyChangeCooldown: config.GetDurationEnv("CURRENCY_CHANGE_COOLDOWN", 24*time.Hour),
	})
	discountSvc := discount.NewService(discountRepo)
	bookings := booking.NewLogNotifier()

	var gw payment.Gateway
	if key := config.GetEnv("STRIPE_SECRET_KEY", ""); key != "" {
		sg, err := gateway.NewStripeGateway(key, config.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
		if err != nil {
			log.Fatalf("failed to initialize gateway: %v", err)
		}
		gw = sg
	} else {
		log.Println("no gateway credentials set, gateway payments disabled")
	}

	paymentSvc := payment.NewService(paymentRepo, ledgerSvc, discountSvc, gw, bookings)

	if gw != nil {
		scheduler := retry.NewScheduler(paymentRepo, gw, bookings, retry.Config{
			Interval:      config.GetDurationEnv("RETRY_INTERVAL", time.Hour),
			Lookback:      config.GetDurationEnv("RETRY_LOOKBACK", 24*time.Hour),
			MaxRetries:    config.GetIntEnv("RETRY_MAX_ATTEMPTS", 3),
			BackoffFactor: config.GetFloatEnv("RETRY_BACKOFF_FACTOR", 2.0),
		})
		scheduler.Start(ctx)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: config.IsProduction(),
	})
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := sqlDB.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "down",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/api/webhooks/gateway", func(c *fiber.Ctx) error {
		if gw == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "gateway not configured",
			})
		}
		err := paymentSvc.HandleWebhook(c.UserContext(), c.Body(), c.Get("Stripe-Signature"))
		if err != nil {
			log.Printf("webhook rejected: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "webhook rejected",
			})
		}
		return c.JSON(fiber.Map{"received": true})
	})

	go func() {
		<-ctx.Done()
		log.Println("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
