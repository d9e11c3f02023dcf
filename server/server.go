package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/relaygate/relaygate/lib"
	"github.com/relaygate/relaygate/lib/gateway"
	"github.com/relaygate/relaygate/lib/ratelimit"
	"golang.org/x/sync/errgroup"
)

// NewApp assembles the data-plane application. The bucket store is injected
// so tests can run against an in-process store; production wiring passes the
// Redis store.
func NewApp(store ratelimit.Store) *fiber.App {
	config := lib.GetConfig()

	app := fiber.New(fiber.Config{
		ServerHeader: "relaygate",
		AppName:      "relaygate",
		ErrorHandler: lib.ErrorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Header: "X-Correlation-Id",
		Generator: func() string {
			return uuid.NewString()
		},
	}))
	app.Use(logger.New(logger.Config{
		Format: "${pid} ${locals:requestid} ${status} - ${method} ${path}\n",
	}))
	app.Use(recover.New())

	limiter := ratelimit.New(store)

	// Control-plane guard: per-source-IP, independent of tenant state.
	if config.Settings.RateLimit.Enabled {
		ingress := ratelimit.New(store)
		capacity := config.Settings.RateLimit.Max
		refillRate := float64(capacity) / float64(config.Settings.RateLimit.Window)
		app.Use("/health", ratelimit.PerIP(ingress, "rl:global", capacity, refillRate))
	}

	app.Get("/health", healthHandler)

	forwarder := gateway.NewForwarder(time.Duration(config.Settings.Proxy.TimeoutSeconds) * time.Second)
	proxy := gateway.Handler(forwarder, limiter)
	app.All("/:gatewayId", proxy)
	app.All("/:gatewayId/*", proxy)

	return app
}

func healthHandler(c *fiber.Ctx) error {
	dbStatus := "up"
	if sqlDB, err := lib.DB().DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}

	redisStatus := "up"
	pingCtx, cancel := context.WithTimeout(c.UserContext(), time.Second)
	defer cancel()
	if err := lib.Redis().Ping(pingCtx).Err(); err != nil {
		redisStatus = "down"
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"database": dbStatus,
		"redis":    redisStatus,
	})
}

func StartServer() error {
	config := lib.GetConfig()

	app := NewApp(ratelimit.NewRedisStore(lib.Redis()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	addr := fmt.Sprintf(":%d", config.Settings.Network.Port)

	g.Go(func() error {
		fmt.Printf("Server is starting on %s...\n", addr)
		return app.Listen(addr)
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

		select {
		case <-quit:
			fmt.Println("Starting shutdown...")
			return app.ShutdownWithTimeout(15 * time.Second)
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if err := g.Wait(); err != nil {
		fmt.Printf("Server error: %v\n", err)
		return err
	}

	return nil
}
