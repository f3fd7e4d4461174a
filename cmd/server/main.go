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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sudo-init-do/skillswap/internal/admin"
	"github.com/sudo-init-do/skillswap/internal/alerts"
	"github.com/sudo-init-do/skillswap/internal/config"
	"github.com/sudo-init-do/skillswap/internal/marketplace"
	"github.com/sudo-init-do/skillswap/internal/messaging"
	mware "github.com/sudo-init-do/skillswap/internal/middleware"
	"github.com/sudo-init-do/skillswap/internal/store"
	"github.com/sudo-init-do/skillswap/internal/user"
	"github.com/sudo-init-do/skillswap/internal/wallet"
)

type notifier interface {
	marketplace.Notifier
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer closeStore()

	// Notifications: queue through asynq when Redis is configured, otherwise
	// store them inline.
	deliverer := alerts.NewDeliverer(st)
	var notify notifier
	var worker *alerts.Worker
	if cfg.Notify.RedisAddr != "" {
		notify = alerts.NewQueueNotifier(cfg.Notify.RedisAddr, cfg.Notify.Timeout)
		worker = alerts.NewWorker(cfg.Notify.RedisAddr, deliverer)
		if err := worker.Start(); err != nil {
			log.Fatalf("asynq worker error: %v", err)
		}
	} else {
		log.Println("REDIS_ADDR not set, delivering notifications inline")
		notify = alerts.NewInlineNotifier(deliverer, cfg.Notify.Timeout)
	}

	hub := messaging.NewHub()
	ledger := wallet.NewLedger(st)
	engine := marketplace.NewEngine(st, ledger,
		marketplace.WithNotifier(notify),
		marketplace.WithEvents(hub),
		marketplace.WithConflictRetries(cfg.Exchange.ConflictRetries),
	)

	var sweeper *admin.Sweeper
	if cfg.ReconcileSchedule != "" {
		sweeper, err = admin.NewSweeper(cfg.ReconcileSchedule, st, ledger)
		if err != nil {
			log.Fatalf("reconcile schedule error: %v", err)
		}
		sweeper.Start()
	}

	e := echo.New()
	e.HideBanner = true

	// Basic middleware
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := st.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "store unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Public routes
	e.GET("/users/:id/profile", user.NewHandler(st).GetPublicProfile)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware(cfg.Auth.JWTSecret))

	marketplace.NewHandler(engine, marketplace.NewScorer(st)).Register(api)
	api.GET("/exchanges/:id/ws", hub.ExchangeWS(engine))
	wallet.NewHandler(ledger).Register(api.Group("/wallet"))
	alerts.NewHandler(st).Register(api.Group("/notifications"))

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(mware.JWTMiddleware(cfg.Auth.JWTSecret))
	adminGroup.Use(mware.RequireRoles("admin"))
	admin.NewHandler(st, ledger).Register(adminGroup)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if err := notify.Close(); err != nil {
		log.Printf("notifier close: %v", err)
	}
	if worker != nil {
		worker.Shutdown()
	}
}
