package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/arkocart/storefront/internal/config"
	"github.com/arkocart/storefront/internal/events"
	"github.com/arkocart/storefront/internal/handlers"
	"github.com/arkocart/storefront/internal/handlers/cart"
	"github.com/arkocart/storefront/internal/logging"
	authmw "github.com/arkocart/storefront/internal/middleware/auth"
	"github.com/arkocart/storefront/internal/middleware/loggingmw"
	"github.com/arkocart/storefront/internal/notify"
	"github.com/arkocart/storefront/internal/repo"
	"github.com/arkocart/storefront/internal/service"
	"github.com/arkocart/storefront/internal/settings"
	httpserver "github.com/arkocart/storefront/internal/transport/http"
	"github.com/arkocart/storefront/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	gormDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("database migration error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)

	settingsStore := &settings.Store{DB: gormDB}
	dispatcher := &notify.Dispatcher{
		DB:       gormDB,
		Settings: settingsStore,
		Log:      logger,
	}

	orderSvc := &service.OrderService{
		Repo:     &repo.OrderRepo{DB: gormDB},
		Settings: settingsStore,
		Notifier: dispatcher,
		Events:   producer,
	}

	authMW := &authmw.Middleware{JWTSecret: cfg.JWTSecret}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		DB:             gormDB,
		Auth:           authMW,
		AuthHandler:    &handlers.AuthHandler{DB: gormDB, JWTSecret: cfg.JWTSecret},
		ProductHandler: &handlers.ProductHandler{DB: gormDB},
		OrderHandler:   &handlers.OrderHandler{Svc: orderSvc},
		CartHandler:    &cart.CartHandler{DB: gormDB, Settings: settingsStore},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Let in-flight notification dispatches finish before closing resources.
	dispatcher.Wait()

	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
