package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/drivetrackhq/drivetrack/internal/config"
	"github.com/drivetrackhq/drivetrack/internal/events"
	"github.com/drivetrackhq/drivetrack/internal/httpserver"
	"github.com/drivetrackhq/drivetrack/internal/logging"
	mwauth "github.com/drivetrackhq/drivetrack/internal/middleware/auth"
	loggingmw "github.com/drivetrackhq/drivetrack/internal/middleware/logging"
	"github.com/drivetrackhq/drivetrack/internal/repo"
	"github.com/drivetrackhq/drivetrack/internal/service"
	"github.com/drivetrackhq/drivetrack/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaAddress)

	issuer := &tokens.Issuer{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	r := repo.New(db)

	deps := httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: &service.AuthService{Repo: r, Issuer: issuer, Producer: producer}},
		TripHandler: &httpserver.TripHTTP{Svc: &service.TripService{Repo: r, Producer: producer}},
		UserHandler: &httpserver.UserHTTP{Svc: &service.UserService{Repo: r}},
		Guard:       mwauth.NewGuard(issuer),
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
