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

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/upwave/upwave/internal/apperr"
	"github.com/upwave/upwave/internal/config"
	"github.com/upwave/upwave/internal/db"
	"github.com/upwave/upwave/internal/es"
	"github.com/upwave/upwave/internal/handlers"
	"github.com/upwave/upwave/internal/logging"
	mwauth "github.com/upwave/upwave/internal/middleware/auth"
	loggingmw "github.com/upwave/upwave/internal/middleware/logging"
	"github.com/upwave/upwave/internal/mykafka"
	"github.com/upwave/upwave/internal/repo"
	"github.com/upwave/upwave/internal/service"
	"github.com/upwave/upwave/internal/storage"
	"github.com/upwave/upwave/internal/tokens"
	httpserver "github.com/upwave/upwave/internal/transport/http"
)

const postIndex = "posts"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := mykafka.NewProducer(cfg.KafkaBrokers)

	var esClient *elasticsearch.Client
	if cfg.ESURL != "" {
		esClient, err = es.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
	} else {
		logger.Warn("ES_URL not set, search disabled")
	}

	var media *storage.MediaStore
	if cfg.S3Bucket != "" {
		media, err = storage.New(ctx, cfg)
		if err != nil {
			log.Fatalf("media storage init error: %v", err)
		}
	} else {
		logger.Warn("S3_BUCKET not set, media uploads disabled")
	}

	gormRepo := repo.New(database)
	codec := tokens.NewCodec(cfg.JWTSecret)

	authSvc := &service.AuthService{
		Repo:       gormRepo,
		Codec:      codec,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Producer:   producer,
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Auth:          mwauth.New(gormRepo, codec),
		AuthHandler:   &handlers.AuthHandler{Svc: authSvc},
		UserHandler:   &handlers.UserHandler{Repo: gormRepo},
		PostHandler:   &handlers.PostHandler{Repo: gormRepo, Media: media, ES: esClient, Index: postIndex, Producer: producer},
		SearchHandler: &handlers.SearchHandler{ES: esClient, Index: postIndex},
	}
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
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
