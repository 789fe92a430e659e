//	@title			Wardrobe API
//	@version		1.0
//	@description	Wardrobe item photos: presigned and direct upload, image proxy, item records.
//
//	@host		localhost:8080
//	@BasePath	/api
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

//go:generate swag init --dir ../../ --generalInfo cmd/api/main.go --output ../../docs/swagger --outputTypes go

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/wardrobe/service/internal/config"
	"github.com/wardrobe/service/internal/db"
	"github.com/wardrobe/service/internal/item"
	"github.com/wardrobe/service/internal/logger"
	"github.com/wardrobe/service/internal/metrics"
	appMiddleware "github.com/wardrobe/service/internal/middleware"
	"github.com/wardrobe/service/internal/storage"
	"github.com/wardrobe/service/internal/upload"

	_ "github.com/wardrobe/service/docs/swagger"
)

func main() {
	cfg, loadedDotEnv, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.IsProduction())
	if !loadedDotEnv {
		log.Info().Msg("no .env file found, reading from environment")
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	// One storage client for the whole process.
	store, err := storage.New(ctx, storage.Config{
		Driver:    cfg.Storage.Driver,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKeyID,
		SecretKey: cfg.Storage.SecretAccessKey,
		Bucket:    cfg.Storage.Bucket,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("object storage init failed")
	}

	recorder, err := metrics.NewRecorder("wardrobe", nil)
	if err != nil {
		log.Fatal().Err(err).Msg("metrics init failed")
	}

	// Wire dependencies: repository → service → handler
	uploadSvc := upload.NewService(store, storage.NewNamer(), recorder, log)
	uploadHandler := upload.NewHandler(uploadSvc, log)

	itemRepo := item.NewRepository(pool)
	itemSvc := item.NewService(itemRepo, uploadSvc, log)
	itemHandler := item.NewHandler(itemSvc)

	requireAuth := appMiddleware.RequireAuth(cfg.JWTSecret)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/upload", uploadHandler.Routes(requireAuth))
		r.With(requireAuth).Mount("/items", itemHandler.Routes())
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Str("storage", cfg.Storage.Driver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
