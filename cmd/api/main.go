package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MedusaOnMe/Wifity/internal/adapter/repo"
	"github.com/MedusaOnMe/Wifity/internal/domain"
	"github.com/MedusaOnMe/Wifity/internal/http/handlers"
	"github.com/MedusaOnMe/Wifity/internal/http/httpapi"
	"github.com/MedusaOnMe/Wifity/internal/infra"
	"github.com/MedusaOnMe/Wifity/internal/jobqueue"
	"github.com/MedusaOnMe/Wifity/internal/providers/openai"
	"github.com/MedusaOnMe/Wifity/internal/storage"
	"github.com/MedusaOnMe/Wifity/internal/upload"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Image records live in Postgres when a DSN is configured, otherwise
	// in memory. Jobs are always in memory: they are ephemeral by design.
	var images domain.ImageRepository
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		images = repo.NewImageRepositoryPG(dbpool)
		logger.Info().Msg("image store: postgres")
	} else {
		images = repo.NewImageRepositoryMem()
		logger.Info().Msg("image store: in-memory")
	}
	jobs := repo.NewJobRepositoryMem()

	store, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to prepare upload directory")
	}
	stager := upload.NewStager(store, cfg.MaxUploadBytes, logger)

	remote := openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Logger:  &logger,
	})

	// Probe the provider at startup. A failure is worth knowing about but
	// must not block boot: the key may become valid later.
	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := remote.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Msg("image service probe failed")
	} else {
		logger.Info().Msg("image service reachable")
	}
	cancelPing()

	queue := jobqueue.New(jobqueue.Config{
		Workers:   cfg.JobWorkers,
		Retention: cfg.JobRetention,
	}, jobs, images, remote, logger)
	queue.Start()

	app := handlers.NewApp(cfg, logger, images, queue, remote, stager)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	queue.Close()
	logger.Info().Msg("server stopped")
}
