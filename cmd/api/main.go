package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/askify/internal/api"
	"github.com/timmy/askify/internal/config"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/service"
	"github.com/timmy/askify/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ctx := appLogger.WithContext(context.Background())

	// Object storage is only needed when dub uploads are staged by URL
	var objectStorage storage.ObjectStorage
	if cfg.Storage.Enabled {
		objectStorage, err = storage.NewStorage(&storage.Config{
			Type:      storage.StorageType(cfg.Storage.Type),
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage: %v", err)
		}
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			logger.Fatal("Failed to ensure storage bucket: %v", err)
		}
		logger.CtxInfo(ctx, "Media staging enabled: type=%s, bucket=%s", cfg.Storage.Type, cfg.Storage.Bucket)
	}

	llmService := service.NewLLMService(&service.LLMConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})

	speechService := service.NewSpeechService(&service.SpeechConfig{
		BaseURL:     cfg.Speech.BaseURL,
		APIKey:      cfg.Speech.APIKey,
		VoiceID:     cfg.Speech.VoiceID,
		Format:      cfg.Speech.Format,
		ChannelType: cfg.Speech.ChannelType,
		SampleRate:  cfg.Speech.SampleRate,
		Timeout:     cfg.Speech.Timeout,
	})

	dubbingClient := service.NewMurfDubClient(&service.DubbingConfig{
		BaseURL:       cfg.Dubbing.BaseURL,
		APIKey:        cfg.Dubbing.APIKey,
		Timeout:       cfg.Dubbing.Timeout,
		StatusTimeout: cfg.Dubbing.StatusTimeout,
	})

	dubService := service.NewDubService(dubbingClient, objectStorage, service.DubServiceConfig{
		Priority:      cfg.Dubbing.Priority,
		UploadMode:    cfg.Dubbing.UploadMode,
		PollInterval:  cfg.Dubbing.PollInterval,
		PollTimeout:   cfg.Dubbing.PollTimeout,
		StatusRate:    cfg.Dubbing.StatusRate,
		StoragePrefix: cfg.Storage.Prefix,
		URLExpiry:     cfg.Storage.URLExpiry,
	})

	fetcher := service.NewYTDLPFetcher(&service.MediaConfig{
		DownloadDir: cfg.Media.DownloadDir,
		YTDLPPath:   cfg.Media.YTDLPPath,
		FFmpegPath:  cfg.Media.FFmpegPath,
		Timeout:     cfg.Media.Timeout,
	})

	tracker := service.NewDownloadTracker(fetcher, service.TrackerConfig{
		Workers:         cfg.Tracker.Workers,
		QueueSize:       cfg.Tracker.QueueSize,
		TTL:             cfg.Tracker.TTL,
		CleanupInterval: cfg.Tracker.CleanupInterval,
	})
	defer tracker.Close()

	router := api.SetupRouter(&api.Services{
		Pipeline: service.NewExplanationPipeline(llmService, speechService),
		Tracker:  tracker,
		Fetcher:  fetcher,
		Dub:      dubService,
		Notes:    service.NewNotesService(llmService, cfg.Notes.DownloadTimeout),
	}, cfg, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.CtxInfo(ctx, "Starting API server: port=%d, mode=%s, llm=%s/%s",
			cfg.Server.Port, cfg.Server.Mode, cfg.LLM.Provider, llmService.GetModel())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.CtxInfo(ctx, "Shutting down server...")

	// dub_complete requests may still be polling; they are cut off here
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.CtxError(ctx, "Server forced to shutdown: %v", err)
	}

	logger.CtxInfo(ctx, "Server exited")
}
