package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"seatplan/api/internal/app"
	"seatplan/api/internal/config"
	"seatplan/api/internal/export"
	"seatplan/api/internal/genai"
	"seatplan/api/internal/session"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var charts session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for chart session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL, cfg.ChartTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		charts = redisStore
	} else {
		log.Printf("Using in-memory chart session storage")
		charts = session.NewMemoryStore(cfg.ChartTTL)
	}

	var archive *export.Archive
	if strings.TrimSpace(cfg.ArchiveEndpoint) != "" {
		var err error
		archive, err = export.NewArchive(export.ArchiveConfig{
			Endpoint:  cfg.ArchiveEndpoint,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
			Bucket:    cfg.ArchiveBucket,
			UseSSL:    cfg.ArchiveUseSSL,
			ShareTTL:  cfg.ArchiveShareTTL,
		})
		if err != nil {
			log.Fatalf("export archive connection failed: %v", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatalf("export archive bucket setup failed: %v", err)
		}
	}
	exporter := export.NewService(archive)

	var service *app.Service
	if strings.TrimSpace(cfg.AIAPIKey) != "" {
		generator := genai.NewClient(genai.Config{
			BaseURL: cfg.AIBaseURL,
			Model:   cfg.AIModel,
			APIKey:  cfg.AIAPIKey,
			Timeout: cfg.AITimeout,
			Policy: genai.Policy{
				MaxAttempts:   cfg.AIMaxAttempts,
				BaseDelay:     cfg.AIRetryBaseDelay,
				BackoffFactor: 2,
			},
		})
		service = app.NewWithGenerator(cfg, charts, generator, exporter)
	} else {
		log.Printf("WARNING: AI_API_KEY not set, reconciliation is disabled")
		service = app.New(cfg, charts, exporter)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Seatplan API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
