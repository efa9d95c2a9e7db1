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

	"github.com/nhartman/ecosort/internal/classify"
	"github.com/nhartman/ecosort/internal/config"
	"github.com/nhartman/ecosort/internal/database"
	"github.com/nhartman/ecosort/internal/logging"
	"github.com/nhartman/ecosort/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	registry := classify.NewRegistry()
	if cfg.GeneralWasteModelURL != "" {
		registry.Register(classify.GeneralWaste, classify.NewHTTPClassifier(cfg.GeneralWasteModelURL, classify.Labels[classify.GeneralWaste]))
	}
	if cfg.FurnitureModelURL != "" {
		registry.Register(classify.Furniture, classify.NewHTTPClassifier(cfg.FurnitureModelURL, classify.Labels[classify.Furniture]))
	}
	logger.Info("classification models",
		"general_waste", registry.Available(classify.GeneralWaste),
		"furniture", registry.Available(classify.Furniture),
	)

	srv := server.New(db, registry, server.Config{
		UploadDir: cfg.UploadDir,
		StaffCode: cfg.StaffCode,
	}, logger)

	// Periodically drop expired sessions and stale rate-limit entries.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			n, err := srv.SessionStore().DeleteExpired()
			if err != nil {
				logger.Error("delete expired sessions", "error", err)
			} else if n > 0 {
				logger.Info("deleted expired sessions", "count", n)
			}
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("EcoSort running at http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
