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

	"github.com/joho/godotenv"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/config"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/httpapi"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/service"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store/sqlite"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[server] WARN: load .env: %v", err)
	}
	cfg := config.Load()

	repo, err := sqlite.Open(cfg.DatabasePath, sqlite.Options{
		AllowNegativeStock: cfg.AllowNegativeStock,
	})
	if err != nil {
		log.Fatalf("[server] open database: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.Migrate(ctx); err != nil {
		cancel()
		log.Fatalf("[server] migrate: %v", err)
	}
	cancel()

	svc := service.New(repo)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AuthTokenTTL)
	api := httpapi.NewServer(svc, auth)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[server] listening on %s (db %s)", cfg.HTTPAddr, cfg.DatabasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] listen: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	log.Printf("[server] shutting down")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[server] WARN: shutdown: %v", err)
	}
}
