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

	"github.com/gin-gonic/gin"

	"track75/internal/account"
	"track75/internal/attendance"
	"track75/internal/audit"
	"track75/internal/auth"
	"track75/internal/backend"
	"track75/internal/config"
	"track75/internal/queue"
	"track75/internal/store"
	"track75/internal/web"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Close(); err != nil {
			log.Printf("store close: %v", err)
		}
	}()

	checks := map[string]web.HealthCheck{"store": be.Healthy}

	var (
		revoker auth.Revoker = auth.NewMemoryRevoker()
		q       queue.Queue
	)
	if cfg.RedisAddr != "" {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		checks["redis"] = redisClient.Healthy
		revoker = auth.NewRedisRevoker(redisClient.Client, "")
		if cfg.QueueBackend == "redis" {
			q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
		}
	}
	if q == nil {
		// no separate worker can see this queue, so drain it here
		mem := queue.NewInMemory(64)
		q = mem
		go func() {
			if err := audit.Run(ctx, mem, be.Attendance); err != nil {
				log.Printf("audit consumer stopped: %v", err)
			}
		}()
		log.Println("queue backend: memory (audit consumer running in-process)")
	}

	accounts := account.NewService(be.Accounts, cfg.BcryptCost)
	att := attendance.NewService(be.Attendance, accounts, q)
	sessions := auth.NewSessions(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.SessionTTL, cfg.CookieSecure, revoker)

	h := web.New(accounts, att, sessions, checks, cfg.CookieSecure)
	r := web.NewRouter(h, web.RouterOptions{
		RateLimitPerMin: cfg.RateLimitPerMin,
		HSTS:            cfg.Production(),
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (store: %s)", cfg.HTTPPort, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
