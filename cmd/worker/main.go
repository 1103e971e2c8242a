package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"track75/internal/audit"
	"track75/internal/backend"
	"track75/internal/config"
	"track75/internal/queue"
	"track75/internal/store"
)

// Worker drains attendance.recorded messages from Redis into the audit log.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.QueueBackend != "redis" || cfg.RedisAddr == "" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis and REDIS_ADDR; the api drains the memory queue itself")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	be, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer be.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable yet, will keep polling", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)

	log.Println("worker started, waiting for messages...")
	if err := audit.Run(ctx, q, be.Attendance); err != nil {
		log.Printf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}
