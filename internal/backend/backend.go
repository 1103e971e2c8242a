// Package backend opens the configured stores.
package backend

import (
	"context"
	"fmt"
	"log"

	"track75/internal/account"
	"track75/internal/attendance"
	"track75/internal/config"
	"track75/internal/store"
)

// Backend holds the repositories for the configured store.
type Backend struct {
	Accounts   account.Repository
	Attendance attendance.Repository
	// Healthy pings the store.
	Healthy func(ctx context.Context) bool

	closers []func() error
}

// Open connects to the store named by cfg.StoreBackend and prepares its
// schema.
func Open(ctx context.Context, cfg config.App) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := store.MigratePostgres(ctx, db.Client); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Backend{
			Accounts:   account.NewPostgresRepository(db.Client),
			Attendance: attendance.NewPostgresRepository(db.Client),
			Healthy:    db.Healthy,
			closers:    []func() error{db.Close},
		}, nil

	case config.BackendMongo:
		m, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := store.EnsureMongoIndexes(ctx, m.DB); err != nil {
			_ = m.Close()
			return nil, err
		}
		return &Backend{
			Accounts:   account.NewMongoRepository(m.DB),
			Attendance: attendance.NewMongoRepository(m.DB),
			Healthy:    m.Healthy,
			closers:    []func() error{m.Close},
		}, nil

	case config.BackendMemory:
		log.Println("using in-memory store, data is lost on restart")
		return &Backend{
			Accounts:   account.NewMemoryRepository(),
			Attendance: attendance.NewMemoryRepository(),
			Healthy:    func(context.Context) bool { return true },
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Close releases the store connections.
func (b *Backend) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
