//go:build container

// Package testhelpers starts throwaway Postgres and Mongo containers for the
// repository integration tests.
//
// Requirements:
//   - Docker daemon running and accessible
//   - go test -tags container ./...
package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"

	"track75/internal/store"
)

// Postgres starts a migrated Postgres and returns a pool connected to it.
func Postgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	c := start(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "track75",
			"POSTGRES_PASSWORD": "track75",
			"POSTGRES_DB":       "track75",
		},
		// postgres logs this once for the init server and once for the real one
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	})
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://track75:track75@%s:%s/track75?sslmode=disable", host, port.Port())
	db, err := store.NewDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, store.MigratePostgres(ctx, db.Client))
	return db.Client
}

// Mongo starts a Mongo server and returns an indexed database on it.
func Mongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	c := start(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(time.Minute),
	})
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	m, err := store.NewMongo(ctx, fmt.Sprintf("mongodb://%s:%s/", host, port.Port()), "tracker75_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, store.EnsureMongoIndexes(ctx, m.DB))
	return m.DB
}

func start(t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	c, err := testcontainers.GenericContainer(context.Background(), testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start %s", req.Image)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate %s: %v", req.Image, err)
		}
	})
	return c
}
