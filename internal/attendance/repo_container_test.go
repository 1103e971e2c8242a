//go:build container

package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"track75/internal/account"
	"track75/internal/attendance"
	"track75/internal/testhelpers"
)

func TestPostgresRepository(t *testing.T) {
	db := testhelpers.Postgres(t)

	// attendance rows reference accounts
	require.NoError(t, account.NewPostgresRepository(db).CreateAccount(context.Background(), &account.Account{
		ID:           "u1",
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}))
	exerciseRepository(t, attendance.NewPostgresRepository(db), "u1")
}

func TestMongoRepository(t *testing.T) {
	exerciseRepository(t, attendance.NewMongoRepository(testhelpers.Mongo(t)), "u1")
}

func exerciseRepository(t *testing.T, repo attendance.Repository, userID string) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	missing, err := repo.GetRecord(ctx, userID, "2026-10-01")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.UpsertRecord(ctx, attendance.Record{
		UserID: userID,
		Date:   "2026-10-01",
		Classes: []attendance.ClassEntry{
			{Subject: "Math", Status: attendance.StatusPresent},
			{Subject: "Art", Status: attendance.StatusPresent},
		},
		UpdatedAt: base,
	}))
	replacement := []attendance.ClassEntry{
		{Subject: "Math", Status: attendance.StatusAbsent},
		{Subject: "Art", Status: attendance.StatusUnset},
	}
	require.NoError(t, repo.UpsertRecord(ctx, attendance.Record{
		UserID:    userID,
		Date:      "2026-10-01",
		Classes:   replacement,
		UpdatedAt: base.Add(time.Hour),
	}))

	got, err := repo.GetRecord(ctx, userID, "2026-10-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, replacement, got.Classes, "second write replaces the whole day")

	require.NoError(t, repo.UpsertRecord(ctx, attendance.Record{
		UserID:    userID,
		Date:      "2026-09-30",
		Classes:   []attendance.ClassEntry{{Subject: "Math", Status: attendance.StatusNoLecture}},
		UpdatedAt: base,
	}))
	records, err := repo.ListRecords(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 2, "one record per user and date")
	assert.Equal(t, "2026-09-30", records[0].Date)
	assert.Equal(t, "2026-10-01", records[1].Date)

	others, err := repo.ListRecords(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)

	older := attendance.AuditEntry{
		ID:          "a1",
		UserID:      userID,
		Date:        "2026-10-01",
		Classes:     []attendance.ClassEntry{{Subject: "Math", Status: attendance.StatusPresent}},
		Source:      attendance.SourceToday,
		SubmittedAt: base,
	}
	newer := older
	newer.ID = "a2"
	newer.Source = attendance.SourcePast
	newer.SubmittedAt = base.Add(time.Hour)
	require.NoError(t, repo.AppendAudit(ctx, older))
	require.NoError(t, repo.AppendAudit(ctx, newer))
	require.NoError(t, repo.AppendAudit(ctx, older), "redelivered entries are ignored")

	entries, err := repo.ListAudit(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a2", entries[0].ID, "newest first")
	assert.Equal(t, older.Classes, entries[1].Classes)

	entries, err = repo.ListAudit(ctx, userID, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
