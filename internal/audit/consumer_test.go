package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"track75/internal/attendance"
	"track75/internal/audit"
	"track75/internal/queue"
)

type brokenSink struct{}

func (brokenSink) AppendAudit(context.Context, attendance.AuditEntry) error {
	return errors.New("disk full")
}

func recorded(t *testing.T, entry attendance.AuditEntry) queue.Message {
	t.Helper()
	body, err := json.Marshal(entry)
	require.NoError(t, err)
	return queue.Message{Type: queue.TypeAttendanceRecorded, Body: body}
}

func TestHandle(t *testing.T) {
	repo := attendance.NewMemoryRepository()
	ctx := context.Background()
	submitted := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

	msg := recorded(t, attendance.AuditEntry{
		UserID:      "u1",
		Date:        "2026-10-01",
		Source:      attendance.SourceToday,
		SubmittedAt: submitted,
		Classes:     []attendance.ClassEntry{{Subject: "Math", Status: attendance.StatusPresent}},
	})
	require.NoError(t, audit.Handle(ctx, repo, msg))
	require.NoError(t, audit.Handle(ctx, repo, queue.Message{Type: "something.else", Body: []byte("x")}))
	assert.Error(t, audit.Handle(ctx, repo, queue.Message{Type: queue.TypeAttendanceRecorded, Body: []byte("{")}))

	entries, err := repo.ListAudit(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "2026-10-01", entries[0].Date)
	assert.True(t, submitted.Equal(entries[0].SubmittedAt))
	assert.Equal(t, attendance.StatusPresent, entries[0].Classes[0].Status)

	assert.Error(t, audit.Handle(ctx, brokenSink{}, msg))
}

func TestRun_DrainsQueue(t *testing.T) {
	repo := attendance.NewMemoryRepository()
	q := queue.NewInMemory(8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- audit.Run(ctx, q, repo) }()

	for _, date := range []string{"2026-10-01", "2026-10-02"} {
		require.NoError(t, q.Publish(ctx, recorded(t, attendance.AuditEntry{UserID: "u1", Date: date})))
	}

	assert.Eventually(t, func() bool {
		entries, _ := repo.ListAudit(context.Background(), "u1", 10)
		return len(entries) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	entries, err := repo.ListAudit(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-02", entries[0].Date, "newest first")
}
