package attendance_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"track75/internal/account"
	"track75/internal/attendance"
	"track75/internal/queue"
	"track75/internal/store"
)

type fakeSubjects map[string][]string

func (f fakeSubjects) Subjects(_ context.Context, userID string) ([]string, error) {
	subs, ok := f[userID]
	if !ok {
		return nil, account.ErrUserNotFound
	}
	return subs, nil
}

type capturePublisher struct {
	msgs []queue.Message
	err  error
}

func (p *capturePublisher) Publish(_ context.Context, msg queue.Message) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

type failingRepo struct {
	*attendance.MemoryRepository
}

func (failingRepo) UpsertRecord(context.Context, attendance.Record) error {
	return store.Unavailable(errors.New("connection refused"))
}

func newService(t *testing.T) (*attendance.Service, *attendance.MemoryRepository, *capturePublisher) {
	t.Helper()
	repo := attendance.NewMemoryRepository()
	pub := &capturePublisher{}
	subjects := fakeSubjects{"u1": {"Math", "Physics", "Chemistry"}}
	return attendance.NewService(repo, subjects, pub), repo, pub
}

func TestRecord_BuildsEntriesInSubjectOrder(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	rec, err := svc.Record(ctx, "u1", "2026-09-30", map[string]attendance.Status{
		"Physics": attendance.StatusAbsent,
		"Math":    attendance.StatusPresent,
	})
	require.NoError(t, err)

	want := []attendance.ClassEntry{
		{Subject: "Math", Status: attendance.StatusPresent},
		{Subject: "Physics", Status: attendance.StatusAbsent},
		{Subject: "Chemistry", Status: attendance.StatusUnset},
	}
	assert.Equal(t, want, rec.Classes)

	stored, err := repo.GetRecord(ctx, "u1", "2026-09-30")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, want, stored.Classes)
}

func TestRecord_UpsertReplacesPreviousEntries(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, "u1", "2026-09-30", map[string]attendance.Status{
		"Math":    attendance.StatusPresent,
		"Physics": attendance.StatusPresent,
	})
	require.NoError(t, err)
	_, err = svc.Record(ctx, "u1", "2026-09-30", map[string]attendance.Status{
		"Chemistry": attendance.StatusAbsent,
	})
	require.NoError(t, err)

	records, err := repo.ListRecords(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StatusUnset, records[0].StatusOf("Math"))
	assert.Equal(t, attendance.StatusUnset, records[0].StatusOf("Physics"))
	assert.Equal(t, attendance.StatusAbsent, records[0].StatusOf("Chemistry"))
}

func TestRecordToday_UsesCurrentDate(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	rec, err := svc.RecordToday(ctx, "u1", map[string]attendance.Status{"Math": attendance.StatusPresent})
	require.NoError(t, err)
	assert.Equal(t, svc.Today(), rec.Date)

	stored, err := repo.GetRecord(ctx, "u1", svc.Today())
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestRecord_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		date     string
		statuses map[string]attendance.Status
		want     error
	}{
		{"missing user", "ghost", "2026-09-30", nil, account.ErrUserNotFound},
		{"bad date", "u1", "30/09/2026", nil, attendance.ErrInvalidDate},
		{"empty date", "u1", "", nil, attendance.ErrInvalidDate},
		{"unknown subject", "u1", "2026-09-30", map[string]attendance.Status{"Biology": attendance.StatusPresent}, attendance.ErrUnknownSubject},
		{"unknown status", "u1", "2026-09-30", map[string]attendance.Status{"Math": "Late"}, attendance.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, pub := newService(t)
			_, err := svc.Record(context.Background(), tt.userID, tt.date, tt.statuses)
			require.ErrorIs(t, err, tt.want)

			records, _ := repo.ListRecords(context.Background(), tt.userID)
			assert.Empty(t, records)
			assert.Empty(t, pub.msgs)
		})
	}
}

func TestRecord_AcceptsFutureDates(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Record(context.Background(), "u1", "2099-01-01", nil)
	assert.NoError(t, err)
}

func TestRecord_StorageFailure(t *testing.T) {
	pub := &capturePublisher{}
	svc := attendance.NewService(failingRepo{attendance.NewMemoryRepository()}, fakeSubjects{"u1": {"Math"}}, pub)

	_, err := svc.Record(context.Background(), "u1", "2026-09-30", nil)
	require.ErrorIs(t, err, store.ErrUnavailable)
	assert.Empty(t, pub.msgs, "nothing is announced when the write fails")
}

func TestRecord_PublishesRecordedEvent(t *testing.T) {
	svc, _, pub := newService(t)

	_, err := svc.Record(context.Background(), "u1", "2026-09-30", map[string]attendance.Status{"Math": attendance.StatusPresent})
	require.NoError(t, err)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, queue.TypeAttendanceRecorded, pub.msgs[0].Type)

	entry, err := attendance.DecodeRecorded(pub.msgs[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "u1", entry.UserID)
	assert.Equal(t, "2026-09-30", entry.Date)
	assert.Equal(t, attendance.SourcePast, entry.Source)
	assert.Len(t, entry.Classes, 3)
}

func TestRecord_PublishFailureDoesNotFailWrite(t *testing.T) {
	repo := attendance.NewMemoryRepository()
	pub := &capturePublisher{err: errors.New("redis down")}
	svc := attendance.NewService(repo, fakeSubjects{"u1": {"Math"}}, pub)

	_, err := svc.Record(context.Background(), "u1", "2026-09-30", nil)
	require.NoError(t, err)

	rec, err := repo.GetRecord(context.Background(), "u1", "2026-09-30")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestOverview_ReadsAllRecords(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for date, st := range map[string]attendance.Status{
		"2020-01-01": attendance.StatusPresent,
		"2026-09-29": attendance.StatusAbsent,
		"2026-09-30": attendance.StatusPresent,
	} {
		_, err := svc.Record(ctx, "u1", date, map[string]attendance.Status{"Math": st})
		require.NoError(t, err)
	}

	ov, err := svc.Overview(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, ov.TotalDays)
	assert.Equal(t, 3, ov.TotalClasses)
	assert.Equal(t, 66.67, ov.OverallPercent)
	assert.Equal(t, 66.67, ov.Subjects["Math"].Percent)
	assert.Contains(t, ov.Subjects, "Physics", "unset subjects still get a row")
}

func TestStatusJSON_UnsetIsNull(t *testing.T) {
	raw, err := json.Marshal([]attendance.ClassEntry{
		{Subject: "Math", Status: attendance.StatusUnset},
		{Subject: "Art", Status: attendance.StatusNoLecture},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"subject":"Math","status":null},{"subject":"Art","status":"No Lecture Today"}]`, string(raw))

	var back []attendance.ClassEntry
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, attendance.StatusUnset, back[0].Status)
	assert.Equal(t, attendance.StatusNoLecture, back[1].Status)
}

func TestDecodeRecorded_RequiresKey(t *testing.T) {
	_, err := attendance.DecodeRecorded([]byte(`{"user_id":"u1"}`))
	assert.Error(t, err)

	_, err = attendance.DecodeRecorded([]byte(`not json`))
	assert.Error(t, err)
}
