package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"track75/internal/queue"
)

var (
	// ErrInvalidDate is returned when a date is not formatted as YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrUnknownSubject is returned when a status is submitted for a subject
	// that is not on the user's list.
	ErrUnknownSubject = errors.New("unknown subject")
)

// SubjectLister resolves a user's registered subjects.
type SubjectLister interface {
	Subjects(ctx context.Context, userID string) ([]string, error)
}

// Publisher announces recorded attendance. queue.Queue satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service records attendance and computes overviews.
type Service struct {
	repo     Repository
	subjects SubjectLister
	events   Publisher
	now      func() time.Time
}

// NewService creates a service backed by a repository. events may be nil.
func NewService(repo Repository, subjects SubjectLister, events Publisher) *Service {
	return &Service{
		repo:     repo,
		subjects: subjects,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Today returns the current calendar date in UTC.
func (s *Service) Today() string {
	return s.now().Format(DateLayout)
}

// RecordToday records statuses for the current date.
func (s *Service) RecordToday(ctx context.Context, userID string, statuses map[string]Status) (Record, error) {
	return s.record(ctx, userID, s.Today(), statuses, SourceToday)
}

// Record records statuses for an explicit date, replacing whatever was stored
// for that day.
func (s *Service) Record(ctx context.Context, userID, date string, statuses map[string]Status) (Record, error) {
	return s.record(ctx, userID, date, statuses, SourcePast)
}

func (s *Service) record(ctx context.Context, userID, date string, statuses map[string]Status, source string) (Record, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	subjects, err := s.subjects.Subjects(ctx, userID)
	if err != nil {
		return Record{}, err
	}

	known := make(map[string]struct{}, len(subjects))
	for _, sub := range subjects {
		known[sub] = struct{}{}
	}
	for sub, st := range statuses {
		if _, ok := known[sub]; !ok {
			return Record{}, fmt.Errorf("%w: %q", ErrUnknownSubject, sub)
		}
		if !st.Valid() {
			return Record{}, fmt.Errorf("%w: %q", ErrInvalidStatus, st)
		}
	}

	rec := Record{
		UserID:    userID,
		Date:      date,
		Classes:   make([]ClassEntry, 0, len(subjects)),
		UpdatedAt: s.now(),
	}
	for _, sub := range subjects {
		rec.Classes = append(rec.Classes, ClassEntry{Subject: sub, Status: statuses[sub]})
	}
	if err := s.repo.UpsertRecord(ctx, rec); err != nil {
		return Record{}, err
	}

	s.announce(ctx, AuditEntry{
		UserID:      rec.UserID,
		Date:        rec.Date,
		Classes:     rec.Classes,
		Source:      source,
		SubmittedAt: rec.UpdatedAt,
	})
	return rec, nil
}

// announce publishes the submission; failures are logged, not returned.
func (s *Service) announce(ctx context.Context, entry AuditEntry) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(entry)
	if err != nil {
		log.Printf("encode recorded event: %v", err)
		return
	}
	if err := s.events.Publish(ctx, queue.Message{Type: queue.TypeAttendanceRecorded, Body: body}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

// Get returns the stored record for a date, or nil.
func (s *Service) Get(ctx context.Context, userID, date string) (*Record, error) {
	return s.repo.GetRecord(ctx, userID, date)
}

// Overview recomputes the aggregate from every record the user has.
func (s *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	records, err := s.repo.ListRecords(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	return ComputeOverview(records), nil
}

// History returns the most recent submissions, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]AuditEntry, error) {
	return s.repo.ListAudit(ctx, userID, limit)
}

// DecodeRecorded parses the body of an attendance.recorded message.
func DecodeRecorded(body []byte) (AuditEntry, error) {
	var entry AuditEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return AuditEntry{}, err
	}
	if entry.UserID == "" || entry.Date == "" {
		return AuditEntry{}, errors.New("recorded event missing user or date")
	}
	return entry, nil
}
