package attendance

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date format records are keyed by.
const DateLayout = "2006-01-02"

// Status is the outcome of a single class on a given day.
type Status string

const (
	StatusUnset     Status = ""
	StatusPresent   Status = "Present"
	StatusAbsent    Status = "Absent"
	StatusCancelled Status = "Cancelled"
	StatusNoLecture Status = "No Lecture Today"
)

// Statuses lists the selectable values in the order the forms show them.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusCancelled, StatusNoLecture}

// Valid reports whether s is unset or one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnset, StatusPresent, StatusAbsent, StatusCancelled, StatusNoLecture:
		return true
	}
	return false
}

// Skipped reports whether the class did not take place and must be left out
// of every total.
func (s Status) Skipped() bool {
	return s == StatusCancelled || s == StatusNoLecture
}

// MarshalJSON writes an unset status as null.
func (s Status) MarshalJSON() ([]byte, error) {
	if s == StatusUnset {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null as unset.
func (s *Status) UnmarshalJSON(b []byte) error {
	var v *string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*s = StatusUnset
		return nil
	}
	*s = Status(*v)
	return nil
}

// ClassEntry is one subject's status within a day's record.
type ClassEntry struct {
	Subject string `json:"subject"`
	Status  Status `json:"status"`
}

// Record holds one user's statuses for one calendar date.
type Record struct {
	UserID    string       `json:"user_id"`
	Date      string       `json:"date"`
	Classes   []ClassEntry `json:"classes"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// StatusOf returns the stored status for subject, or unset.
func (r Record) StatusOf(subject string) Status {
	for _, c := range r.Classes {
		if c.Subject == subject {
			return c.Status
		}
	}
	return StatusUnset
}

// Submission sources.
const (
	SourceToday = "today"
	SourcePast  = "past"
)

// AuditEntry is an append-only copy of one attendance submission.
type AuditEntry struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Date        string       `json:"date"`
	Classes     []ClassEntry `json:"classes"`
	Source      string       `json:"source"`
	SubmittedAt time.Time    `json:"submitted_at"`
}
