package attendance

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type recordKey struct {
	userID string
	date   string
}

// MemoryRepository keeps records in process memory. Used for local runs and
// tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[recordKey]Record
	audit   []AuditEntry
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[recordKey]Record)}
}

func (r *MemoryRepository) UpsertRecord(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Classes = cloneClasses(rec.Classes)
	r.records[recordKey{rec.UserID, rec.Date}] = rec
	return nil
}

func (r *MemoryRepository) GetRecord(_ context.Context, userID, date string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[recordKey{userID, date}]
	if !ok {
		return nil, nil
	}
	rec.Classes = cloneClasses(rec.Classes)
	return &rec, nil
}

func (r *MemoryRepository) ListRecords(_ context.Context, userID string) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []Record
	for key, rec := range r.records {
		if key.userID != userID {
			continue
		}
		rec.Classes = cloneClasses(rec.Classes)
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date < res[j].Date })
	return res, nil
}

func (r *MemoryRepository) AppendAudit(_ context.Context, entry AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Classes = cloneClasses(entry.Classes)
	r.audit = append(r.audit, entry)
	return nil
}

func (r *MemoryRepository) ListAudit(_ context.Context, userID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []AuditEntry
	for i := len(r.audit) - 1; i >= 0 && len(res) < limit; i-- {
		if r.audit[i].UserID == userID {
			e := r.audit[i]
			e.Classes = cloneClasses(e.Classes)
			res = append(res, e)
		}
	}
	return res, nil
}

func cloneClasses(classes []ClassEntry) []ClassEntry {
	if classes == nil {
		return nil
	}
	out := make([]ClassEntry, len(classes))
	copy(out, classes)
	return out
}
