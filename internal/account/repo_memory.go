package account

import (
	"context"
	"sync"
)

// MemoryRepository keeps accounts in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) CreateAccount(_ context.Context, acc *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[acc.Email]; ok {
		return ErrDuplicateEmail
	}
	stored := *acc
	stored.Subjects = append([]string{}, acc.Subjects...)
	r.byID[acc.ID] = stored
	r.byEmail[acc.Email] = acc.ID
	return nil
}

func (r *MemoryRepository) AccountByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return r.copyOf(id), nil
}

func (r *MemoryRepository) AccountByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(id), nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id, department string, subjects []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	acc.Department = department
	acc.Subjects = append([]string{}, subjects...)
	r.byID[id] = acc
	return nil
}

// Delete removes an account. Only the in-memory backend supports it.
func (r *MemoryRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acc, ok := r.byID[id]; ok {
		delete(r.byEmail, acc.Email)
		delete(r.byID, id)
	}
}

// copyOf must be called with mu held.
func (r *MemoryRepository) copyOf(id string) *Account {
	acc, ok := r.byID[id]
	if !ok {
		return nil
	}
	acc.Subjects = append([]string{}, acc.Subjects...)
	return &acc
}
