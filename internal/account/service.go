package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MaxSubjects caps the subject list on a profile.
const MaxSubjects = 8

var (
	// ErrDuplicateEmail is returned when registering an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrPasswordMismatch is returned when the confirmation does not match.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when an account id does not resolve.
	ErrUserNotFound = errors.New("user not found")
)

// Account is a registered user.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Department   string    `json:"department,omitempty"`
	Subjects     []string  `json:"subjects"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists accounts. Lookups return nil, nil when nothing matches.
type Repository interface {
	// CreateAccount inserts acc and returns ErrDuplicateEmail on a unique
	// violation.
	CreateAccount(ctx context.Context, acc *Account) error
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByID(ctx context.Context, id string) (*Account, error)
	// UpdateProfile returns ErrUserNotFound when id does not exist.
	UpdateProfile(ctx context.Context, id, department string, subjects []string) error
}

// Service handles registration, login and profile updates.
type Service struct {
	repo Repository
	cost int
}

// NewService creates a service. A zero cost uses bcrypt.DefaultCost.
func NewService(repo Repository, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: cost}
}

// Register creates an account with a hashed password.
func (s *Service) Register(ctx context.Context, username, email, password, confirm string) (*Account, error) {
	email = strings.TrimSpace(email)
	existing, err := s.repo.AccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	acc := &Account{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		Email:        email,
		PasswordHash: string(hash),
		Subjects:     []string{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Login checks the password against the stored hash.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, error) {
	acc, err := s.repo.AccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// Get loads an account by id.
func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	acc, err := s.repo.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrUserNotFound
	}
	return acc, nil
}

// Subjects returns the account's subject list in stored order.
func (s *Service) Subjects(ctx context.Context, id string) ([]string, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return acc.Subjects, nil
}

// UpdateProfile overwrites the department and subject list.
func (s *Service) UpdateProfile(ctx context.Context, id, department string, subjects []string) ([]string, error) {
	cleaned := NormalizeSubjects(subjects)
	if err := s.repo.UpdateProfile(ctx, id, strings.TrimSpace(department), cleaned); err != nil {
		return nil, err
	}
	return cleaned, nil
}

// NormalizeSubjects trims entries, drops blanks and keeps at most MaxSubjects.
func NormalizeSubjects(raw []string) []string {
	out := make([]string, 0, MaxSubjects)
	for _, sub := range raw {
		if len(out) == MaxSubjects {
			break
		}
		if sub = strings.TrimSpace(sub); sub != "" {
			out = append(out, sub)
		}
	}
	return out
}
