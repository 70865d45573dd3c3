package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrMissingEmail       = errors.New("email is required")
)

const MinPasswordLen = 6

type CredentialStore interface {
	GetCredential(ctx context.Context, email string) (models.Credential, error)
	UpsertCredential(ctx context.Context, email string, hash []byte) error
	DeleteCredential(ctx context.Context, email string) error
}

// Service проверяет пароль и управляет учётными данными.
type Service struct {
	store CredentialStore
	cost  int
}

func NewService(store CredentialStore) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

// WithCost: для тестов (bcrypt.MinCost).
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// Authenticate: неизвестный email и неверный пароль неразличимы для вызывающего.
func (s *Service) Authenticate(ctx context.Context, email, password string) error {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return ErrInvalidCredentials
	}
	c, err := s.store.GetCredential(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return ErrMissingEmail
	}
	if len(password) < MinPasswordLen {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpsertCredential(ctx, email, hash)
}

func (s *Service) Remove(ctx context.Context, email string) error {
	return s.store.DeleteCredential(ctx, models.NormalizeEmail(email))
}
