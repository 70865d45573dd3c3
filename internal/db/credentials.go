package db

import (
	"context"

	"github.com/Spok95/course-feedback/internal/models"
)

func (s *Store) GetCredential(ctx context.Context, email string) (models.Credential, error) {
	var c models.Credential
	err := s.get(ctx, &c, `
		SELECT email, password_hash, created_at, updated_at FROM credentials WHERE email = $1`,
		models.NormalizeEmail(email))
	return c, err
}

func (s *Store) UpsertCredential(ctx context.Context, email string, hash []byte) error {
	_, err := s.exec(ctx, `
		INSERT INTO credentials (email, password_hash) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()`,
		models.NormalizeEmail(email), hash)
	return err
}

func (s *Store) DeleteCredential(ctx context.Context, email string) error {
	n, err := s.exec(ctx, `DELETE FROM credentials WHERE email = $1`, models.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
