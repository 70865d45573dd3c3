package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Spok95/course-feedback/internal/ctxutil"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrResponseExists = errors.New("response already exists")
	ErrConflict       = errors.New("conflicting row")
	ErrReference      = errors.New("foreign key violation")
)

// Store: реляционное хранилище приложения поверх sqlx.
type Store struct {
	db *sqlx.DB
}

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// get: одна строка; отсутствие строки превращаем в ErrNotFound.
func (s *Store) get(ctx context.Context, dest any, q string, args ...any) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	if err := s.db.GetContext(ctx, dest, q, args...); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) selectAll(ctx context.Context, dest any, q string, args ...any) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return mapErr(s.db.SelectContext(ctx, dest, q, args...))
}

// exec возвращает число затронутых строк.
func (s *Store) exec(ctx context.Context, q string, args ...any) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, mapErr(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// deleteByID: delete().eq(pk); если ничего не удалили, ErrNotFound.
func (s *Store) deleteByID(ctx context.Context, q string, id int64) error {
	n, err := s.exec(ctx, q, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var code string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	}
	switch code {
	case "23505": // unique_violation
		return errors.Join(ErrConflict, err)
	case "23503": // foreign_key_violation
		return errors.Join(ErrReference, err)
	}
	return err
}
