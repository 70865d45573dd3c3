//go:build testutil
// +build testutil

package testdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Spok95/course-feedback/internal/db"
)

type DBHandle struct {
	DB     *sqlx.DB
	Store  *db.Store
	cancel func()
	stop   func(context.Context) error
}

func (h *DBHandle) Close() {
	if h.DB != nil {
		_ = h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start поднимает postgres в контейнере и накатывает миграции приложения.
func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("feedback"),
		postgres.WithUsername("feedback"),
		postgres.WithPassword("feedback"),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	fail := func(err error) (*DBHandle, error) {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(err)
	}
	conn, err := sqlx.Open("postgres", uri)
	if err != nil {
		return fail(err)
	}
	if err := waitReady(ctx, conn); err != nil {
		_ = conn.Close()
		return fail(err)
	}
	if err := db.Migrate(ctx, conn.DB); err != nil {
		_ = conn.Close()
		return fail(fmt.Errorf("migrate: %w", err))
	}

	return &DBHandle{
		DB:     conn,
		Store:  db.NewStore(conn),
		cancel: cancel,
		stop:   pg.Terminate,
	}, nil
}

// Reset очищает все таблицы между тестами.
func (h *DBHandle) Reset(ctx context.Context) error {
	_, err := h.DB.ExecContext(ctx, `
		TRUNCATE response_table, form_table, question_table, classroom_subjects,
		         admin_table, student_table, faculty_table, classroom_table,
		         department_table, credentials
		RESTART IDENTITY CASCADE`)
	return err
}

func waitReady(ctx context.Context, conn *sqlx.DB) error {
	dead := time.Now().Add(20 * time.Second)
	for time.Now().Before(dead) {
		if err := conn.PingContext(ctx); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("db not ready")
}
