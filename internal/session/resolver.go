package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/identity"
	"github.com/Spok95/course-feedback/internal/models"
)

var (
	ErrAuthFailure     = errors.New("authentication failed")
	ErrAccountNotFound = errors.New("user not found")
	ErrStorage         = errors.New("storage unavailable")
	ErrNoSession       = errors.New("session not found or expired")
)

// AuthError: отказ проверки пароля; Message показываем пользователю как есть.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Is(target error) bool { return target == ErrAuthFailure }

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) error
}

// Directory ищет профиль по email в таблицах ролей; нет строки означает db.ErrNotFound.
type Directory interface {
	FacultyByEmail(ctx context.Context, email string) (models.Faculty, error)
	StudentByEmail(ctx context.Context, email string) (models.Student, error)
	AdminByEmail(ctx context.Context, email string) (models.Admin, error)
}

type Resolver struct {
	auth Authenticator
	dir  Directory
	log  *zap.Logger
}

func NewResolver(auth Authenticator, dir Directory, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{auth: auth, dir: dir, log: log}
}

// Resolve проверяет пароль и определяет роль: faculty > student > admin.
func (r *Resolver) Resolve(ctx context.Context, email, password string) (models.Account, error) {
	email = models.NormalizeEmail(email)
	if err := r.auth.Authenticate(ctx, email, password); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return models.Account{}, &AuthError{Message: err.Error()}
		}
		return models.Account{}, fmt.Errorf("%w: authenticate: %w", ErrStorage, err)
	}

	var (
		fac                    models.Faculty
		stu                    models.Student
		adm                    models.Admin
		hasFac, hasStu, hasAdm bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.dir.FacultyByEmail(gctx, email)
		fac, hasFac = v, err == nil
		return absent(err, "faculty")
	})
	g.Go(func() error {
		v, err := r.dir.StudentByEmail(gctx, email)
		stu, hasStu = v, err == nil
		return absent(err, "student")
	})
	g.Go(func() error {
		v, err := r.dir.AdminByEmail(gctx, email)
		adm, hasAdm = v, err == nil
		return absent(err, "admin")
	})
	if err := g.Wait(); err != nil {
		r.log.Error("role lookup failed", zap.String("email", email), zap.Error(err))
		return models.Account{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	switch {
	case hasFac:
		return models.FacultyAccount(fac), nil
	case hasStu:
		return models.StudentAccount(stu), nil
	case hasAdm:
		return models.AdminAccount(adm), nil
	}
	return models.Account{}, ErrAccountNotFound
}

// absent: «нет строки» не считается ошибкой.
func absent(err error, table string) error {
	if err == nil || errors.Is(err, db.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%s lookup: %w", table, err)
}
