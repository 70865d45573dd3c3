// Package api реализует JSON HTTP API поверх echo: вход, мастер отзывов студента,
// справочники администратора, выгрузки и сводки преподавателя.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/metrics"
	"github.com/Spok95/course-feedback/internal/models"
	"github.com/Spok95/course-feedback/internal/session"
)

// Store: операции хранилища, которые обслуживает API.
type Store interface {
	Ping(ctx context.Context) error

	ListDepartments(ctx context.Context) ([]models.Department, error)
	UpsertDepartment(ctx context.Context, d models.Department) (models.Department, error)
	DeleteDepartment(ctx context.Context, id int64) error

	ListClassrooms(ctx context.Context) ([]models.Classroom, error)
	GetClassroom(ctx context.Context, id int64) (models.Classroom, error)
	UpsertClassroom(ctx context.Context, c models.Classroom) (models.Classroom, error)
	DeleteClassroom(ctx context.Context, id int64) error

	ListSubjectsByClassroom(ctx context.Context, classroomID int64) ([]models.Subject, error)
	ListSubjectsByInstructor(ctx context.Context, facultyID int64) ([]models.Subject, error)
	UpsertSubject(ctx context.Context, s models.Subject) (models.Subject, error)
	DeleteSubject(ctx context.Context, id int64) error

	ListFaculty(ctx context.Context) ([]models.Faculty, error)
	UpsertFaculty(ctx context.Context, f models.Faculty) (models.Faculty, error)
	DeleteFaculty(ctx context.Context, id int64) error

	ListStudents(ctx context.Context) ([]models.Student, error)
	UpsertStudent(ctx context.Context, s models.Student) (models.Student, error)
	DeleteStudent(ctx context.Context, id int64) error

	ListQuestions(ctx context.Context) ([]models.Question, error)
	UpsertQuestion(ctx context.Context, q models.Question) (models.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	ListForms(ctx context.Context) ([]models.Form, error)
	ListFormsByClassroom(ctx context.Context, classroomID int64) ([]models.Form, error)
	GetForm(ctx context.Context, id int64) (models.Form, error)
	UpsertForm(ctx context.Context, f models.Form) (models.Form, error)
	DeleteForm(ctx context.Context, id int64) error

	ListResponsesByForm(ctx context.Context, formID int64) ([]models.Response, error)
	ListResponsesBySubject(ctx context.Context, subjectID int64) ([]models.Response, error)
}

// Credentials: управление паролями (identity.Service).
type Credentials interface {
	SetPassword(ctx context.Context, email, password string) error
	Remove(ctx context.Context, email string) error
}

type (
	Options struct {
		Address        string
		Debug          bool
		DisableReqLogs bool

		Store       Store
		Sessions    *session.Manager
		Feedback    *feedback.Service
		Credentials Credentials
		Log         *zap.Logger
	}

	Server interface {
		http.Handler
		Start(ctx context.Context) error
		Stop(context.Context) error
	}

	server struct {
		opts       *Options
		app        *echo.Echo
		log        *zap.Logger
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
		log:  log,
	}
	s.validate, s.translator = newValidator()
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Debug = s.opts.Debug
	s.app.Validator = &echoValidator{validate: s.validate}
	s.app.HTTPErrorHandler = newHTTPErrorHandler(s.log, s.translator)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(requestLogger(s.log, s.opts.DisableReqLogs))
	s.app.Use(middleware.Recover())

	s.app.GET("/", home)
	s.app.GET("/healthz", s.healthz)
	s.app.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	g := s.app.Group("/api")
	authed := sessionAuth(s.opts.Sessions)

	registerAuthAPI(g, authed, s)
	registerStudentAPI(g.Group("/student", authed, requireRole(models.RoleStudent)), s)
	registerAdminAPI(g.Group("/admin", authed, requireRole(models.RoleAdmin)), s)
	registerFacultyAPI(g.Group("/faculty", authed, requireRole(models.RoleFaculty)), s)
}

// Start слушает Address до отмены ctx (затем мягкая остановка).
func (s *server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.Stop(shCtx)
	}()
	s.log.Info("http server listening", zap.String("addr", s.opts.Address))
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(c echo.Context) error {
	return c.String(http.StatusOK, "Rate My Instructor API")
}

func (s *server) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := s.opts.Store.Ping(ctx); err != nil {
		return c.String(http.StatusServiceUnavailable, "db not ok: "+err.Error())
	}
	metrics.ObserveDBPing(time.Since(t0))
	return c.String(http.StatusOK, "ok")
}
