package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/course-feedback/internal/export"
	"github.com/Spok95/course-feedback/internal/identity"
	"github.com/Spok95/course-feedback/internal/models"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type credentialRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"notblank"`
}

func registerAdminAPI(g *echo.Group, s *server) {
	st := s.opts.Store

	g.GET("/departments", listHandler(st.ListDepartments))
	g.POST("/departments", upsertHandler(st.UpsertDepartment))
	g.DELETE("/departments/:id", deleteHandler(st.DeleteDepartment))

	g.GET("/classrooms", listHandler(st.ListClassrooms))
	g.POST("/classrooms", upsertHandler(st.UpsertClassroom))
	g.DELETE("/classrooms/:id", deleteHandler(st.DeleteClassroom))

	g.GET("/subjects", s.listSubjects)
	g.POST("/subjects", upsertHandler(st.UpsertSubject))
	g.DELETE("/subjects/:id", deleteHandler(st.DeleteSubject))

	g.GET("/faculty", listHandler(st.ListFaculty))
	g.POST("/faculty", upsertHandler(st.UpsertFaculty))
	g.DELETE("/faculty/:id", deleteHandler(st.DeleteFaculty))

	g.GET("/students", listHandler(st.ListStudents))
	g.POST("/students", upsertHandler(st.UpsertStudent))
	g.DELETE("/students/:id", deleteHandler(st.DeleteStudent))

	g.GET("/questions", listHandler(st.ListQuestions))
	g.POST("/questions", upsertHandler(st.UpsertQuestion))
	g.DELETE("/questions/:id", deleteHandler(st.DeleteQuestion))

	g.GET("/forms", listHandler(st.ListForms))
	g.POST("/forms", upsertHandler(st.UpsertForm))
	g.DELETE("/forms/:id", deleteHandler(st.DeleteForm))
	g.GET("/forms/:id/responses", s.formResponses)
	g.GET("/forms/:id/responses.xlsx", s.exportResponses)

	g.PUT("/credentials", s.setCredential)
	g.DELETE("/credentials/:email", s.removeCredential)
}

func listHandler[T any](list func(context.Context) ([]T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := list(c.Request().Context())
		if err != nil {
			return err
		}
		if items == nil {
			items = []T{}
		}
		return c.JSON(http.StatusOK, items)
	}
}

// upsertHandler: нулевой id означает создание, иначе обновление.
func upsertHandler[T any](upsert func(context.Context, T) (T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		var item T
		if err := c.Bind(&item); err != nil {
			return fmt.Errorf("binding to %T: %w", item, err)
		}
		if err := c.Validate(&item); err != nil {
			return err
		}
		saved, err := upsert(c.Request().Context(), item)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, saved)
	}
}

func deleteHandler(del func(context.Context, int64) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		if err := del(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *server) listSubjects(c echo.Context) error {
	classroomID, err := strconv.ParseInt(c.QueryParam("classroom_id"), 10, 64)
	if err != nil || classroomID <= 0 {
		return newValidationError(errors.New("classroom_id is required"),
			FieldError{Field: "classroom_id", Error: "classroom_id is required"})
	}
	return listHandler(func(ctx context.Context) ([]models.Subject, error) {
		return s.opts.Store.ListSubjectsByClassroom(ctx, classroomID)
	})(c)
}

func (s *server) formResponses(c echo.Context) error {
	formID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.opts.Store.GetForm(ctx, formID); err != nil {
		return err
	}
	rs, err := s.opts.Store.ListResponsesByForm(ctx, formID)
	if err != nil {
		return fmt.Errorf("list responses of form %d: %w", formID, err)
	}
	if sub := c.QueryParam("subject_id"); sub != "" {
		subjectID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return newValidationError(err, FieldError{Field: "subject_id", Error: "subject_id must be a number"})
		}
		filtered := rs[:0]
		for _, r := range rs {
			if r.SubjectID == subjectID {
				filtered = append(filtered, r)
			}
		}
		rs = filtered
	}
	if rs == nil {
		rs = []models.Response{}
	}
	return c.JSON(http.StatusOK, rs)
}

func (s *server) exportResponses(c echo.Context) error {
	formID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	st := s.opts.Store

	form, err := st.GetForm(ctx, formID)
	if err != nil {
		return err
	}
	d := export.Dataset{Form: form}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Classroom, err = st.GetClassroom(gctx, form.ClassroomID)
		return err
	})
	g.Go(func() (err error) {
		d.Questions, err = st.ListQuestions(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Subjects, err = st.ListSubjectsByClassroom(gctx, form.ClassroomID)
		return err
	})
	g.Go(func() error {
		all, err := st.ListStudents(gctx)
		for _, stu := range all {
			if stu.ClassroomID == form.ClassroomID {
				d.Students = append(d.Students, stu)
			}
		}
		return err
	})
	g.Go(func() (err error) {
		d.Responses, err = st.ListResponsesByForm(gctx, formID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load export data for form %d: %w", formID, err)
	}

	f, err := export.ResponsesWorkbook(d)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	name := export.ResponsesFilename(form.Name)
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, xlsxMIME)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	res.WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(res); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (s *server) setCredential(c echo.Context) error {
	var req credentialRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("binding to credentialRequest: %w", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	err := s.opts.Credentials.SetPassword(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrWeakPassword) {
		return newValidationError(err, FieldError{Field: "password", Error: err.Error()})
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *server) removeCredential(c echo.Context) error {
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil || email == "" {
		return newValidationError(errors.New("email is required"), FieldError{Field: "email", Error: "email is required"})
	}
	if err := s.opts.Credentials.Remove(c.Request().Context(), email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
