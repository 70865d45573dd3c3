package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/models"
)

func registerFacultyAPI(g *echo.Group, s *server) {
	g.GET("/subjects", s.facultySubjects)
	g.GET("/subjects/:id/summary", s.subjectSummary)
}

func currentFaculty(c echo.Context) models.Faculty {
	if f := currentSession(c).Account.Faculty; f != nil {
		return *f
	}
	return models.Faculty{}
}

func (s *server) facultySubjects(c echo.Context) error {
	f := currentFaculty(c)
	subs, err := s.opts.Store.ListSubjectsByInstructor(c.Request().Context(), f.ID)
	if err != nil {
		return fmt.Errorf("list subjects of faculty %d: %w", f.ID, err)
	}
	if subs == nil {
		subs = []models.Subject{}
	}
	return c.JSON(http.StatusOK, subs)
}

// subjectSummary: распределение вариантов по вопросам. Только для своих предметов.
func (s *server) subjectSummary(c echo.Context) error {
	subjectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	f := currentFaculty(c)

	subs, err := s.opts.Store.ListSubjectsByInstructor(ctx, f.ID)
	if err != nil {
		return fmt.Errorf("list subjects of faculty %d: %w", f.ID, err)
	}
	var subject *models.Subject
	for i := range subs {
		if subs[i].ID == subjectID {
			subject = &subs[i]
			break
		}
	}
	if subject == nil {
		return db.ErrNotFound
	}

	var (
		questions []models.Question
		responses []models.Response
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		questions, err = s.opts.Store.ListQuestions(gctx)
		return err
	})
	g.Go(func() (err error) {
		responses, err = s.opts.Store.ListResponsesBySubject(gctx, subjectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load summary of subject %d: %w", subjectID, err)
	}
	return c.JSON(http.StatusOK, feedback.Summarize(*subject, questions, responses))
}
