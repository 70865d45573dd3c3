package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/models"
)

type answerRequest struct {
	Epoch      uint64 `json:"epoch" validate:"required"`
	QuestionID int64  `json:"question_id" validate:"required,gt=0"`
	Option     string `json:"option" validate:"notblank"`
}

type epochRequest struct {
	Epoch uint64 `json:"epoch" validate:"required"`
}

// stepResponse: исход действия и (если мастер жив) снимок текущего шага.
type stepResponse struct {
	Outcome    feedback.Outcome `json:"outcome"`
	ToFormList bool             `json:"to_form_list"`
	Message    string           `json:"message,omitempty"`
	NoSubjects bool             `json:"no_subjects,omitempty"`
	Step       *feedback.View   `json:"step,omitempty"`
}

func registerStudentAPI(g *echo.Group, s *server) {
	g.GET("/forms", s.studentForms)

	fg := g.Group("/forms/:id")
	fg.POST("/start", s.startWizard)
	fg.GET("/step", s.currentStep)
	fg.PUT("/answers", s.selectAnswer)
	fg.POST("/submit", s.submitStep)
	fg.POST("/next", s.nextStep)
	fg.POST("/back", s.backStep)
	fg.POST("/reload", s.reloadStep)
	fg.DELETE("/response", s.deleteResponse)
}

func currentStudent(c echo.Context) models.Student {
	if st := currentSession(c).Account.Student; st != nil {
		return *st
	}
	return models.Student{}
}

func (s *server) studentForms(c echo.Context) error {
	st := currentStudent(c)
	forms, err := s.opts.Store.ListFormsByClassroom(c.Request().Context(), st.ClassroomID)
	if err != nil {
		return fmt.Errorf("list forms of classroom %d: %w", st.ClassroomID, err)
	}
	return c.JSON(http.StatusOK, forms)
}

// startWizard монтирует первый предмет формы. Форма чужого класса для студента не существует.
func (s *server) startWizard(c echo.Context) error {
	formID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	st := currentStudent(c)

	form, err := s.opts.Store.GetForm(ctx, formID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && form.ClassroomID != st.ClassroomID) {
		return feedback.ErrFormNotFound
	}
	if err != nil {
		return fmt.Errorf("get form %d: %w", formID, err)
	}

	w, err := s.opts.Feedback.Start(context.WithoutCancel(ctx), formID, st.ID)
	if errors.Is(err, feedback.ErrNoSubjects) {
		return c.JSON(http.StatusOK, stepResponse{NoSubjects: true, Message: feedback.MsgNoSubjects})
	}
	if err != nil {
		return err
	}
	if err := s.opts.Sessions.SetWizard(currentSession(c).Token, formID, w); err != nil {
		w.Close()
		return err
	}
	v := w.View()
	return c.JSON(http.StatusOK, stepResponse{Step: &v})
}

func (s *server) wizard(c echo.Context) (*feedback.Wizard, int64, error) {
	formID, err := pathID(c, "id")
	if err != nil {
		return nil, 0, err
	}
	w, ok := s.opts.Sessions.Wizard(currentSession(c).Token, formID)
	if !ok {
		return nil, 0, errWizardNotStarted
	}
	return w, formID, nil
}

// step: шаг мастера, если клиент действует в актуальной эпохе.
func (s *server) step(c echo.Context, epoch uint64) (*feedback.Wizard, *feedback.Step, int64, error) {
	w, formID, err := s.wizard(c)
	if err != nil {
		return nil, nil, 0, err
	}
	st, err := w.Step(epoch)
	if err != nil {
		return nil, nil, 0, err
	}
	return w, st, formID, nil
}

func (s *server) currentStep(c echo.Context) error {
	w, _, err := s.wizard(c)
	if err != nil {
		return err
	}
	v := w.View()
	return c.JSON(http.StatusOK, stepResponse{Step: &v})
}

func (s *server) selectAnswer(c echo.Context) error {
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("binding to answerRequest: %w", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	_, st, _, err := s.step(c, req.Epoch)
	if err != nil {
		return err
	}
	if err := st.Select(req.QuestionID, req.Option); err != nil {
		return err
	}
	v := st.View()
	return c.JSON(http.StatusOK, stepResponse{Step: &v})
}

func (s *server) bindEpoch(c echo.Context) (uint64, error) {
	var req epochRequest
	if err := c.Bind(&req); err != nil {
		return 0, fmt.Errorf("binding to epochRequest: %w", err)
	}
	if err := c.Validate(&req); err != nil {
		return 0, err
	}
	return req.Epoch, nil
}

func (s *server) submitStep(c echo.Context) error {
	epoch, err := s.bindEpoch(c)
	if err != nil {
		return err
	}
	w, st, formID, err := s.step(c, epoch)
	if err != nil {
		return err
	}
	out, err := st.Submit(context.WithoutCancel(c.Request().Context()))
	if err != nil && out == feedback.OutcomeNone {
		if st.View().Error == feedback.MsgSaveFailed {
			// ответы сохранены в шаге, можно повторить отправку
			return echo.NewHTTPError(http.StatusServiceUnavailable, feedback.MsgSaveFailed).SetInternal(err)
		}
		return err
	}
	return s.navigated(c, w, formID, out, err, feedback.MsgSubmitted)
}

// nextStep: пропуск уже отправленного предмета.
func (s *server) nextStep(c echo.Context) error {
	epoch, err := s.bindEpoch(c)
	if err != nil {
		return err
	}
	w, st, formID, err := s.step(c, epoch)
	if err != nil {
		return err
	}
	if st.State() != feedback.StateAlreadySubmitted {
		return errSubmitFirst
	}
	out, err := w.Advance(context.WithoutCancel(c.Request().Context()))
	if err != nil && out == feedback.OutcomeNone {
		return err
	}
	return s.navigated(c, w, formID, out, err, "")
}

func (s *server) backStep(c echo.Context) error {
	epoch, err := s.bindEpoch(c)
	if err != nil {
		return err
	}
	w, st, formID, err := s.step(c, epoch)
	if err != nil {
		return err
	}
	out, err := st.Back(context.WithoutCancel(c.Request().Context()))
	if err != nil && out == feedback.OutcomeNone {
		return err
	}
	return s.navigated(c, w, formID, out, err, "")
}

func (s *server) reloadStep(c echo.Context) error {
	w, formID, err := s.wizard(c)
	if err != nil {
		return err
	}
	err = w.Reload(context.WithoutCancel(c.Request().Context()))
	if errors.Is(err, feedback.ErrStaleStep) {
		return err
	}
	return s.navigated(c, w, formID, feedback.OutcomeNone, err, "")
}

// deleteResponse: ?epoch=N&confirm=true. Без confirm ничего не удаляется.
func (s *server) deleteResponse(c echo.Context) error {
	epoch, err := strconv.ParseUint(c.QueryParam("epoch"), 10, 64)
	if err != nil {
		return newValidationError(err, FieldError{Field: "epoch", Error: "epoch is required"})
	}
	confirmed, _ := strconv.ParseBool(c.QueryParam("confirm"))

	w, st, formID, err := s.step(c, epoch)
	if err != nil {
		return err
	}
	out, err := st.DeleteResponse(c.Request().Context(), confirmed)
	if err != nil {
		return err
	}
	return s.navigated(c, w, formID, out, nil, feedback.MsgDeleted)
}

// navigated отдаёт исход навигации. Ошибка загрузки нового шага не фатальна:
// шаг остаётся с load_failed, клиент может вызвать /reload.
func (s *server) navigated(c echo.Context, w *feedback.Wizard, formID int64, out feedback.Outcome, loadErr error, msg string) error {
	if loadErr != nil {
		if errors.Is(loadErr, feedback.ErrStaleStep) {
			return loadErr
		}
		s.log.Warn("step load failed", zap.Int64("form_id", formID), zap.Error(loadErr))
	}
	resp := stepResponse{Outcome: out, ToFormList: out.ToFormList()}
	switch out {
	case feedback.OutcomeCompleted, feedback.OutcomeDeleted:
		s.opts.Sessions.DropWizard(currentSession(c).Token, formID)
		resp.Message = msg
		return c.JSON(http.StatusOK, resp)
	case feedback.OutcomeAdvanced:
		resp.Message = msg
	}
	v := w.View()
	resp.Step = &v
	return c.JSON(http.StatusOK, resp)
}
