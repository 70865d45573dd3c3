package feedback

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/metrics"
	"github.com/Spok95/course-feedback/internal/models"
)

// Step: один смонтированный предмет. Все поля защищены мьютексом мастера.
type Step struct {
	w     *Wizard
	ctx   context.Context
	epoch uint64
	index int

	state     State
	subject   models.Subject
	faculty   models.Faculty
	questions []models.Question
	selected  map[int64]string
	existing  *models.Response
	errMsg    string
	loadErr   error
}

// View: снимок шага для UI.
type View struct {
	Epoch            uint64            `json:"epoch"`
	Step             int               `json:"step"`
	Total            int               `json:"total"`
	IsFirstStep      bool              `json:"is_first_step"`
	IsLastStep       bool              `json:"is_last_step"`
	State            State             `json:"state"`
	AlreadySubmitted bool              `json:"already_submitted"`
	Subject          models.Subject    `json:"subject"`
	Faculty          models.Faculty    `json:"faculty"`
	Questions        []models.Question `json:"questions"`
	Answers          models.Answers    `json:"answers"`
	Complete         bool              `json:"complete"`
	Error            string            `json:"error,omitempty"`
	LoadFailed       bool              `json:"load_failed,omitempty"`
}

func (s *Step) Epoch() uint64 { return s.epoch }
func (s *Step) Index() int    { return s.index }

func (s *Step) key() models.ResponseKey {
	return models.ResponseKey{
		FormID:      s.w.form.ID,
		ClassroomID: s.w.form.ClassroomID,
		SubjectID:   s.subject.ID,
		StudentID:   s.w.studentID,
	}
}

func (s *Step) currentLocked() error {
	if s.w.closed || s.w.cur != s {
		return ErrStaleStep
	}
	return nil
}

func (s *Step) lastLocked() bool { return s.index == len(s.w.subjects)-1 }

func (s *Step) State() State {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return s.state
}

// Select запоминает вариант для вопроса; прежний выбор по этому вопросу заменяется.
func (s *Step) Select(questionID int64, option string) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.currentLocked(); err != nil {
		return err
	}
	if !s.state.Answerable() {
		return ErrNotAnswerable
	}
	q, ok := s.questionLocked(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if !q.HasOption(option) {
		return fmt.Errorf("%w: %q", ErrInvalidOption, option)
	}
	s.selected[questionID] = option
	return nil
}

func (s *Step) questionLocked(id int64) (models.Question, bool) {
	for _, q := range s.questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

func (s *Step) completeLocked() bool {
	for _, q := range s.questions {
		if _, ok := s.selected[q.ID]; !ok {
			return false
		}
	}
	return true
}

// answersLocked: рабочий набор в порядке вопросов.
func (s *Step) answersLocked() models.Answers {
	out := make(models.Answers, 0, len(s.selected))
	for _, q := range s.questions {
		if opt, ok := s.selected[q.ID]; ok {
			out = append(out, models.Answer{QuestionID: q.ID, Option: opt})
		}
	}
	return out
}

// Submit проверяет полноту и вставляет ответ. На непоследнем шаге мастер
// сразу переходит к следующему предмету.
func (s *Step) Submit(ctx context.Context) (Outcome, error) {
	w := s.w
	w.mu.Lock()
	if err := s.currentLocked(); err != nil {
		w.mu.Unlock()
		return OutcomeNone, err
	}
	if s.state == StateAlreadySubmitted {
		w.mu.Unlock()
		return OutcomeNone, ErrAlreadySubmitted
	}
	if !s.state.Answerable() {
		w.mu.Unlock()
		return OutcomeNone, ErrNotAnswerable
	}
	if !s.completeLocked() {
		s.state = StateValidationError
		s.errMsg = MsgIncomplete
		w.mu.Unlock()
		return OutcomeNone, ErrIncompleteSubmission
	}

	s.errMsg = ""
	s.state = StateSubmitting
	k := s.key()
	resp := models.Response{
		FormID:      k.FormID,
		ClassroomID: k.ClassroomID,
		SubjectID:   k.SubjectID,
		StudentID:   k.StudentID,
		Response:    s.answersLocked(),
	}
	// вставка идёт без мьютекса: View и чтение шага не ждут базу.
	// Select, Back и повторный Submit в Submitting отклоняются.
	w.mu.Unlock()
	saved, err := w.store.InsertResponse(ctx, resp)
	if err == nil {
		metrics.ResponsesSubmitted.Inc()
		w.log.Info("response submitted", zap.Int64("subject_id", k.SubjectID), zap.Int64("response_id", saved.ID))
	}
	w.mu.Lock()

	// пока шла вставка, шаг могли перемонтировать или закрыть мастер
	if cerr := s.currentLocked(); cerr != nil {
		w.mu.Unlock()
		return OutcomeNone, cerr
	}
	switch {
	case errors.Is(err, db.ErrResponseExists):
		s.state = StateAlreadySubmitted
		w.mu.Unlock()
		return OutcomeNone, ErrAlreadySubmitted
	case err != nil:
		s.state = StateReady
		s.errMsg = MsgSaveFailed
		w.mu.Unlock()
		return OutcomeNone, fmt.Errorf("insert response: %w", err)
	}
	s.existing = &saved

	if s.lastLocked() {
		s.state = StateCompleted
		w.mu.Unlock()
		return OutcomeCompleted, nil
	}
	s.state = StateAdvanced
	next := w.mountLocked(ctx, s.index+1)
	w.mu.Unlock()
	return OutcomeAdvanced, w.load(next)
}

// DeleteResponse доступен только из AlreadySubmitted; без подтверждения ничего не делает.
// Удаляет ответы студента по форме во всех предметах класса.
func (s *Step) DeleteResponse(ctx context.Context, confirmed bool) (Outcome, error) {
	w := s.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := s.currentLocked(); err != nil {
		return OutcomeNone, err
	}
	if s.state != StateAlreadySubmitted {
		return OutcomeNone, ErrNotSubmitted
	}
	if !confirmed {
		return OutcomeNone, nil
	}
	k := s.key()
	n, err := w.store.DeleteResponses(ctx, k.FormID, k.ClassroomID, k.StudentID)
	if err != nil {
		return OutcomeNone, fmt.Errorf("delete responses: %w", err)
	}
	metrics.ResponsesDeleted.Add(float64(n))
	w.log.Info("responses deleted", zap.Int64("deleted", n))
	s.existing = nil
	s.state = StateDeleted
	return OutcomeDeleted, nil
}

// Back: к предыдущему предмету; на первом шаге недоступно.
func (s *Step) Back(ctx context.Context) (Outcome, error) {
	w := s.w
	w.mu.Lock()
	if err := s.currentLocked(); err != nil {
		w.mu.Unlock()
		return OutcomeNone, err
	}
	if s.index == 0 {
		w.mu.Unlock()
		return OutcomeNone, ErrFirstStep
	}
	switch s.state {
	case StateCompleted, StateDeleted, StateSubmitting:
		w.mu.Unlock()
		return OutcomeNone, ErrNotAnswerable
	}
	prev := w.mountLocked(ctx, s.index-1)
	w.mu.Unlock()
	return OutcomeRetreated, w.load(prev)
}

func (s *Step) View() View {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	v := View{
		Epoch:            s.epoch,
		Step:             s.index,
		Total:            len(s.w.subjects),
		IsFirstStep:      s.index == 0,
		IsLastStep:       s.lastLocked(),
		State:            s.state,
		AlreadySubmitted: s.state == StateAlreadySubmitted,
		Subject:          s.subject,
		Faculty:          s.faculty,
		Questions:        append([]models.Question(nil), s.questions...),
		Answers:          s.answersLocked(),
		Complete:         s.completeLocked(),
		Error:            s.errMsg,
		LoadFailed:       s.loadErr != nil,
	}
	if v.Questions == nil {
		v.Questions = []models.Question{}
	}
	return v
}
