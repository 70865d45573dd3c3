package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/models"
)

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// Start загружает форму и предметы её класса и монтирует первый шаг.
// ErrFormNotFound и ErrNoSubjects: пустые состояния, а не сбои.
func (s *Service) Start(ctx context.Context, formID, studentID int64) (*Wizard, error) {
	form, err := s.store.GetForm(ctx, formID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load form %d: %w", formID, err)
	}
	subjects, err := s.store.ListSubjectsByClassroom(ctx, form.ClassroomID)
	if err != nil {
		return nil, fmt.Errorf("load subjects of classroom %d: %w", form.ClassroomID, err)
	}
	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}

	w := &Wizard{
		store:     s.store,
		log:       s.log.With(zap.Int64("form_id", form.ID), zap.Int64("student_id", studentID)),
		form:      form,
		studentID: studentID,
		subjects:  subjects,
	}
	w.mu.Lock()
	first := w.mountLocked(ctx, 0)
	w.mu.Unlock()
	if err := w.load(first); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// Wizard: курсор по предметам формы. Безопасен для конкурентного использования.
type Wizard struct {
	store     Store
	log       *zap.Logger
	form      models.Form
	studentID int64
	subjects  []models.Subject

	mu     sync.Mutex
	step   int
	epoch  uint64
	cur    *Step
	cancel context.CancelFunc
	closed bool
}

func (w *Wizard) Form() models.Form { return w.form }
func (w *Wizard) StudentID() int64  { return w.studentID }
func (w *Wizard) Len() int          { return len(w.subjects) }

func (w *Wizard) Subjects() []models.Subject {
	out := make([]models.Subject, len(w.subjects))
	copy(out, w.subjects)
	return out
}

func (w *Wizard) StepIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Epoch() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.epoch
}

func (w *Wizard) Current() *Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cur
}

// Step возвращает текущий шаг, только если он смонтирован в эпоху epoch.
func (w *Wizard) Step(epoch uint64) (*Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.cur == nil || w.cur.epoch != epoch {
		return nil, ErrStaleStep
	}
	return w.cur, nil
}

func (w *Wizard) View() View {
	return w.Current().View()
}

// Advance переходит к следующему предмету; на последнем возвращает сигнал завершения.
func (w *Wizard) Advance(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return OutcomeNone, ErrStaleStep
	}
	if w.step >= len(w.subjects)-1 {
		w.mu.Unlock()
		return OutcomeCompleted, nil
	}
	next := w.mountLocked(ctx, w.step+1)
	w.mu.Unlock()
	return OutcomeAdvanced, w.load(next)
}

// Retreat: на шаге 0 ничего не делает.
func (w *Wizard) Retreat(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return OutcomeNone, ErrStaleStep
	}
	if w.step == 0 {
		w.mu.Unlock()
		return OutcomeNone, nil
	}
	prev := w.mountLocked(ctx, w.step-1)
	w.mu.Unlock()
	return OutcomeRetreated, w.load(prev)
}

// Reload перемонтирует текущий шаг (например, после ошибки загрузки).
func (w *Wizard) Reload(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrStaleStep
	}
	s := w.mountLocked(ctx, w.step)
	w.mu.Unlock()
	return w.load(s)
}

// Close отменяет загрузки и делает все шаги устаревшими.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// mountLocked создаёт новый шаг в состоянии Loading; предыдущий становится устаревшим.
func (w *Wizard) mountLocked(ctx context.Context, idx int) *Step {
	if w.cancel != nil {
		w.cancel()
	}
	mctx, cancel := context.WithCancel(ctx)
	w.epoch++
	w.step = idx
	w.cancel = cancel
	w.cur = &Step{
		w:        w,
		ctx:      mctx,
		epoch:    w.epoch,
		index:    idx,
		subject:  w.subjects[idx],
		state:    StateLoading,
		selected: make(map[int64]string),
	}
	return w.cur
}

// load выполняет загрузки шага вне мьютекса; результат применяется,
// только если шаг всё ещё текущий.
func (w *Wizard) load(s *Step) error {
	key := s.key()
	var (
		existing  *models.Response
		subject   models.Subject
		faculty   models.Faculty
		questions []models.Question
	)

	g, gctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		r, err := w.store.FindResponse(gctx, key)
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find response: %w", err)
		}
		existing = &r
		return nil
	})
	g.Go(func() error {
		sub, err := w.store.GetSubject(gctx, key.ClassroomID, key.SubjectID)
		switch {
		case errors.Is(err, db.ErrNotFound):
			sub = s.subject
		case err != nil:
			return fmt.Errorf("load subject: %w", err)
		}
		subject = sub

		f, err := w.store.GetFaculty(gctx, sub.HandlingInstructor)
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load faculty: %w", err)
		}
		faculty = f
		return nil
	})
	g.Go(func() error {
		qs, err := w.store.ListQuestions(gctx)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
		questions = qs
		return nil
	})
	err := g.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.cur != s {
		return ErrStaleStep
	}
	if err != nil {
		s.loadErr = err
		w.log.Warn("step load failed", zap.Int("step", s.index), zap.Error(err))
		return err
	}
	s.subject = subject
	s.faculty = faculty
	s.questions = questions
	if existing != nil {
		s.existing = existing
		s.state = StateAlreadySubmitted
	} else {
		s.state = StateReady
	}
	return nil
}
