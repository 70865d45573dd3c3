// Package feedback ведёт студента по предметам формы: один шаг на каждый предмет класса.
package feedback

import (
	"context"
	"errors"

	"github.com/Spok95/course-feedback/internal/models"
)

// Store: то, что нужно мастеру от хранилища.
type Store interface {
	GetForm(ctx context.Context, id int64) (models.Form, error)
	ListSubjectsByClassroom(ctx context.Context, classroomID int64) ([]models.Subject, error)
	GetSubject(ctx context.Context, classroomID, subjectID int64) (models.Subject, error)
	GetFaculty(ctx context.Context, id int64) (models.Faculty, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	FindResponse(ctx context.Context, k models.ResponseKey) (models.Response, error)
	InsertResponse(ctx context.Context, r models.Response) (models.Response, error)
	DeleteResponses(ctx context.Context, formID, classroomID, studentID int64) (int64, error)
}

var (
	ErrFormNotFound         = errors.New("form not found")
	ErrNoSubjects           = errors.New("no subjects found for this classroom")
	ErrIncompleteSubmission = errors.New("please answer all questions before submitting")
	ErrAlreadySubmitted     = errors.New("feedback already submitted")
	ErrNotSubmitted         = errors.New("there is no submitted response to delete")
	ErrStaleStep            = errors.New("step is no longer current")
	ErrFirstStep            = errors.New("already at the first subject")
	ErrUnknownQuestion      = errors.New("unknown question")
	ErrInvalidOption        = errors.New("option is not offered by the question")
	ErrNotAnswerable        = errors.New("step does not accept answers right now")
)

// Тексты для пользователя.
const (
	MsgIncomplete       = "Please answer all questions before submitting."
	MsgSubmitted        = "Feedback submitted successfully!"
	MsgAlreadySubmitted = "Feedback already submitted!"
	MsgDeleted          = "Response deleted successfully!"
	MsgNoSubjects       = "No subjects found for this classroom."
	MsgFormNotFound     = "Form not found."
	MsgSaveFailed       = "Could not save your feedback. Please try again."
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateValidationError
	StateSubmitting
	StateAlreadySubmitted
	StateAdvanced
	StateCompleted
	StateDeleted
)

var stateNames = [...]string{
	StateLoading:          "loading",
	StateReady:            "ready",
	StateValidationError:  "validation_error",
	StateSubmitting:       "submitting",
	StateAlreadySubmitted: "already_submitted",
	StateAdvanced:         "advanced",
	StateCompleted:        "completed",
	StateDeleted:          "deleted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Answerable: можно ли выбирать варианты и отправлять.
func (s State) Answerable() bool { return s == StateReady || s == StateValidationError }

// Outcome: навигационный сигнал для фронтенда.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeAdvanced
	OutcomeRetreated
	OutcomeCompleted
	OutcomeDeleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeRetreated:
		return "retreated"
	case OutcomeCompleted:
		return "completed"
	case OutcomeDeleted:
		return "deleted"
	}
	return "none"
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// ToFormList: после этого исхода фронтенд возвращает студента к списку форм.
func (o Outcome) ToFormList() bool { return o == OutcomeCompleted || o == OutcomeDeleted }
