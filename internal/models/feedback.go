package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Question struct {
	ID      int64          `db:"question_id" json:"question_id"`
	Name    string         `db:"question_name" json:"question_name" validate:"required,max=500"`
	Options pq.StringArray `db:"question_options" json:"question_options" validate:"required,min=2,dive,required"`
}

// HasOption: входит ли вариант в закрытый набор ответов вопроса.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Form: сбор отзывов для одного класса.
type Form struct {
	ID          int64  `db:"form_id" json:"form_id"`
	Name        string `db:"form_name" json:"form_name" validate:"required,max=200"`
	ClassroomID int64  `db:"form_classroom" json:"form_classroom" validate:"required,gt=0"`
}

type Answer struct {
	QuestionID int64  `json:"question_id"`
	Option     string `json:"option"`
}

// Answers хранится в response_table.response как JSONB.
type Answers []Answer

// Value отдаёт строку, а не []byte: lib/pq шлёт []byte как bytea.
func (a Answers) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Answers) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("answers: unsupported source %T", src)
	}
	if len(raw) == 0 {
		*a = nil
		return nil
	}
	var out Answers
	if err := json.Unmarshal(raw, &out); err != nil {
		return errors.Join(errors.New("answers: bad json"), err)
	}
	*a = out
	return nil
}

// ByQuestion: выбранный вариант по id вопроса.
func (a Answers) ByQuestion() map[int64]string {
	m := make(map[int64]string, len(a))
	for _, x := range a {
		m[x.QuestionID] = x.Option
	}
	return m
}

// ResponseKey: составной естественный ключ ответа.
type ResponseKey struct {
	FormID      int64
	ClassroomID int64
	SubjectID   int64
	StudentID   int64
}

type Response struct {
	ID          int64     `db:"response_id" json:"response_id"`
	FormID      int64     `db:"form_id" json:"form_id"`
	ClassroomID int64     `db:"classroom_id" json:"classroom_id"`
	SubjectID   int64     `db:"subject_id" json:"subject_id"`
	StudentID   int64     `db:"student_id" json:"student_id"`
	Response    Answers   `db:"response" json:"response"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func (r Response) Key() ResponseKey {
	return ResponseKey{FormID: r.FormID, ClassroomID: r.ClassroomID, SubjectID: r.SubjectID, StudentID: r.StudentID}
}
