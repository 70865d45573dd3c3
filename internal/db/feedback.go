package db

import (
	"context"
	"errors"

	"github.com/Spok95/course-feedback/internal/models"
)

// --- question_table

func (s *Store) ListQuestions(ctx context.Context) ([]models.Question, error) {
	out := []models.Question{}
	err := s.selectAll(ctx, &out, `
		SELECT question_id, question_name, question_options FROM question_table ORDER BY question_id`)
	return out, err
}

func (s *Store) UpsertQuestion(ctx context.Context, q models.Question) (models.Question, error) {
	var out models.Question
	if q.ID == 0 {
		err := s.get(ctx, &out, `
			INSERT INTO question_table (question_name, question_options) VALUES ($1, $2)
			RETURNING question_id, question_name, question_options`, q.Name, q.Options)
		return out, err
	}
	err := s.get(ctx, &out, `
		UPDATE question_table SET question_name = $2, question_options = $3 WHERE question_id = $1
		RETURNING question_id, question_name, question_options`, q.ID, q.Name, q.Options)
	return out, err
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM question_table WHERE question_id = $1`, id)
}

// --- form_table

func (s *Store) ListForms(ctx context.Context) ([]models.Form, error) {
	out := []models.Form{}
	err := s.selectAll(ctx, &out, `SELECT form_id, form_name, form_classroom FROM form_table ORDER BY form_id`)
	return out, err
}

func (s *Store) ListFormsByClassroom(ctx context.Context, classroomID int64) ([]models.Form, error) {
	out := []models.Form{}
	err := s.selectAll(ctx, &out, `
		SELECT form_id, form_name, form_classroom FROM form_table
		WHERE form_classroom = $1 ORDER BY form_id`, classroomID)
	return out, err
}

func (s *Store) GetForm(ctx context.Context, id int64) (models.Form, error) {
	var f models.Form
	err := s.get(ctx, &f, `SELECT form_id, form_name, form_classroom FROM form_table WHERE form_id = $1`, id)
	return f, err
}

func (s *Store) UpsertForm(ctx context.Context, f models.Form) (models.Form, error) {
	var out models.Form
	if f.ID == 0 {
		err := s.get(ctx, &out, `
			INSERT INTO form_table (form_name, form_classroom) VALUES ($1, $2)
			RETURNING form_id, form_name, form_classroom`, f.Name, f.ClassroomID)
		return out, err
	}
	err := s.get(ctx, &out, `
		UPDATE form_table SET form_name = $2, form_classroom = $3 WHERE form_id = $1
		RETURNING form_id, form_name, form_classroom`, f.ID, f.Name, f.ClassroomID)
	return out, err
}

func (s *Store) DeleteForm(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM form_table WHERE form_id = $1`, id)
}

// --- response_table

const responseCols = `response_id, form_id, classroom_id, subject_id, student_id, response, created_at`

func (s *Store) FindResponse(ctx context.Context, k models.ResponseKey) (models.Response, error) {
	var r models.Response
	err := s.get(ctx, &r, `
		SELECT `+responseCols+` FROM response_table
		WHERE form_id = $1 AND classroom_id = $2 AND subject_id = $3 AND student_id = $4`,
		k.FormID, k.ClassroomID, k.SubjectID, k.StudentID)
	return r, err
}

// InsertResponse делает условную вставку; если по ключу уже есть ответ, ErrResponseExists.
func (s *Store) InsertResponse(ctx context.Context, r models.Response) (models.Response, error) {
	var out models.Response
	err := s.get(ctx, &out, `
		INSERT INTO response_table (form_id, classroom_id, subject_id, student_id, response)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (form_id, classroom_id, subject_id, student_id) DO NOTHING
		RETURNING `+responseCols,
		r.FormID, r.ClassroomID, r.SubjectID, r.StudentID, r.Response)
	if errors.Is(err, ErrNotFound) {
		return models.Response{}, ErrResponseExists
	}
	return out, err
}

// DeleteResponses удаляет ответы студента по форме во всех предметах класса.
func (s *Store) DeleteResponses(ctx context.Context, formID, classroomID, studentID int64) (int64, error) {
	return s.exec(ctx, `
		DELETE FROM response_table
		WHERE form_id = $1 AND classroom_id = $2 AND student_id = $3`, formID, classroomID, studentID)
}

func (s *Store) ListResponsesByForm(ctx context.Context, formID int64) ([]models.Response, error) {
	out := []models.Response{}
	err := s.selectAll(ctx, &out, `
		SELECT `+responseCols+` FROM response_table WHERE form_id = $1 ORDER BY response_id`, formID)
	return out, err
}

func (s *Store) ListResponsesBySubject(ctx context.Context, subjectID int64) ([]models.Response, error) {
	out := []models.Response{}
	err := s.selectAll(ctx, &out, `
		SELECT `+responseCols+` FROM response_table WHERE subject_id = $1 ORDER BY response_id`, subjectID)
	return out, err
}
