package db

import (
	"context"

	"github.com/Spok95/course-feedback/internal/models"
)

// --- department_table

func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	out := []models.Department{}
	err := s.selectAll(ctx, &out, `SELECT department_id, department_name FROM department_table ORDER BY department_id`)
	return out, err
}

// UpsertDepartment: id == 0 означает вставку, иначе обновление существующей строки.
func (s *Store) UpsertDepartment(ctx context.Context, d models.Department) (models.Department, error) {
	var out models.Department
	if d.ID == 0 {
		err := s.get(ctx, &out, `
			INSERT INTO department_table (department_name) VALUES ($1)
			RETURNING department_id, department_name`, d.Name)
		return out, err
	}
	err := s.get(ctx, &out, `
		UPDATE department_table SET department_name = $2 WHERE department_id = $1
		RETURNING department_id, department_name`, d.ID, d.Name)
	return out, err
}

func (s *Store) DeleteDepartment(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM department_table WHERE department_id = $1`, id)
}

// --- classroom_table

const classroomCols = `classroom_id, classroom_name, department_id`

func (s *Store) ListClassrooms(ctx context.Context) ([]models.Classroom, error) {
	out := []models.Classroom{}
	err := s.selectAll(ctx, &out, `SELECT `+classroomCols+` FROM classroom_table ORDER BY classroom_id`)
	return out, err
}

func (s *Store) GetClassroom(ctx context.Context, id int64) (models.Classroom, error) {
	var c models.Classroom
	err := s.get(ctx, &c, `SELECT `+classroomCols+` FROM classroom_table WHERE classroom_id = $1`, id)
	return c, err
}

func (s *Store) UpsertClassroom(ctx context.Context, c models.Classroom) (models.Classroom, error) {
	var out models.Classroom
	if c.ID == 0 {
		err := s.get(ctx, &out, `
			INSERT INTO classroom_table (classroom_name, department_id) VALUES ($1, $2)
			RETURNING `+classroomCols, c.Name, c.DepartmentID)
		return out, err
	}
	err := s.get(ctx, &out, `
		UPDATE classroom_table SET classroom_name = $2, department_id = $3 WHERE classroom_id = $1
		RETURNING `+classroomCols, c.ID, c.Name, c.DepartmentID)
	return out, err
}

func (s *Store) DeleteClassroom(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM classroom_table WHERE classroom_id = $1`, id)
}

// --- classroom_subjects

const subjectCols = `subject_id, classroom_id, subject_name, subject_code, handling_instructor`

// ListSubjectsByClassroom: предметы класса в порядке вставки (subject_id).
func (s *Store) ListSubjectsByClassroom(ctx context.Context, classroomID int64) ([]models.Subject, error) {
	out := []models.Subject{}
	err := s.selectAll(ctx, &out, `
		SELECT `+subjectCols+` FROM classroom_subjects
		WHERE classroom_id = $1
		ORDER BY subject_id`, classroomID)
	return out, err
}

func (s *Store) ListSubjectsByInstructor(ctx context.Context, facultyID int64) ([]models.Subject, error) {
	out := []models.Subject{}
	err := s.selectAll(ctx, &out, `
		SELECT `+subjectCols+` FROM classroom_subjects
		WHERE handling_instructor = $1
		ORDER BY classroom_id, subject_id`, facultyID)
	return out, err
}

// GetSubject ищет предмет строго в пределах класса.
func (s *Store) GetSubject(ctx context.Context, classroomID, subjectID int64) (models.Subject, error) {
	var sub models.Subject
	err := s.get(ctx, &sub, `
		SELECT `+subjectCols+` FROM classroom_subjects
		WHERE classroom_id = $1 AND subject_id = $2`, classroomID, subjectID)
	return sub, err
}

func (s *Store) UpsertSubject(ctx context.Context, sub models.Subject) (models.Subject, error) {
	var out models.Subject
	if sub.ID == 0 {
		err := s.get(ctx, &out, `
			INSERT INTO classroom_subjects (classroom_id, subject_name, subject_code, handling_instructor)
			VALUES ($1, $2, $3, $4)
			RETURNING `+subjectCols, sub.ClassroomID, sub.Name, sub.Code, sub.HandlingInstructor)
		return out, err
	}
	err := s.get(ctx, &out, `
		UPDATE classroom_subjects
		SET classroom_id = $2, subject_name = $3, subject_code = $4, handling_instructor = $5
		WHERE subject_id = $1
		RETURNING `+subjectCols, sub.ID, sub.ClassroomID, sub.Name, sub.Code, sub.HandlingInstructor)
	return out, err
}

func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM classroom_subjects WHERE subject_id = $1`, id)
}
