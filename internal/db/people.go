package db

import (
	"context"

	"github.com/Spok95/course-feedback/internal/models"
)

const (
	facultyCols = `faculty_id, name, designation, department_id, email`
	studentCols = `student_id, name, email, department_id, classroom_id, usn`
	adminCols   = `admin_id, name, email`
)

// --- faculty_table

func (s *Store) ListFaculty(ctx context.Context) ([]models.Faculty, error) {
	out := []models.Faculty{}
	err := s.selectAll(ctx, &out, `SELECT `+facultyCols+` FROM faculty_table ORDER BY faculty_id`)
	return out, err
}

func (s *Store) GetFaculty(ctx context.Context, id int64) (models.Faculty, error) {
	var f models.Faculty
	err := s.get(ctx, &f, `SELECT `+facultyCols+` FROM faculty_table WHERE faculty_id = $1`, id)
	return f, err
}

func (s *Store) FacultyByEmail(ctx context.Context, email string) (models.Faculty, error) {
	var f models.Faculty
	err := s.get(ctx, &f, `SELECT `+facultyCols+` FROM faculty_table WHERE email = $1`, models.NormalizeEmail(email))
	return f, err
}

func (s *Store) UpsertFaculty(ctx context.Context, f models.Faculty) (models.Faculty, error) {
	var out models.Faculty
	email := models.NormalizeEmail(f.Email)
	if f.ID == 0 {
		err := s.get(ctx, &out, `
			INSERT INTO faculty_table (name, designation, department_id, email)
			VALUES ($1, $2, $3, $4)
			RETURNING `+facultyCols, f.Name, f.Designation, f.DepartmentID, email)
		return out, err
	}
	err := s.get(ctx, &out, `
		UPDATE faculty_table SET name = $2, designation = $3, department_id = $4, email = $5
		WHERE faculty_id = $1
		RETURNING `+facultyCols, f.ID, f.Name, f.Designation, f.DepartmentID, email)
	return out, err
}

func (s *Store) DeleteFaculty(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM faculty_table WHERE faculty_id = $1`, id)
}

// --- student_table

func (s *Store) ListStudents(ctx context.Context) ([]models.Student, error) {
	out := []models.Student{}
	err := s.selectAll(ctx, &out, `SELECT `+studentCols+` FROM student_table ORDER BY student_id`)
	return out, err
}

func (s *Store) StudentByEmail(ctx context.Context, email string) (models.Student, error) {
	var st models.Student
	err := s.get(ctx, &st, `SELECT `+studentCols+` FROM student_table WHERE email = $1`, models.NormalizeEmail(email))
	return st, err
}

func (s *Store) UpsertStudent(ctx context.Context, st models.Student) (models.Student, error) {
	var out models.Student
	email := models.NormalizeEmail(st.Email)
	if st.ID == 0 {
		err := s.get(ctx, &out, `
			INSERT INTO student_table (name, email, department_id, classroom_id, usn)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+studentCols, st.Name, email, st.DepartmentID, st.ClassroomID, st.USN)
		return out, err
	}
	err := s.get(ctx, &out, `
		UPDATE student_table SET name = $2, email = $3, department_id = $4, classroom_id = $5, usn = $6
		WHERE student_id = $1
		RETURNING `+studentCols, st.ID, st.Name, email, st.DepartmentID, st.ClassroomID, st.USN)
	return out, err
}

func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM student_table WHERE student_id = $1`, id)
}

// --- admin_table

func (s *Store) AdminByEmail(ctx context.Context, email string) (models.Admin, error) {
	var a models.Admin
	err := s.get(ctx, &a, `SELECT `+adminCols+` FROM admin_table WHERE email = $1`, models.NormalizeEmail(email))
	return a, err
}

// EnsureAdmin создаёт админа с таким email, если его ещё нет.
func (s *Store) EnsureAdmin(ctx context.Context, name, email string) (models.Admin, error) {
	var a models.Admin
	err := s.get(ctx, &a, `
		INSERT INTO admin_table (name, email) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET name = admin_table.name
		RETURNING `+adminCols, name, models.NormalizeEmail(email))
	return a, err
}
