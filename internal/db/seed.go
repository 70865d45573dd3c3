package db

import (
	"context"
	"fmt"

	"github.com/Spok95/course-feedback/internal/models"
)

// Demo: что создал SeedDemo (для входа и ручной проверки).
type Demo struct {
	Classroom models.Classroom
	Form      models.Form
	Faculty   []models.Faculty
	Students  []models.Student
	Subjects  []models.Subject
	Questions []models.Question
}

// Emails: все адреса демо-аккаунтов.
func (d Demo) Emails() []string {
	out := make([]string, 0, len(d.Faculty)+len(d.Students))
	for _, f := range d.Faculty {
		out = append(out, f.Email)
	}
	for _, s := range d.Students {
		out = append(out, s.Email)
	}
	return out
}

var demoQuestions = []models.Question{
	{Name: "How clear were the explanations?", Options: []string{"Excellent", "Good", "Average", "Poor"}},
	{Name: "How well did the instructor manage time?", Options: []string{"Excellent", "Good", "Average", "Poor"}},
	{Name: "Would you recommend this course?", Options: []string{"Yes", "Maybe", "No"}},
}

// Seeder: то, что нужно SeedDemo от хранилища (db.Store или in-memory в тестах).
type Seeder interface {
	ListForms(ctx context.Context) ([]models.Form, error)
	UpsertDepartment(ctx context.Context, d models.Department) (models.Department, error)
	UpsertClassroom(ctx context.Context, c models.Classroom) (models.Classroom, error)
	UpsertFaculty(ctx context.Context, f models.Faculty) (models.Faculty, error)
	UpsertSubject(ctx context.Context, s models.Subject) (models.Subject, error)
	UpsertStudent(ctx context.Context, s models.Student) (models.Student, error)
	UpsertQuestion(ctx context.Context, q models.Question) (models.Question, error)
	UpsertForm(ctx context.Context, f models.Form) (models.Form, error)
}

var _ Seeder = (*Store)(nil)

// SeedDemo заполняет пустую базу демонстрационными данными. Если формы уже есть, ничего не делает.
func SeedDemo(ctx context.Context, s Seeder) (Demo, error) {
	var d Demo
	forms, err := s.ListForms(ctx)
	if err != nil {
		return d, fmt.Errorf("seed: list forms: %w", err)
	}
	if len(forms) > 0 {
		return d, nil
	}

	dep, err := s.UpsertDepartment(ctx, models.Department{Name: "Computer Science"})
	if err != nil {
		return d, fmt.Errorf("seed department: %w", err)
	}
	d.Classroom, err = s.UpsertClassroom(ctx, models.Classroom{Name: "CSE 5A", DepartmentID: dep.ID})
	if err != nil {
		return d, fmt.Errorf("seed classroom: %w", err)
	}

	for i, name := range []string{"Dr. Meera Rao", "Prof. Arjun Sen"} {
		f, err := s.UpsertFaculty(ctx, models.Faculty{
			Name:         name,
			Designation:  "Associate Professor",
			DepartmentID: dep.ID,
			Email:        fmt.Sprintf("faculty%d@demo.edu", i+1),
		})
		if err != nil {
			return d, fmt.Errorf("seed faculty %s: %w", name, err)
		}
		d.Faculty = append(d.Faculty, f)
	}

	subjects := []models.Subject{
		{Name: "Operating Systems", Code: "CS501", HandlingInstructor: d.Faculty[0].ID},
		{Name: "Computer Networks", Code: "CS502", HandlingInstructor: d.Faculty[1].ID},
	}
	for _, sub := range subjects {
		sub.ClassroomID = d.Classroom.ID
		saved, err := s.UpsertSubject(ctx, sub)
		if err != nil {
			return d, fmt.Errorf("seed subject %s: %w", sub.Code, err)
		}
		d.Subjects = append(d.Subjects, saved)
	}

	for i := 1; i <= 3; i++ {
		st, err := s.UpsertStudent(ctx, models.Student{
			Name:         fmt.Sprintf("Student %d", i),
			Email:        fmt.Sprintf("student%d@demo.edu", i),
			DepartmentID: dep.ID,
			ClassroomID:  d.Classroom.ID,
			USN:          fmt.Sprintf("1DM21CS%03d", i),
		})
		if err != nil {
			return d, fmt.Errorf("seed student %d: %w", i, err)
		}
		d.Students = append(d.Students, st)
	}

	for _, q := range demoQuestions {
		saved, err := s.UpsertQuestion(ctx, q)
		if err != nil {
			return d, fmt.Errorf("seed question: %w", err)
		}
		d.Questions = append(d.Questions, saved)
	}

	d.Form, err = s.UpsertForm(ctx, models.Form{Name: "Mid-term feedback", ClassroomID: d.Classroom.ID})
	if err != nil {
		return d, fmt.Errorf("seed form: %w", err)
	}
	return d, nil
}
