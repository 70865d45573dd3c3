// Package memstore содержит in-memory реализацию хранилища для unit-тестов.
// Повторяет контракт db.Store: ErrNotFound, ErrConflict, ErrResponseExists.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/models"
)

type table[T any] struct {
	next int64
	rows []T
	id   func(*T) *int64
}

func newTable[T any](id func(*T) *int64) *table[T] { return &table[T]{id: id} }

func (t *table[T]) list() []T {
	out := make([]T, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t *table[T]) filter(pred func(T) bool) []T {
	out := []T{}
	for _, r := range t.rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func (t *table[T]) find(pred func(T) bool) (T, error) {
	for _, r := range t.rows {
		if pred(r) {
			return r, nil
		}
	}
	var zero T
	return zero, db.ErrNotFound
}

func (t *table[T]) byID(id int64) (T, error) {
	return t.find(func(r T) bool { return *t.id(&r) == id })
}

func (t *table[T]) upsert(v T) (T, error) {
	p := t.id(&v)
	if *p == 0 {
		t.next++
		*p = t.next
		t.rows = append(t.rows, v)
		return v, nil
	}
	for i := range t.rows {
		if *t.id(&t.rows[i]) == *p {
			t.rows[i] = v
			return v, nil
		}
	}
	var zero T
	return zero, db.ErrNotFound
}

func (t *table[T]) remove(pred func(T) bool) int64 {
	var n int64
	kept := t.rows[:0]
	for _, r := range t.rows {
		if pred(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept
	return n
}

func (t *table[T]) removeID(id int64) error {
	if t.remove(func(r T) bool { return *t.id(&r) == id }) == 0 {
		return db.ErrNotFound
	}
	return nil
}

type Store struct {
	mu sync.Mutex

	departments *table[models.Department]
	classrooms  *table[models.Classroom]
	subjects    *table[models.Subject]
	faculty     *table[models.Faculty]
	students    *table[models.Student]
	admins      *table[models.Admin]
	questions   *table[models.Question]
	forms       *table[models.Form]
	responses   *table[models.Response]
	creds       map[string]models.Credential

	faults map[string]error
	calls  map[string]int
	hook   func(op string)
}

func New() *Store {
	return &Store{
		departments: newTable(func(d *models.Department) *int64 { return &d.ID }),
		classrooms:  newTable(func(c *models.Classroom) *int64 { return &c.ID }),
		subjects:    newTable(func(s *models.Subject) *int64 { return &s.ID }),
		faculty:     newTable(func(f *models.Faculty) *int64 { return &f.ID }),
		students:    newTable(func(s *models.Student) *int64 { return &s.ID }),
		admins:      newTable(func(a *models.Admin) *int64 { return &a.ID }),
		questions:   newTable(func(q *models.Question) *int64 { return &q.ID }),
		forms:       newTable(func(f *models.Form) *int64 { return &f.ID }),
		responses:   newTable(func(r *models.Response) *int64 { return &r.ID }),
		creds:       map[string]models.Credential{},
		faults:      map[string]error{},
		calls:       map[string]int{},
	}
}

// Fail заставляет операцию op (имя метода) возвращать err; nil снимает ошибку.
func (m *Store) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// Calls: сколько раз вызывалась операция.
func (m *Store) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// SetHook вызывается перед каждой операцией вне мьютекса (можно блокировать).
func (m *Store) SetHook(fn func(op string)) {
	m.mu.Lock()
	m.hook = fn
	m.mu.Unlock()
}

// enter считает вызов и возвращает внедрённую ошибку; после него мьютекс захвачен.
func (m *Store) enter(op string) error {
	m.mu.Lock()
	hook := m.hook
	m.mu.Unlock()
	if hook != nil {
		hook(op)
	}
	m.mu.Lock()
	m.calls[op]++
	return m.faults[op]
}

func (m *Store) Ping(context.Context) error {
	defer m.mu.Unlock()
	return m.enter("Ping")
}

// --- departments / classrooms / subjects

func (m *Store) ListDepartments(context.Context) ([]models.Department, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListDepartments"); err != nil {
		return nil, err
	}
	return m.departments.list(), nil
}

func (m *Store) UpsertDepartment(_ context.Context, d models.Department) (models.Department, error) {
	defer m.mu.Unlock()
	if err := m.enter("UpsertDepartment"); err != nil {
		return models.Department{}, err
	}
	return m.departments.upsert(d)
}

func (m *Store) DeleteDepartment(_ context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.enter("DeleteDepartment"); err != nil {
		return err
	}
	return m.departments.removeID(id)
}

func (m *Store) ListClassrooms(context.Context) ([]models.Classroom, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListClassrooms"); err != nil {
		return nil, err
	}
	return m.classrooms.list(), nil
}

func (m *Store) GetClassroom(_ context.Context, id int64) (models.Classroom, error) {
	defer m.mu.Unlock()
	if err := m.enter("GetClassroom"); err != nil {
		return models.Classroom{}, err
	}
	return m.classrooms.byID(id)
}

func (m *Store) UpsertClassroom(_ context.Context, c models.Classroom) (models.Classroom, error) {
	defer m.mu.Unlock()
	if err := m.enter("UpsertClassroom"); err != nil {
		return models.Classroom{}, err
	}
	if _, err := m.departments.byID(c.DepartmentID); err != nil {
		return models.Classroom{}, db.ErrReference
	}
	return m.classrooms.upsert(c)
}

func (m *Store) DeleteClassroom(_ context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.enter("DeleteClassroom"); err != nil {
		return err
	}
	return m.classrooms.removeID(id)
}

func (m *Store) ListSubjectsByClassroom(_ context.Context, classroomID int64) ([]models.Subject, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListSubjectsByClassroom"); err != nil {
		return nil, err
	}
	return m.subjects.filter(func(s models.Subject) bool { return s.ClassroomID == classroomID }), nil
}

func (m *Store) ListSubjectsByInstructor(_ context.Context, facultyID int64) ([]models.Subject, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListSubjectsByInstructor"); err != nil {
		return nil, err
	}
	return m.subjects.filter(func(s models.Subject) bool { return s.HandlingInstructor == facultyID }), nil
}

func (m *Store) GetSubject(_ context.Context, classroomID, subjectID int64) (models.Subject, error) {
	defer m.mu.Unlock()
	if err := m.enter("GetSubject"); err != nil {
		return models.Subject{}, err
	}
	return m.subjects.find(func(s models.Subject) bool { return s.ID == subjectID && s.ClassroomID == classroomID })
}

func (m *Store) UpsertSubject(_ context.Context, s models.Subject) (models.Subject, error) {
	defer m.mu.Unlock()
	if err := m.enter("UpsertSubject"); err != nil {
		return models.Subject{}, err
	}
	return m.subjects.upsert(s)
}

func (m *Store) DeleteSubject(_ context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.enter("DeleteSubject"); err != nil {
		return err
	}
	return m.subjects.removeID(id)
}

// --- faculty / students / admins

func (m *Store) ListFaculty(context.Context) ([]models.Faculty, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListFaculty"); err != nil {
		return nil, err
	}
	return m.faculty.list(), nil
}

func (m *Store) GetFaculty(_ context.Context, id int64) (models.Faculty, error) {
	defer m.mu.Unlock()
	if err := m.enter("GetFaculty"); err != nil {
		return models.Faculty{}, err
	}
	return m.faculty.byID(id)
}

func (m *Store) FacultyByEmail(_ context.Context, email string) (models.Faculty, error) {
	defer m.mu.Unlock()
	if err := m.enter("FacultyByEmail"); err != nil {
		return models.Faculty{}, err
	}
	email = models.NormalizeEmail(email)
	return m.faculty.find(func(f models.Faculty) bool { return f.Email == email })
}

func (m *Store) UpsertFaculty(_ context.Context, f models.Faculty) (models.Faculty, error) {
	defer m.mu.Unlock()
	if err := m.enter("UpsertFaculty"); err != nil {
		return models.Faculty{}, err
	}
	f.Email = models.NormalizeEmail(f.Email)
	if dup := m.faculty.filter(func(x models.Faculty) bool { return x.Email == f.Email && x.ID != f.ID }); len(dup) > 0 {
		return models.Faculty{}, db.ErrConflict
	}
	return m.faculty.upsert(f)
}

func (m *Store) DeleteFaculty(_ context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.enter("DeleteFaculty"); err != nil {
		return err
	}
	return m.faculty.removeID(id)
}

func (m *Store) ListStudents(context.Context) ([]models.Student, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListStudents"); err != nil {
		return nil, err
	}
	return m.students.list(), nil
}

func (m *Store) StudentByEmail(_ context.Context, email string) (models.Student, error) {
	defer m.mu.Unlock()
	if err := m.enter("StudentByEmail"); err != nil {
		return models.Student{}, err
	}
	email = models.NormalizeEmail(email)
	return m.students.find(func(s models.Student) bool { return s.Email == email })
}

func (m *Store) UpsertStudent(_ context.Context, s models.Student) (models.Student, error) {
	defer m.mu.Unlock()
	if err := m.enter("UpsertStudent"); err != nil {
		return models.Student{}, err
	}
	s.Email = models.NormalizeEmail(s.Email)
	if dup := m.students.filter(func(x models.Student) bool { return x.Email == s.Email && x.ID != s.ID }); len(dup) > 0 {
		return models.Student{}, db.ErrConflict
	}
	return m.students.upsert(s)
}

func (m *Store) DeleteStudent(_ context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.enter("DeleteStudent"); err != nil {
		return err
	}
	return m.students.removeID(id)
}

func (m *Store) AdminByEmail(_ context.Context, email string) (models.Admin, error) {
	defer m.mu.Unlock()
	if err := m.enter("AdminByEmail"); err != nil {
		return models.Admin{}, err
	}
	email = models.NormalizeEmail(email)
	return m.admins.find(func(a models.Admin) bool { return a.Email == email })
}

func (m *Store) EnsureAdmin(_ context.Context, name, email string) (models.Admin, error) {
	defer m.mu.Unlock()
	if err := m.enter("EnsureAdmin"); err != nil {
		return models.Admin{}, err
	}
	email = models.NormalizeEmail(email)
	if a, err := m.admins.find(func(a models.Admin) bool { return a.Email == email }); err == nil {
		return a, nil
	}
	return m.admins.upsert(models.Admin{Name: name, Email: email})
}

// --- questions / forms

func (m *Store) ListQuestions(context.Context) ([]models.Question, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListQuestions"); err != nil {
		return nil, err
	}
	out := m.questions.list()
	for i := range out {
		out[i].Options = append([]string(nil), out[i].Options...)
	}
	return out, nil
}

func (m *Store) UpsertQuestion(_ context.Context, q models.Question) (models.Question, error) {
	defer m.mu.Unlock()
	if err := m.enter("UpsertQuestion"); err != nil {
		return models.Question{}, err
	}
	q.Options = append([]string(nil), q.Options...)
	return m.questions.upsert(q)
}

func (m *Store) DeleteQuestion(_ context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.enter("DeleteQuestion"); err != nil {
		return err
	}
	return m.questions.removeID(id)
}

func (m *Store) ListForms(context.Context) ([]models.Form, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListForms"); err != nil {
		return nil, err
	}
	return m.forms.list(), nil
}

func (m *Store) ListFormsByClassroom(_ context.Context, classroomID int64) ([]models.Form, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListFormsByClassroom"); err != nil {
		return nil, err
	}
	return m.forms.filter(func(f models.Form) bool { return f.ClassroomID == classroomID }), nil
}

func (m *Store) GetForm(_ context.Context, id int64) (models.Form, error) {
	defer m.mu.Unlock()
	if err := m.enter("GetForm"); err != nil {
		return models.Form{}, err
	}
	return m.forms.byID(id)
}

func (m *Store) UpsertForm(_ context.Context, f models.Form) (models.Form, error) {
	defer m.mu.Unlock()
	if err := m.enter("UpsertForm"); err != nil {
		return models.Form{}, err
	}
	return m.forms.upsert(f)
}

func (m *Store) DeleteForm(_ context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.enter("DeleteForm"); err != nil {
		return err
	}
	return m.forms.removeID(id)
}

// --- responses

func copyResponse(r models.Response) models.Response {
	r.Response = append(models.Answers(nil), r.Response...)
	return r
}

func (m *Store) FindResponse(_ context.Context, k models.ResponseKey) (models.Response, error) {
	defer m.mu.Unlock()
	if err := m.enter("FindResponse"); err != nil {
		return models.Response{}, err
	}
	r, err := m.responses.find(func(r models.Response) bool { return r.Key() == k })
	return copyResponse(r), err
}

func (m *Store) InsertResponse(_ context.Context, r models.Response) (models.Response, error) {
	defer m.mu.Unlock()
	if err := m.enter("InsertResponse"); err != nil {
		return models.Response{}, err
	}
	if _, err := m.responses.find(func(x models.Response) bool { return x.Key() == r.Key() }); err == nil {
		return models.Response{}, db.ErrResponseExists
	}
	r = copyResponse(r)
	r.ID = 0
	r.CreatedAt = time.Now().UTC()
	return m.responses.upsert(r)
}

func (m *Store) DeleteResponses(_ context.Context, formID, classroomID, studentID int64) (int64, error) {
	defer m.mu.Unlock()
	if err := m.enter("DeleteResponses"); err != nil {
		return 0, err
	}
	return m.responses.remove(func(r models.Response) bool {
		return r.FormID == formID && r.ClassroomID == classroomID && r.StudentID == studentID
	}), nil
}

func (m *Store) ListResponsesByForm(_ context.Context, formID int64) ([]models.Response, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListResponsesByForm"); err != nil {
		return nil, err
	}
	return m.responses.filter(func(r models.Response) bool { return r.FormID == formID }), nil
}

func (m *Store) ListResponsesBySubject(_ context.Context, subjectID int64) ([]models.Response, error) {
	defer m.mu.Unlock()
	if err := m.enter("ListResponsesBySubject"); err != nil {
		return nil, err
	}
	return m.responses.filter(func(r models.Response) bool { return r.SubjectID == subjectID }), nil
}

// --- credentials

func (m *Store) GetCredential(_ context.Context, email string) (models.Credential, error) {
	defer m.mu.Unlock()
	if err := m.enter("GetCredential"); err != nil {
		return models.Credential{}, err
	}
	c, ok := m.creds[models.NormalizeEmail(email)]
	if !ok {
		return models.Credential{}, db.ErrNotFound
	}
	return c, nil
}

func (m *Store) UpsertCredential(_ context.Context, email string, hash []byte) error {
	defer m.mu.Unlock()
	if err := m.enter("UpsertCredential"); err != nil {
		return err
	}
	email = models.NormalizeEmail(email)
	now := time.Now().UTC()
	c, ok := m.creds[email]
	if !ok {
		c = models.Credential{Email: email, CreatedAt: now}
	}
	c.PasswordHash = append([]byte(nil), hash...)
	c.UpdatedAt = now
	m.creds[email] = c
	return nil
}

func (m *Store) DeleteCredential(_ context.Context, email string) error {
	defer m.mu.Unlock()
	if err := m.enter("DeleteCredential"); err != nil {
		return err
	}
	email = models.NormalizeEmail(email)
	if _, ok := m.creds[email]; !ok {
		return db.ErrNotFound
	}
	delete(m.creds, email)
	return nil
}
