//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/models"
	"github.com/Spok95/course-feedback/internal/testutil/testdb"
)

func startDB(t *testing.T) (context.Context, *testdb.DBHandle) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)
	return ctx, h
}

func TestSeedAndLookups(t *testing.T) {
	ctx, h := startDB(t)
	s := h.Store

	demo, err := db.SeedDemo(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	again, err := db.SeedDemo(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if again.Form.ID != 0 {
		t.Fatal("повторный seed не должен ничего создавать")
	}

	subs, err := s.ListSubjectsByClassroom(ctx, demo.Classroom.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 || subs[0].ID >= subs[1].ID {
		t.Fatalf("ожидали 2 предмета в порядке вставки, получили %#v", subs)
	}

	st, err := s.StudentByEmail(ctx, "  STUDENT1@demo.edu ")
	if err != nil {
		t.Fatal(err)
	}
	if st.ClassroomID != demo.Classroom.ID {
		t.Fatalf("student classroom = %d", st.ClassroomID)
	}
	if _, err := s.FacultyByEmail(ctx, st.Email); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}

	qs, err := s.ListQuestions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 3 || len(qs[0].Options) != 4 {
		t.Fatalf("questions = %#v", qs)
	}

	if _, err := s.GetSubject(ctx, demo.Classroom.ID+100, subs[0].ID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("предмет чужого класса: %v", err)
	}
}

func TestResponses_ConditionalInsertAndDelete(t *testing.T) {
	ctx, h := startDB(t)
	s := h.Store

	demo, err := db.SeedDemo(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	st := demo.Students[0]
	answers := models.Answers{}
	for _, q := range demo.Questions {
		answers = append(answers, models.Answer{QuestionID: q.ID, Option: q.Options[0]})
	}

	for _, sub := range demo.Subjects {
		r := models.Response{FormID: demo.Form.ID, ClassroomID: demo.Classroom.ID, SubjectID: sub.ID, StudentID: st.ID, Response: answers}
		saved, err := s.InsertResponse(ctx, r)
		if err != nil {
			t.Fatal(err)
		}
		if saved.ID == 0 || len(saved.Response) != len(answers) {
			t.Fatalf("saved = %#v", saved)
		}
		if _, err := s.InsertResponse(ctx, r); !errors.Is(err, db.ErrResponseExists) {
			t.Fatalf("повторная вставка: ожидали ErrResponseExists, получили %v", err)
		}
	}

	got, err := s.FindResponse(ctx, models.ResponseKey{FormID: demo.Form.ID, ClassroomID: demo.Classroom.ID, SubjectID: demo.Subjects[1].ID, StudentID: st.ID})
	if err != nil {
		t.Fatal(err)
	}
	if got.Response[0].Option != demo.Questions[0].Options[0] {
		t.Fatalf("response json = %#v", got.Response)
	}

	n, err := s.DeleteResponses(ctx, demo.Form.ID, demo.Classroom.ID, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("удалили %d строк, ожидали 2", n)
	}
	all, err := s.ListResponsesByForm(ctx, demo.Form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("остались ответы: %#v", all)
	}
}

func TestUpsertAndDelete(t *testing.T) {
	ctx, h := startDB(t)
	s := h.Store

	dep, err := s.UpsertDepartment(ctx, models.Department{Name: "Physics"})
	if err != nil {
		t.Fatal(err)
	}
	dep.Name = "Applied Physics"
	upd, err := s.UpsertDepartment(ctx, dep)
	if err != nil {
		t.Fatal(err)
	}
	if upd.ID != dep.ID || upd.Name != "Applied Physics" {
		t.Fatalf("upd = %#v", upd)
	}
	if _, err := s.UpsertDepartment(ctx, models.Department{ID: 9999, Name: "x"}); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("обновление несуществующей строки: %v", err)
	}

	if _, err := s.UpsertClassroom(ctx, models.Classroom{Name: "P1", DepartmentID: 12345}); !errors.Is(err, db.ErrReference) {
		t.Fatalf("ожидали ErrReference, получили %v", err)
	}

	if _, err := s.UpsertFaculty(ctx, models.Faculty{Name: "A", DepartmentID: dep.ID, Email: "a@x.edu"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertFaculty(ctx, models.Faculty{Name: "B", DepartmentID: dep.ID, Email: "A@X.edu"}); !errors.Is(err, db.ErrConflict) {
		t.Fatalf("дубль email: %v", err)
	}

	if err := s.DeleteDepartment(ctx, 4242); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("delete missing: %v", err)
	}

	if err := s.UpsertCredential(ctx, "a@x.edu", []byte("hash1")); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertCredential(ctx, "A@x.edu", []byte("hash2")); err != nil {
		t.Fatal(err)
	}
	c, err := s.GetCredential(ctx, "a@x.edu")
	if err != nil {
		t.Fatal(err)
	}
	if string(c.PasswordHash) != "hash2" {
		t.Fatalf("hash = %q", c.PasswordHash)
	}

	a1, err := s.EnsureAdmin(ctx, "Root", "root@x.edu")
	if err != nil {
		t.Fatal(err)
	}
	a2, err := s.EnsureAdmin(ctx, "Other", "root@x.edu")
	if err != nil {
		t.Fatal(err)
	}
	if a1.ID != a2.ID || a2.Name != "Root" {
		t.Fatalf("EnsureAdmin не идемпотентен: %#v %#v", a1, a2)
	}
}
