package api_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/course-feedback/internal/api"
	"github.com/Spok95/course-feedback/internal/export"
	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/models"
)

type stepView struct {
	Epoch            uint64 `json:"epoch"`
	Step             int    `json:"step"`
	Total            int    `json:"total"`
	State            string `json:"state"`
	AlreadySubmitted bool   `json:"already_submitted"`
	Complete         bool   `json:"complete"`
	Error            string `json:"error"`
	Subject          struct {
		ID int64 `json:"subject_id"`
	} `json:"subject"`
	Faculty struct {
		Name string `json:"name"`
	} `json:"faculty"`
	Questions []struct {
		ID      int64    `json:"question_id"`
		Options []string `json:"question_options"`
	} `json:"questions"`
}

type stepResp struct {
	Outcome    string    `json:"outcome"`
	ToFormList bool      `json:"to_form_list"`
	Message    string    `json:"message"`
	NoSubjects bool      `json:"no_subjects"`
	Step       *stepView `json:"step"`
}

func formPath(id int64, action string) string {
	return fmt.Sprintf("/api/student/forms/%d/%s", id, action)
}

func (f fixture) start(t *testing.T, token string) stepResp {
	t.Helper()
	rec := f.do(http.MethodPost, formPath(f.demo.Form.ID, "start"), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out stepResp
	decode(t, rec, &out)
	require.NotNil(t, out.Step)
	return out
}

func (f fixture) answerAll(t *testing.T, token string, v *stepView) {
	t.Helper()
	for _, q := range v.Questions {
		body := marshalObj(t, map[string]any{"epoch": v.Epoch, "question_id": q.ID, "option": q.Options[0]})
		rec := f.do(http.MethodPut, formPath(f.demo.Form.ID, "answers"), token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func (f fixture) submit(t *testing.T, token string, epoch uint64) (int, stepResp) {
	t.Helper()
	rec := f.do(http.MethodPost, formPath(f.demo.Form.ID, "submit"), token, marshalObj(t, map[string]any{"epoch": epoch}))
	var out stepResp
	if rec.Code == http.StatusOK {
		decode(t, rec, &out)
	}
	return rec.Code, out
}

func TestPublicEndpoints(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	f.store.Fail("Ping", errors.New("conn refused"))
	rec = f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feedback_http_requests_total")
}

func TestLogin(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.ids.SetPassword(context.Background(), "ghost@demo.edu", demoPassword))

	f.run(t, []httpTest{
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     marshalObj(t, map[string]string{"email": "student1@demo.edu", "password": "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "invalid login credentials"}),
		},
		{
			name:     "no role row",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     marshalObj(t, map[string]string{"email": "ghost@demo.edu", "password": demoPassword}),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "User not found"}),
		},
		{
			name:     "validation",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     []byte(`{"email": "", "password": "  "}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"email":    "email is a required field",
				"password": "this field cannot be blank",
			}),
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     []byte(`{"email":`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "me without token",
			method:   http.MethodGet,
			path:     "/api/me",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "missing or malformed token"}),
		},
		{
			name:     "me with unknown token",
			method:   http.MethodGet,
			path:     "/api/me",
			token:    "deadbeef",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "session not found or expired"}),
		},
	})
}

func TestDebugMode_ErrorShapes(t *testing.T) {
	f := setup(t, func(o *api.Options) { o.Debug = true })
	token := f.login(t, "student1@demo.edu")

	f.run(t, []httpTest{
		{
			name:     "validation keeps field map",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     []byte(`{"email": "bad", "password": ""}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"email":    "email must be a valid email address",
				"password": "this field cannot be blank",
			}),
		},
		{
			name:     "auth error keeps message",
			method:   http.MethodPost,
			path:     "/api/login",
			body:     marshalObj(t, map[string]string{"email": "student1@demo.edu", "password": "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "invalid login credentials"}),
		},
	})

	f.store.Fail("ListFormsByClassroom", errors.New("connection reset"))
	rec := f.do(http.MethodGet, "/api/student/forms", token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var out httpErr
	decode(t, rec, &out)
	assert.Contains(t, out.Error, "connection reset", "в debug-режиме видна причина")
}

func TestInternalError_HidesCause(t *testing.T) {
	f := setup(t)
	token := f.login(t, "student1@demo.edu")

	f.store.Fail("ListFormsByClassroom", errors.New("connection reset"))
	rec := f.do(http.MethodGet, "/api/student/forms", token)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusInternalServerError,
		wantData: marshalObj(t, httpErr{Error: http.StatusText(http.StatusInternalServerError)}),
	}, rec)
}

func TestLogin_RolesAndLogout(t *testing.T) {
	f := setup(t)

	for email, role := range map[string]models.Role{
		"student1@demo.edu": models.RoleStudent,
		"faculty1@demo.edu": models.RoleFaculty,
		adminEmail:          models.RoleAdmin,
	} {
		token := f.login(t, email)
		rec := f.do(http.MethodGet, "/api/me", token)
		require.Equal(t, http.StatusOK, rec.Code)
		var me struct {
			Role models.Role `json:"role"`
		}
		decode(t, rec, &me)
		assert.Equal(t, role, me.Role, email)

		rec = f.do(http.MethodPost, "/api/logout", token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = f.do(http.MethodGet, "/api/me", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestRoleGuards(t *testing.T) {
	f := setup(t)
	student := f.login(t, "student1@demo.edu")
	faculty := f.login(t, "faculty1@demo.edu")
	forbidden := marshalObj(t, httpErr{Error: "permission denied"})

	f.run(t, []httpTest{
		{"student to admin", http.MethodGet, "/api/admin/forms", nil, student, http.StatusForbidden, forbidden},
		{"student to faculty", http.MethodGet, "/api/faculty/subjects", nil, student, http.StatusForbidden, forbidden},
		{"faculty to student", http.MethodGet, "/api/student/forms", nil, faculty, http.StatusForbidden, forbidden},
	})
}

// Полный проход: отправка по всем предметам, повторный вход видит отправленное,
// удаление с подтверждением возвращает форму в исходное состояние.
func TestStudentWizard_SubmitAndDelete(t *testing.T) {
	f := setup(t)
	token := f.login(t, "student1@demo.edu")

	rec := f.do(http.MethodGet, "/api/student/forms", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var forms []models.Form
	decode(t, rec, &forms)
	require.Len(t, forms, 1)

	first := f.start(t, token)
	v := first.Step
	assert.Equal(t, 0, v.Step)
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, "ready", v.State)
	assert.Equal(t, f.demo.Subjects[0].ID, v.Subject.ID)
	assert.Equal(t, f.demo.Faculty[0].Name, v.Faculty.Name)
	require.Len(t, v.Questions, 3)

	// незаполненная форма
	code, _ := f.submit(t, token, v.Epoch)
	assert.Equal(t, http.StatusBadRequest, code)
	rec = f.do(http.MethodGet, formPath(f.demo.Form.ID, "step"), token)
	var cur stepResp
	decode(t, rec, &cur)
	assert.Equal(t, "validation_error", cur.Step.State)
	assert.Equal(t, feedback.MsgIncomplete, cur.Step.Error)
	assert.Zero(t, f.store.Calls("InsertResponse"))

	f.answerAll(t, token, v)
	code, adv := f.submit(t, token, v.Epoch)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "advanced", adv.Outcome)
	assert.Equal(t, feedback.MsgSubmitted, adv.Message)
	require.NotNil(t, adv.Step)
	assert.Equal(t, 1, adv.Step.Step)
	assert.True(t, adv.Step.Epoch > v.Epoch)

	// старая эпоха больше не принимается
	rec = f.do(http.MethodPut, formPath(f.demo.Form.ID, "answers"), token,
		marshalObj(t, map[string]any{"epoch": v.Epoch, "question_id": v.Questions[0].ID, "option": v.Questions[0].Options[0]}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.answerAll(t, token, adv.Step)
	code, done := f.submit(t, token, adv.Step.Epoch)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", done.Outcome)
	assert.True(t, done.ToFormList)
	assert.Nil(t, done.Step)

	// мастер закрыт
	rec = f.do(http.MethodGet, formPath(f.demo.Form.ID, "step"), token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	again := f.start(t, token)
	assert.True(t, again.Step.AlreadySubmitted)
	assert.Equal(t, "already_submitted", again.Step.State)

	code, _ = f.submit(t, token, again.Step.Epoch)
	assert.Equal(t, http.StatusConflict, code)

	delPath := fmt.Sprintf("%s?epoch=%d", formPath(f.demo.Form.ID, "response"), again.Step.Epoch)
	rec = f.do(http.MethodDelete, delPath, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var noop stepResp
	decode(t, rec, &noop)
	assert.Equal(t, "none", noop.Outcome)
	assert.Zero(t, f.store.Calls("DeleteResponses"))

	rec = f.do(http.MethodDelete, delPath+"&confirm=true", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var del stepResp
	decode(t, rec, &del)
	assert.Equal(t, "deleted", del.Outcome)
	assert.Equal(t, feedback.MsgDeleted, del.Message)
	assert.True(t, del.ToFormList)

	fresh := f.start(t, token)
	assert.Equal(t, "ready", fresh.Step.State)
	assert.False(t, fresh.Step.AlreadySubmitted)
}

func TestStudentWizard_Navigation(t *testing.T) {
	f := setup(t)
	token := f.login(t, "student2@demo.edu")

	s := f.start(t, token)
	rec := f.do(http.MethodPost, formPath(f.demo.Form.ID, "back"), token, marshalObj(t, map[string]any{"epoch": s.Step.Epoch}))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "назад с первого шага недоступно")

	rec = f.do(http.MethodPost, formPath(f.demo.Form.ID, "next"), token, marshalObj(t, map[string]any{"epoch": s.Step.Epoch}))
	assert.Equal(t, http.StatusConflict, rec.Code, "неотправленный предмет не пропускается")

	f.answerAll(t, token, s.Step)
	_, adv := f.submit(t, token, s.Step.Epoch)
	require.NotNil(t, adv.Step)

	rec = f.do(http.MethodPost, formPath(f.demo.Form.ID, "back"), token, marshalObj(t, map[string]any{"epoch": adv.Step.Epoch}))
	require.Equal(t, http.StatusOK, rec.Code)
	var back stepResp
	decode(t, rec, &back)
	assert.Equal(t, "retreated", back.Outcome)
	assert.Equal(t, 0, back.Step.Step)
	assert.True(t, back.Step.AlreadySubmitted)

	rec = f.do(http.MethodPost, formPath(f.demo.Form.ID, "next"), token, marshalObj(t, map[string]any{"epoch": back.Step.Epoch}))
	require.Equal(t, http.StatusOK, rec.Code)
	var next stepResp
	decode(t, rec, &next)
	assert.Equal(t, "advanced", next.Outcome)
	assert.Equal(t, 1, next.Step.Step)

	rec = f.do(http.MethodPut, formPath(f.demo.Form.ID, "answers"), token,
		marshalObj(t, map[string]any{"epoch": next.Step.Epoch, "question_id": next.Step.Questions[0].ID, "option": "Not an option"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentWizard_EmptyStates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	other, err := f.store.UpsertClassroom(ctx, models.Classroom{Name: "CSE 7B", DepartmentID: f.demo.Classroom.DepartmentID})
	require.NoError(t, err)
	lonely, err := f.store.UpsertStudent(ctx, models.Student{
		Name: "Lonely", Email: "lonely@demo.edu", DepartmentID: other.DepartmentID, ClassroomID: other.ID, USN: "X1",
	})
	require.NoError(t, err)
	require.NoError(t, f.ids.SetPassword(ctx, lonely.Email, demoPassword))
	empty, err := f.store.UpsertForm(ctx, models.Form{Name: "Empty", ClassroomID: other.ID})
	require.NoError(t, err)

	token := f.login(t, lonely.Email)
	notFound := marshalObj(t, httpErr{Error: feedback.MsgFormNotFound})
	f.run(t, []httpTest{
		{"missing form", http.MethodPost, formPath(9999, "start"), nil, token, http.StatusNotFound, notFound},
		{"other classroom", http.MethodPost, formPath(f.demo.Form.ID, "start"), nil, token, http.StatusNotFound, notFound},
		{
			"no subjects", http.MethodPost, formPath(empty.ID, "start"), nil, token, http.StatusOK,
			marshalObj(t, map[string]any{"outcome": "none", "to_form_list": false, "no_subjects": true, "message": feedback.MsgNoSubjects}),
		},
		{"bad id", http.MethodPost, "/api/student/forms/abc/start", nil, token, http.StatusBadRequest, marshalObj(t, httpErr{Error: "invalid id"})},
	})
}

func TestStudentWizard_SaveFailure(t *testing.T) {
	f := setup(t)
	token := f.login(t, "student3@demo.edu")
	s := f.start(t, token)
	f.answerAll(t, token, s.Step)

	f.store.Fail("InsertResponse", errors.New("connection reset"))
	code, _ := f.submit(t, token, s.Step.Epoch)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	f.store.Fail("InsertResponse", nil)
	code, out := f.submit(t, token, s.Step.Epoch)
	assert.Equal(t, http.StatusOK, code, "ответы сохранились, можно повторить")
	assert.Equal(t, "advanced", out.Outcome)
}

func TestAdminCRUD(t *testing.T) {
	f := setup(t)
	admin := f.login(t, adminEmail)

	f.run(t, []httpTest{
		{
			"create department", http.MethodPost, "/api/admin/departments", []byte(`{"department_name": "Mechanical"}`), admin,
			http.StatusOK, []byte(`{"department_id": 2, "department_name": "Mechanical"}`),
		},
		{
			"update department", http.MethodPost, "/api/admin/departments", []byte(`{"department_id": 2, "department_name": "Mech"}`), admin,
			http.StatusOK, []byte(`{"department_id": 2, "department_name": "Mech"}`),
		},
		{
			"department validation", http.MethodPost, "/api/admin/departments", []byte(`{}`), admin,
			http.StatusBadRequest, marshalObj(t, map[string]string{"department_name": "department_name is a required field"}),
		},
		{
			"classroom with missing department", http.MethodPost, "/api/admin/classrooms", []byte(`{"classroom_name": "X", "department_id": 77}`), admin,
			http.StatusConflict, marshalObj(t, httpErr{Error: "the record conflicts with related records"}),
		},
		{
			"duplicate faculty email", http.MethodPost, "/api/admin/faculty",
			[]byte(`{"name": "Dup", "department_id": 1, "email": "faculty1@demo.edu"}`), admin,
			http.StatusConflict, marshalObj(t, httpErr{Error: "a record with the same unique value already exists"}),
		},
		{
			"question needs two options", http.MethodPost, "/api/admin/questions", []byte(`{"question_name": "Q", "question_options": ["A"]}`), admin,
			http.StatusBadRequest, marshalObj(t, map[string]string{"question_options": "question_options must contain at least 2 items"}),
		},
		{"delete department", http.MethodDelete, "/api/admin/departments/2", nil, admin, http.StatusNoContent, nil},
		{"delete missing", http.MethodDelete, "/api/admin/departments/2", nil, admin, http.StatusNotFound, marshalObj(t, httpErr{Error: "not found"})},
		{"subjects need classroom", http.MethodGet, "/api/admin/subjects", nil, admin, http.StatusBadRequest,
			marshalObj(t, map[string]string{"classroom_id": "classroom_id is required"})},
		{"responses of missing form", http.MethodGet, "/api/admin/forms/999/responses", nil, admin, http.StatusNotFound, nil},
	})

	rec := f.do(http.MethodGet, fmt.Sprintf("/api/admin/subjects?classroom_id=%d", f.demo.Classroom.ID), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []models.Subject
	decode(t, rec, &subs)
	assert.Len(t, subs, 2)
}

func TestAdminCredentials(t *testing.T) {
	f := setup(t)
	admin := f.login(t, adminEmail)

	f.run(t, []httpTest{
		{
			"weak password", http.MethodPut, "/api/admin/credentials", []byte(`{"email": "student1@demo.edu", "password": "abc"}`), admin,
			http.StatusBadRequest, marshalObj(t, map[string]string{"password": "password must be at least 6 characters"}),
		},
		{"set password", http.MethodPut, "/api/admin/credentials", []byte(`{"email": "student1@demo.edu", "password": "brand-new"}`), admin,
			http.StatusNoContent, nil},
		{"remove credential", http.MethodDelete, "/api/admin/credentials/student2@demo.edu", nil, admin, http.StatusNoContent, nil},
		{"remove missing credential", http.MethodDelete, "/api/admin/credentials/nobody@demo.edu", nil, admin, http.StatusNotFound, nil},
	})

	rec := f.do(http.MethodPost, "/api/login", "", []byte(`{"email": "student1@demo.edu", "password": "brand-new"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodPost, "/api/login", "", marshalObj(t, map[string]string{"email": "student2@demo.edu", "password": demoPassword}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResponsesExportAndSummary(t *testing.T) {
	f := setup(t)
	student := f.login(t, "student1@demo.edu")
	s := f.start(t, student)
	f.answerAll(t, student, s.Step)
	code, _ := f.submit(t, student, s.Step.Epoch)
	require.Equal(t, http.StatusOK, code)

	admin := f.login(t, adminEmail)
	rec := f.do(http.MethodGet, fmt.Sprintf("/api/admin/forms/%d/responses", f.demo.Form.ID), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var rs []models.Response
	decode(t, rec, &rs)
	require.Len(t, rs, 1)
	assert.Len(t, rs[0].Response, 3)

	rec = f.do(http.MethodGet, fmt.Sprintf("/api/admin/forms/%d/responses.xlsx", f.demo.Form.ID), admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(export.ResponsesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// сводка только по своим предметам
	faculty := f.login(t, "faculty1@demo.edu")
	rec = f.do(http.MethodGet, fmt.Sprintf("/api/faculty/subjects/%d/summary", f.demo.Subjects[0].ID), faculty)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum feedback.SubjectSummary
	decode(t, rec, &sum)
	assert.Equal(t, 1, sum.Responses)
	require.Len(t, sum.Questions, 3)
	assert.Equal(t, 1, sum.Questions[0].Options[0].Count)

	rec = f.do(http.MethodGet, fmt.Sprintf("/api/faculty/subjects/%d/summary", f.demo.Subjects[1].ID), faculty)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/faculty/subjects", faculty)
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []models.Subject
	decode(t, rec, &subs)
	require.Len(t, subs, 1)
	assert.Equal(t, f.demo.Subjects[0].ID, subs[0].ID)
}
