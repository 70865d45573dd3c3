package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	. "github.com/Spok95/course-feedback/internal/api"
	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/identity"
	"github.com/Spok95/course-feedback/internal/session"
	"github.com/Spok95/course-feedback/internal/testutil/memstore"
)

var (
	_ Store       = (*db.Store)(nil)
	_ Store       = (*memstore.Store)(nil)
	_ Credentials = (*identity.Service)(nil)
)

const (
	demoPassword = "secret-pass"
	adminEmail   = "admin@demo.edu"
)

type fixture struct {
	srv   Server
	store *memstore.Store
	ids   *identity.Service
	demo  db.Demo
}

func setup(t *testing.T, mods ...func(*Options)) fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	demo, err := db.SeedDemo(ctx, store)
	require.NoError(t, err)

	ids := identity.NewService(store).WithCost(bcrypt.MinCost)
	for _, email := range demo.Emails() {
		require.NoError(t, ids.SetPassword(ctx, email, demoPassword))
	}
	_, err = store.EnsureAdmin(ctx, "Admin", adminEmail)
	require.NoError(t, err)
	require.NoError(t, ids.SetPassword(ctx, adminEmail, demoPassword))

	resolver := session.NewResolver(ids, store, nil)
	opts := &Options{
		DisableReqLogs: true,
		Store:          store,
		Sessions:       session.NewManager(resolver, time.Hour, nil),
		Feedback:       feedback.NewService(store, nil),
		Credentials:    ids,
	}
	for _, mod := range mods {
		mod(opts)
	}
	srv := NewServer(opts)
	return fixture{srv: srv, store: store, ids: ids, demo: demo}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func (f fixture) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f fixture) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func (f fixture) login(t *testing.T, email string) string {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/login", "", marshalObj(t, map[string]string{"email": email, "password": demoPassword}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	decode(t, rec, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func marshalObj(t *testing.T, obj any) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 any
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
