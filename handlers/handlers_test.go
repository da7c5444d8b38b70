package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/database"
	"taskboard/services"
	"taskboard/utilities"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":     "abc",
		"bearer  abc ":   "abc",
		"Basic dXNlcjpw": "",
		"abc":            "",
		"":               "",
	}
	for header, want := range cases {
		r := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, bearerToken(r), header)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[services.Code]int{
		services.CodeNotFound:        http.StatusNotFound,
		services.CodeUnauthorized:    http.StatusForbidden,
		services.CodeUnauthenticated: http.StatusUnauthorized,
		services.CodeDuplicateName:   http.StatusBadRequest,
		services.CodeHasDependents:   http.StatusBadRequest,
		services.CodeNoChanges:       http.StatusBadRequest,
		services.CodeValidation:      http.StatusBadRequest,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusFor(&services.Result{Code: code}, http.StatusOK), code)
	}
	assert.Equal(t, http.StatusCreated, statusFor(&services.Result{Success: true}, http.StatusCreated))
}

func TestWriteResultHidesInfrastructureErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeResult(rec, "test", nil, errors.New("connection refused"), http.StatusOK)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "connection refused")

	var res services.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
}

func TestDecodeBody(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(""))
	f := decodeBody(r, &v)
	require.NotNil(t, f)
	assert.Equal(t, "request body is required", f.Message)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"name": 1}`))
	f = decodeBody(r, &v)
	require.NotNil(t, f)
	assert.Equal(t, services.CodeValidation, f.Code)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"name": "ok"}`))
	assert.Nil(t, decodeBody(r, &v))
	assert.Equal(t, "ok", v.Name)
}

func TestPageParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/workspaces?skip=5&limit=10&all=1", nil)
	page, all, f := pageParams(r)
	require.Nil(t, f)
	assert.Equal(t, services.Page{Skip: 5, Limit: 10}, page)
	assert.True(t, all)

	r = httptest.NewRequest("GET", "/workspaces", nil)
	page, all, f = pageParams(r)
	require.Nil(t, f)
	assert.Equal(t, services.Page{}, page)
	assert.False(t, all)

	for _, query := range []string{"skip=x", "limit=1.5", "all=maybe"} {
		_, _, f = pageParams(httptest.NewRequest("GET", "/workspaces?"+query, nil))
		require.NotNil(t, f, query)
		assert.Equal(t, services.CodeValidation, f.Code)
	}
}

func TestLoggingMiddlewareKeepsStatus(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := utilities.Logger()
	t.Cleanup(func() {
		utilities.SetOutput(os.Stdout)
		utilities.SetLevel(prev.GetLevel().String())
	})
	utilities.SetOutput(&buf)
	utilities.SetLevel("info")

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("DELETE", "/workspaces/x", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.EqualValues(t, http.StatusNotFound, line["status"])
	assert.Equal(t, "DELETE", line["method"])
	assert.Equal(t, "/workspaces/x", line["path"])
}

type downStore struct{ database.Store }

func (downStore) Ping(context.Context) error { return errors.New("no route to host") }

func TestReadyHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	New(nil, nil, database.NewMemoryStore()).ReadyHandler(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	New(nil, nil, downStore{}).ReadyHandler(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// outageProvider fails every call the way an unreachable provider would.
type outageProvider struct{}

func (outageProvider) CreateUser(context.Context, string, string, string) (string, error) {
	return "", errors.New("unavailable")
}
func (outageProvider) DeleteUser(context.Context, string) error { return errors.New("unavailable") }
func (outageProvider) SignIn(context.Context, string, string) (*services.Session, error) {
	return nil, errors.New("unavailable")
}
func (outageProvider) VerifyToken(context.Context, string) (*services.Identity, error) {
	return nil, errors.New("unavailable")
}
func (outageProvider) RevokeTokens(context.Context, string) error { return errors.New("unavailable") }

func TestAuthMiddleware(t *testing.T) {
	store := database.NewMemoryStore()
	h := New(nil, services.NewAccounts(store, outageProvider{}, nil), store)
	called := false
	protected := h.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer something")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, called)
}

func TestCurrentActorWithoutMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := currentActor(rec, httptest.NewRequest("GET", "/", bytes.NewReader(nil)))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ctx := withActor(context.Background(), services.Actor{UserID: "u1"})
	actor, ok := ActorFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", actor.UserID)
}
