package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/quizmind/apiserver/internal/auth"
	"github.com/quizmind/apiserver/internal/handlers"
	"github.com/quizmind/apiserver/internal/llm"
	"github.com/quizmind/apiserver/internal/logging"
	"github.com/quizmind/apiserver/internal/services"
	"github.com/quizmind/apiserver/internal/services/servicestest"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router http.Handler
	tokens *auth.TokenService
}

func newTestEnv(t *testing.T, gen llm.Generator, quizTimeout time.Duration) *testEnv {
	t.Helper()
	logger := logging.Discard()
	mem := servicestest.NewMemory()

	tokens, err := auth.NewTokenService([]byte("handler-test-secret"))
	require.NoError(t, err)

	users := services.NewUserService(mem.Users(), tokens, time.Minute)
	prefs := services.NewPreferenceService(mem.Preferences(), mem.Topics(), nil, logger)
	quizzes := services.NewQuizService(mem.Preferences(), gen, services.QuizOptions{
		QuestionCount: 3,
		Timeout:       quizTimeout,
	}, logger)

	r := chi.NewRouter()
	r.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(r, users, tokens, logger)
	requireUser := handlers.RequireUser(users, tokens, logger)
	handlers.PreferenceRouter(r, prefs, requireUser, logger)
	handlers.QuizRouter(r, quizzes, requireUser, logger)

	return &testEnv{router: r, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signupAndLogin registers an account and returns its access token.
func (e *testEnv) signupAndLogin(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/signup", map[string]string{
		"email":      email,
		"password":   "hunter2",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/login", map[string]string{"email": email, "password": "hunter2"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[handlers.ErrorResponse](t, rec).Detail
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
