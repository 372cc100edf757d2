package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/quizmind/apiserver/internal/handlers"
	"github.com/quizmind/apiserver/internal/llm"
	"github.com/quizmind/apiserver/internal/services/servicestest"
	"github.com/quizmind/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupQuizUser signs up a user with an MCQ preference over two topics and
// returns the token and the user id.
func setupQuizUser(t *testing.T, env *testEnv) (string, int) {
	t.Helper()
	token := env.signupAndLogin(t, "ada@example.com")
	t1 := createTopic(t, env, token, "Go")
	t2 := createTopic(t, env, token, "SQL")

	rec := env.do(t, http.MethodPost, "/preferences", map[string]any{
		"difficulty_level": "easy",
		"quiz_format":      types.QuizFormatMCQ,
		"topics":           []int{t1.ID, t2.ID},
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/dashboard", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	return token, decodeBody[types.User](t, rec).ID
}

func TestGenerateQuiz_WithStub(t *testing.T) {
	env := newTestEnv(t, llm.NewStubClient(), time.Second)
	token, userID := setupQuizUser(t, env)

	for _, path := range []string{"/generate-quiz", fmt.Sprintf("/generate-quiz?user_id=%d", userID)} {
		rec := env.do(t, http.MethodPost, path, nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decodeBody[handlers.QuizResponse](t, rec)
		require.Len(t, resp.Quiz, 3)
		for _, q := range resp.Quiz {
			assert.Len(t, q.Options, 4)
			assert.Contains(t, q.Options, q.Correct)
			assert.Contains(t, []string{"Go", "SQL"}, q.Topic)
		}
	}
}

func TestGenerateQuiz_UserIDParam(t *testing.T) {
	env := newTestEnv(t, llm.NewStubClient(), time.Second)
	token, userID := setupQuizUser(t, env)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/generate-quiz?user_id=%d", userID+1), nil, token)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/generate-quiz?user_id=me", nil, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateQuiz_NoPreferences(t *testing.T) {
	env := newTestEnv(t, llm.NewStubClient(), time.Second)
	token := env.signupAndLogin(t, "ada@example.com")

	rec := env.do(t, http.MethodPost, "/generate-quiz", nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User preferences not found", detail(t, rec))
}

func TestGenerateQuiz_NoTopics(t *testing.T) {
	env := newTestEnv(t, llm.NewStubClient(), time.Second)
	token := env.signupAndLogin(t, "ada@example.com")

	rec := env.do(t, http.MethodPost, "/preferences", map[string]any{
		"difficulty_level": "easy",
		"quiz_format":      types.QuizFormatMCQ,
		"topics":           []int{},
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/generate-quiz", nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateQuiz_ModelFailures(t *testing.T) {
	tests := []struct {
		name     string
		gen      *servicestest.Generator
		wantCode int
	}{
		{
			name:     "missing correct",
			gen:      &servicestest.Generator{Response: `[{"question":"Q","options":["a","b","c","d"],"topic":"Go"}]`},
			wantCode: http.StatusBadGateway,
		},
		{
			name:     "provider error",
			gen:      &servicestest.Generator{Err: llm.ErrEmptyResponse},
			wantCode: http.StatusBadGateway,
		},
		{
			name:     "timeout",
			gen:      &servicestest.Generator{Response: "[]", Delay: time.Second},
			wantCode: http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.gen, 20*time.Millisecond)
			token, _ := setupQuizUser(t, env)

			rec := env.do(t, http.MethodPost, "/generate-quiz", nil, token)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.NotEmpty(t, detail(t, rec))
		})
	}
}
