package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quizmind/apiserver/internal/llm"
	"github.com/quizmind/apiserver/internal/logging"
	"github.com/quizmind/apiserver/internal/mq"
	"github.com/quizmind/apiserver/internal/services"
	"github.com/quizmind/apiserver/internal/services/servicestest"
	"github.com/quizmind/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validMCQResponse = `{"questions": [
	{"question": "What does go vet do?", "options": ["Lints", "Builds", "Runs", "Formats"], "correct": "Lints", "topic": "Go"},
	{"question": "Which clause filters rows?", "options": ["WHERE", "FROM", "SELECT", "ORDER BY"], "correct": "WHERE", "topic": "SQL"}
]}`

type quizFixture struct {
	mem    *servicestest.Memory
	userID int
}

// newQuizFixture stores a user whose preference covers the given topics.
func newQuizFixture(t *testing.T, format string, topicNames ...string) quizFixture {
	t.Helper()
	ctx := context.Background()
	mem := servicestest.NewMemory()

	user, err := mem.Users().Create(ctx, types.User{Email: "ada@example.com"})
	require.NoError(t, err)

	var ids []int
	for _, name := range topicNames {
		topic, err := mem.Topics().Create(ctx, types.Topic{Name: name})
		require.NoError(t, err)
		ids = append(ids, topic.ID)
	}
	_, err = mem.Preferences().Create(ctx, types.Preference{
		UserID:          user.ID,
		DifficultyLevel: "medium",
		QuizFormat:      format,
	}, ids)
	require.NoError(t, err)

	return quizFixture{mem: mem, userID: user.ID}
}

func (f quizFixture) service(gen llm.Generator, opts services.QuizOptions) *services.QuizService {
	return services.NewQuizService(f.mem.Preferences(), gen, opts, logging.Discard())
}

func TestQuizService_GenerateQuiz(t *testing.T) {
	f := newQuizFixture(t, types.QuizFormatMCQ, "Go", "SQL")
	gen := &servicestest.Generator{Response: validMCQResponse}
	events := &servicestest.Publisher{}

	questions, err := f.service(gen, services.QuizOptions{QuestionCount: 2, Events: events}).GenerateQuiz(context.Background(), f.userID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "Lints", questions[0].Correct)
	assert.Equal(t, "SQL", questions[1].Topic)

	prompts := gen.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Generate 2 quiz questions.")
	assert.Contains(t, prompts[0], "Topics: Go, SQL")
	assert.Contains(t, prompts[0], "Difficulty: medium")
	assert.Contains(t, prompts[0], "exactly four options")

	published := events.Events()
	require.Len(t, published, 1)
	assert.Equal(t, mq.ChannelQuizGenerated, published[0].Channel)
	var event types.QuizGeneratedEvent
	require.NoError(t, json.Unmarshal(published[0].Payload, &event))
	assert.Equal(t, types.QuizGeneratedEvent{
		UserID:          f.userID,
		DifficultyLevel: "medium",
		QuizFormat:      types.QuizFormatMCQ,
		TopicCount:      2,
		QuestionCount:   2,
	}, event)
}

func TestQuizService_DefaultQuestionCount(t *testing.T) {
	f := newQuizFixture(t, types.QuizFormatMCQ, "Go")
	gen := &servicestest.Generator{Response: validMCQResponse}

	_, err := f.service(gen, services.QuizOptions{}).GenerateQuiz(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Contains(t, gen.Prompts()[0], "Generate 5 quiz questions.")
}

func TestQuizService_TrueFalseWithStub(t *testing.T) {
	f := newQuizFixture(t, types.QuizFormatTrueFalse, "History")

	questions, err := f.service(llm.NewStubClient(), services.QuizOptions{QuestionCount: 3}).GenerateQuiz(context.Background(), f.userID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	for _, q := range questions {
		assert.Equal(t, []string{"true", "false"}, q.Options)
		assert.Equal(t, "History", q.Topic)
	}
}

func TestQuizService_MissingCorrectIsParseError(t *testing.T) {
	f := newQuizFixture(t, types.QuizFormatMCQ, "Go")
	response := `{"questions": [
		{"question": "Q1", "options": ["a", "b", "c", "d"], "correct": "a", "topic": "Go"},
		{"question": "Q2", "options": ["a", "b", "c", "d"], "topic": "Go"}
	]}`
	archive := &servicestest.Archive{}

	questions, err := f.service(&servicestest.Generator{Response: response}, services.QuizOptions{Archive: archive}).
		GenerateQuiz(context.Background(), f.userID)
	require.ErrorIs(t, err, services.ErrGenerationParse)
	assert.Nil(t, questions)

	require.Len(t, archive.Objects, 1)
	for key, text := range archive.Objects {
		assert.True(t, strings.HasPrefix(key, "generation-failures/"), key)
		assert.True(t, strings.HasSuffix(key, ".txt"), key)
		assert.Equal(t, response, text)
	}
}

func TestQuizService_ArchiveFailureKeepsParseError(t *testing.T) {
	f := newQuizFixture(t, types.QuizFormatMCQ, "Go")
	archive := &servicestest.Archive{Err: errors.New("bucket missing")}

	_, err := f.service(&servicestest.Generator{Response: "Sorry, I can't help."}, services.QuizOptions{Archive: archive}).
		GenerateQuiz(context.Background(), f.userID)
	require.ErrorIs(t, err, services.ErrGenerationParse)
}

func TestQuizService_Timeout(t *testing.T) {
	f := newQuizFixture(t, types.QuizFormatMCQ, "Go")
	gen := &servicestest.Generator{Response: validMCQResponse, Delay: time.Second}

	start := time.Now()
	_, err := f.service(gen, services.QuizOptions{Timeout: 20 * time.Millisecond}).GenerateQuiz(context.Background(), f.userID)
	require.ErrorIs(t, err, services.ErrGenerationTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestQuizService_ProviderFailure(t *testing.T) {
	f := newQuizFixture(t, types.QuizFormatMCQ, "Go")
	gen := &servicestest.Generator{Err: llm.ErrEmptyResponse}

	_, err := f.service(gen, services.QuizOptions{}).GenerateQuiz(context.Background(), f.userID)
	require.ErrorIs(t, err, services.ErrGenerationFailed)
	require.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestQuizService_MissingPreferenceOrTopics(t *testing.T) {
	ctx := context.Background()
	mem := servicestest.NewMemory()
	gen := &servicestest.Generator{Response: validMCQResponse}
	svc := services.NewQuizService(mem.Preferences(), gen, services.QuizOptions{}, logging.Discard())

	_, err := svc.GenerateQuiz(ctx, 42)
	require.ErrorIs(t, err, services.ErrPreferenceNotFound)

	_, err = mem.Preferences().Create(ctx, types.Preference{UserID: 42, QuizFormat: types.QuizFormatMCQ}, nil)
	require.NoError(t, err)

	_, err = svc.GenerateQuiz(ctx, 42)
	require.ErrorIs(t, err, services.ErrNoTopics)
	assert.Empty(t, gen.Prompts())
}
