package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/quizmind/apiserver/internal/llm"
	"github.com/quizmind/apiserver/internal/mq"
	"github.com/quizmind/apiserver/internal/store"
	"github.com/quizmind/apiserver/types"
)

const (
	defaultQuestionCount   = 5
	defaultGenerateTimeout = 30 * time.Second
	failureArchivePrefix   = "generation-failures"
)

// QuizPreferenceReader loads a preference with its topics.
type QuizPreferenceReader interface {
	GetByUserID(ctx context.Context, userID int) (types.Preference, error)
}

// Archiver stores a text blob under key.
type Archiver interface {
	PutText(ctx context.Context, key, text string) error
}

// QuizOptions configures a QuizService. Archive and Events are optional.
type QuizOptions struct {
	QuestionCount int
	Timeout       time.Duration
	Archive       Archiver
	Events        EventPublisher
}

// QuizService turns stored preferences into generated quiz questions.
type QuizService struct {
	prefs         QuizPreferenceReader
	generator     llm.Generator
	archive       Archiver
	events        EventPublisher
	logger        *slog.Logger
	questionCount int
	timeout       time.Duration
	now           func() time.Time
}

func NewQuizService(prefs QuizPreferenceReader, generator llm.Generator, opts QuizOptions, logger *slog.Logger) *QuizService {
	count := opts.QuestionCount
	if count <= 0 {
		count = defaultQuestionCount
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &QuizService{
		prefs:         prefs,
		generator:     generator,
		archive:       opts.Archive,
		events:        opts.Events,
		logger:        logger,
		questionCount: count,
		timeout:       timeout,
		now:           time.Now,
	}
}

// GenerateQuiz builds a prompt from the user's preference, calls the model
// once and returns the validated questions. Nothing is persisted.
func (s *QuizService) GenerateQuiz(ctx context.Context, userID int) ([]types.QuizQuestion, error) {
	pref, err := s.prefs.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("load preference: %w", err)
	}

	topicNames := pref.TopicNames()
	if len(topicNames) == 0 {
		return nil, ErrNoTopics
	}

	prompt, err := buildQuizPrompt(s.questionCount, pref)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	questions, err := parseQuizResponse(raw, pref.QuizFormat)
	if err != nil {
		s.logger.Warn("model response rejected", "user_id", userID, "error", err)
		s.archiveResponse(ctx, userID, raw)
		return nil, fmt.Errorf("%w: %w", ErrGenerationParse, err)
	}

	for _, q := range questions {
		if !slices.Contains(topicNames, q.Topic) {
			s.logger.Warn("question topic not in preferences", "user_id", userID, "topic", q.Topic)
		}
	}

	s.publishGenerated(ctx, pref, len(topicNames), len(questions))
	return questions, nil
}

func (s *QuizService) generate(ctx context.Context, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.generator.GenerateText(genCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrGenerationTimeout, err)
		}
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return raw, nil
}

func (s *QuizService) archiveResponse(ctx context.Context, userID int, raw string) {
	if s.archive == nil {
		return
	}
	key := fmt.Sprintf("%s/%d/%d.txt", failureArchivePrefix, userID, s.now().UnixNano())
	if err := s.archive.PutText(ctx, key, raw); err != nil {
		s.logger.Error("archive model response failed", "key", key, "error", err)
		return
	}
	s.logger.Info("archived model response", "key", key)
}

func (s *QuizService) publishGenerated(ctx context.Context, pref types.Preference, topicCount, questionCount int) {
	if s.events == nil {
		return
	}
	event := types.QuizGeneratedEvent{
		UserID:          pref.UserID,
		DifficultyLevel: pref.DifficultyLevel,
		QuizFormat:      pref.QuizFormat,
		TopicCount:      topicCount,
		QuestionCount:   questionCount,
	}
	if err := s.events.PublishJSON(ctx, mq.ChannelQuizGenerated, event); err != nil {
		s.logger.Warn("publish quiz event failed", "user_id", pref.UserID, "error", err)
	}
}
