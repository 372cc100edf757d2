package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quizmind/apiserver/internal/mq"
	"github.com/quizmind/apiserver/internal/store"
	"github.com/quizmind/apiserver/types"
)

// PreferenceRepository defines persistence operations for preferences and
// their topic associations.
type PreferenceRepository interface {
	GetByUserID(ctx context.Context, userID int) (types.Preference, error)
	Create(ctx context.Context, pref types.Preference, topicIDs []int) (types.Preference, error)
	Replace(ctx context.Context, pref types.Preference, topicIDs []int) (types.Preference, error)
}

// TopicRepository defines persistence operations for topics.
type TopicRepository interface {
	GetByName(ctx context.Context, name string) (types.Topic, error)
	GetByIDs(ctx context.Context, ids []int) ([]types.Topic, error)
	List(ctx context.Context) ([]types.Topic, error)
	Create(ctx context.Context, topic types.Topic) (types.Topic, error)
}

// EventPublisher publishes JSON events to a named channel.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, event any) error
}

// PreferenceInput is the body of a create or update request.
type PreferenceInput struct {
	DifficultyLevel string
	QuizFormat      string
	TopicIDs        []int
}

// PreferenceService encapsulates preference and topic use-cases.
type PreferenceService struct {
	prefs  PreferenceRepository
	topics TopicRepository
	events EventPublisher
	logger *slog.Logger
}

// NewPreferenceService builds the service. events may be nil.
func NewPreferenceService(prefs PreferenceRepository, topics TopicRepository, events EventPublisher, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{
		prefs:  prefs,
		topics: topics,
		events: events,
		logger: logger,
	}
}

// CreatePreference stores the first preference of a user together with its
// topic set.
func (s *PreferenceService) CreatePreference(ctx context.Context, userID int, in PreferenceInput) (types.Preference, error) {
	if _, err := s.prefs.GetByUserID(ctx, userID); err == nil {
		return types.Preference{}, ErrDuplicatePreference
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Preference{}, fmt.Errorf("check preference: %w", err)
	}

	ids, topics, err := s.resolveTopics(ctx, in.TopicIDs)
	if err != nil {
		return types.Preference{}, err
	}

	pref, err := s.prefs.Create(ctx, types.Preference{
		UserID:          userID,
		DifficultyLevel: in.DifficultyLevel,
		QuizFormat:      in.QuizFormat,
	}, ids)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return types.Preference{}, ErrDuplicatePreference
		case errors.Is(err, store.ErrForeignKey):
			return types.Preference{}, ErrUnknownTopic
		}
		return types.Preference{}, fmt.Errorf("create preference: %w", err)
	}
	pref.Topics = topics

	s.publishChanged(ctx, userID, "created", ids)
	return pref, nil
}

// GetPreference returns the user's preference with its topics.
func (s *PreferenceService) GetPreference(ctx context.Context, userID int) (types.Preference, error) {
	pref, err := s.prefs.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Preference{}, ErrPreferenceNotFound
		}
		return types.Preference{}, err
	}
	return pref, nil
}

// UpdatePreference replaces difficulty, format and the whole topic set of an
// existing preference.
func (s *PreferenceService) UpdatePreference(ctx context.Context, userID int, in PreferenceInput) (types.Preference, error) {
	if _, err := s.GetPreference(ctx, userID); err != nil {
		return types.Preference{}, err
	}

	ids, topics, err := s.resolveTopics(ctx, in.TopicIDs)
	if err != nil {
		return types.Preference{}, err
	}

	pref, err := s.prefs.Replace(ctx, types.Preference{
		UserID:          userID,
		DifficultyLevel: in.DifficultyLevel,
		QuizFormat:      in.QuizFormat,
	}, ids)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return types.Preference{}, ErrPreferenceNotFound
		case errors.Is(err, store.ErrForeignKey):
			return types.Preference{}, ErrUnknownTopic
		}
		return types.Preference{}, fmt.Errorf("replace preference: %w", err)
	}
	pref.Topics = topics

	s.publishChanged(ctx, userID, "updated", ids)
	return pref, nil
}

// CreateTopic stores a topic. Names are compared exactly.
func (s *PreferenceService) CreateTopic(ctx context.Context, name string) (types.Topic, error) {
	if _, err := s.topics.GetByName(ctx, name); err == nil {
		return types.Topic{}, ErrDuplicateTopic
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Topic{}, fmt.Errorf("check topic: %w", err)
	}

	topic, err := s.topics.Create(ctx, types.Topic{Name: name})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Topic{}, ErrDuplicateTopic
		}
		return types.Topic{}, fmt.Errorf("create topic: %w", err)
	}
	return topic, nil
}

func (s *PreferenceService) ListTopics(ctx context.Context) ([]types.Topic, error) {
	return s.topics.List(ctx)
}

// resolveTopics de-duplicates ids and loads the matching topics. Every id
// must exist.
func (s *PreferenceService) resolveTopics(ctx context.Context, topicIDs []int) ([]int, []types.Topic, error) {
	ids := uniqueIDs(topicIDs)
	topics, err := s.topics.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load topics: %w", err)
	}
	if len(topics) != len(ids) {
		return nil, nil, ErrUnknownTopic
	}
	return ids, topics, nil
}

func (s *PreferenceService) publishChanged(ctx context.Context, userID int, action string, topicIDs []int) {
	if s.events == nil {
		return
	}
	event := types.PreferencesChangedEvent{UserID: userID, Action: action, TopicIDs: topicIDs}
	if err := s.events.PublishJSON(ctx, mq.ChannelPreferencesChanged, event); err != nil {
		s.logger.Warn("publish preferences event failed", "user_id", userID, "error", err)
	}
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
