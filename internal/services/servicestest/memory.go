// Package servicestest provides in-memory implementations of the service
// dependencies. They follow the store package's error contract so services
// and handlers can be tested without a database.
package servicestest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quizmind/apiserver/internal/store"
	"github.com/quizmind/apiserver/types"
)

// Memory holds all records. Users, Topics and Preferences expose it through
// the repository interfaces.
type Memory struct {
	mu         sync.Mutex
	nextID     int
	users      map[int]types.User
	topics     map[int]types.Topic
	prefs      map[int]types.Preference // by user id
	userTopics map[int][]int
}

func NewMemory() *Memory {
	return &Memory{
		users:      map[int]types.User{},
		topics:     map[int]types.Topic{},
		prefs:      map[int]types.Preference{},
		userTopics: map[int][]int{},
	}
}

func (m *Memory) Users() *UserStore             { return &UserStore{m: m} }
func (m *Memory) Topics() *TopicStore           { return &TopicStore{m: m} }
func (m *Memory) Preferences() *PreferenceStore { return &PreferenceStore{m: m} }

func (m *Memory) id() int {
	m.nextID++
	return m.nextID
}

type UserStore struct{ m *Memory }

func (s *UserStore) GetByEmail(ctx context.Context, email string) (types.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, user := range s.m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (s *UserStore) Create(ctx context.Context, user types.User) (types.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = s.m.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.m.users[user.ID] = user
	return user, nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, id int, passwordHash string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	user, ok := s.m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	s.m.users[id] = user
	return nil
}

type TopicStore struct{ m *Memory }

func (s *TopicStore) GetByName(ctx context.Context, name string) (types.Topic, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, topic := range s.m.topics {
		if topic.Name == name {
			return topic, nil
		}
	}
	return types.Topic{}, store.ErrNotFound
}

func (s *TopicStore) GetByIDs(ctx context.Context, ids []int) ([]types.Topic, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.topicsByID(ids), nil
}

func (s *TopicStore) List(ctx context.Context) ([]types.Topic, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	ids := make([]int, 0, len(s.m.topics))
	for id := range s.m.topics {
		ids = append(ids, id)
	}
	return s.m.topicsByID(ids), nil
}

func (s *TopicStore) Create(ctx context.Context, topic types.Topic) (types.Topic, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.topics {
		if existing.Name == topic.Name {
			return types.Topic{}, store.ErrDuplicate
		}
	}
	topic.ID = s.m.id()
	topic.CreatedAt = time.Now()
	s.m.topics[topic.ID] = topic
	return topic, nil
}

type PreferenceStore struct{ m *Memory }

func (s *PreferenceStore) GetByUserID(ctx context.Context, userID int) (types.Preference, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	pref, ok := s.m.prefs[userID]
	if !ok {
		return types.Preference{}, store.ErrNotFound
	}
	pref.Topics = s.m.topicsByID(s.m.userTopics[userID])
	return pref, nil
}

func (s *PreferenceStore) Create(ctx context.Context, pref types.Preference, topicIDs []int) (types.Preference, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.prefs[pref.UserID]; ok {
		return types.Preference{}, store.ErrDuplicate
	}
	if !s.m.topicsExist(topicIDs) {
		return types.Preference{}, store.ErrForeignKey
	}
	pref.ID = s.m.id()
	pref.CreatedAt = time.Now()
	pref.UpdatedAt = pref.CreatedAt
	s.m.prefs[pref.UserID] = pref
	s.m.userTopics[pref.UserID] = append([]int(nil), topicIDs...)
	return pref, nil
}

func (s *PreferenceStore) Replace(ctx context.Context, pref types.Preference, topicIDs []int) (types.Preference, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	existing, ok := s.m.prefs[pref.UserID]
	if !ok {
		return types.Preference{}, store.ErrNotFound
	}
	if !s.m.topicsExist(topicIDs) {
		return types.Preference{}, store.ErrForeignKey
	}
	pref.ID = existing.ID
	pref.CreatedAt = existing.CreatedAt
	pref.UpdatedAt = time.Now()
	s.m.prefs[pref.UserID] = pref
	s.m.userTopics[pref.UserID] = append([]int(nil), topicIDs...)
	return pref, nil
}

// topicsByID returns the known topics among ids ordered by id. Callers hold mu.
func (m *Memory) topicsByID(ids []int) []types.Topic {
	topics := make([]types.Topic, 0, len(ids))
	seen := map[int]bool{}
	for _, id := range ids {
		if topic, ok := m.topics[id]; ok && !seen[id] {
			seen[id] = true
			topics = append(topics, topic)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics
}

func (m *Memory) topicsExist(ids []int) bool {
	for _, id := range ids {
		if _, ok := m.topics[id]; !ok {
			return false
		}
	}
	return true
}
