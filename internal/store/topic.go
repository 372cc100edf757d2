package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/quizmind/apiserver/internal/db"
	"github.com/quizmind/apiserver/types"
)

// TopicRepository handles persistence for topics.
type TopicRepository struct {
	db *sql.DB
}

func NewTopicRepository(db *sql.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// GetByName matches the exact, case-sensitive name.
func (r *TopicRepository) GetByName(ctx context.Context, name string) (types.Topic, error) {
	const query = `SELECT id, name, created_at FROM topics WHERE name = $1`
	var topic types.Topic
	err := r.db.QueryRowContext(ctx, query, name).Scan(&topic.ID, &topic.Name, &topic.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Topic{}, ErrNotFound
		}
		return types.Topic{}, err
	}
	return topic, nil
}

// GetByIDs returns the topics whose ids are in ids, ordered by id.
// Unknown ids are simply absent from the result.
func (r *TopicRepository) GetByIDs(ctx context.Context, ids []int) ([]types.Topic, error) {
	if len(ids) == 0 {
		return []types.Topic{}, nil
	}
	const query = `SELECT id, name, created_at FROM topics WHERE id = ANY($1) ORDER BY id`
	return queryTopics(ctx, r.db, query, pq.Array(toInt64s(ids)))
}

func (r *TopicRepository) List(ctx context.Context) ([]types.Topic, error) {
	const query = `SELECT id, name, created_at FROM topics ORDER BY id`
	return queryTopics(ctx, r.db, query)
}

// Create inserts a topic. A taken name yields ErrDuplicate.
func (r *TopicRepository) Create(ctx context.Context, topic types.Topic) (types.Topic, error) {
	topic.CreatedAt = time.Now()

	const query = `INSERT INTO topics (name, created_at) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, topic.Name, topic.CreatedAt).Scan(&topic.ID); err != nil {
		return types.Topic{}, translateError(err)
	}
	return topic, nil
}

func queryTopics(ctx context.Context, q db.DBTX, query string, args ...any) ([]types.Topic, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := make([]types.Topic, 0)
	for rows.Next() {
		var topic types.Topic
		if err := rows.Scan(&topic.ID, &topic.Name, &topic.CreatedAt); err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topics, nil
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
