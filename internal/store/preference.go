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

// PreferenceRepository handles persistence for user preferences and the
// user_topics associations that belong to them.
type PreferenceRepository struct {
	db *sql.DB
}

func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetByUserID returns the user's preference with its topics materialized
// through the user_topics join.
func (r *PreferenceRepository) GetByUserID(ctx context.Context, userID int) (types.Preference, error) {
	const query = `
		SELECT id, user_id, difficulty_level, quiz_format, created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1`
	var pref types.Preference
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&pref.ID,
		&pref.UserID,
		&pref.DifficultyLevel,
		&pref.QuizFormat,
		&pref.CreatedAt,
		&pref.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Preference{}, ErrNotFound
		}
		return types.Preference{}, err
	}

	topics, err := r.TopicsForUser(ctx, userID)
	if err != nil {
		return types.Preference{}, err
	}
	pref.Topics = topics
	return pref, nil
}

// TopicsForUser returns the topics associated with the user, ordered by id.
func (r *PreferenceRepository) TopicsForUser(ctx context.Context, userID int) ([]types.Topic, error) {
	const query = `
		SELECT t.id, t.name, t.created_at
		FROM topics t
		JOIN user_topics ut ON ut.topic_id = t.id
		WHERE ut.user_id = $1
		ORDER BY t.id`
	return queryTopics(ctx, r.db, query, userID)
}

// Create inserts the preference row and one association per topic id in a
// single transaction. A second preference for the same user yields
// ErrDuplicate; an unknown topic id yields ErrForeignKey. Either way nothing
// is written.
func (r *PreferenceRepository) Create(ctx context.Context, pref types.Preference, topicIDs []int) (types.Preference, error) {
	now := time.Now()
	pref.CreatedAt = now
	pref.UpdatedAt = now

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		const query = `
			INSERT INTO user_preferences (user_id, difficulty_level, quiz_format, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`
		if err := tx.QueryRowContext(
			ctx,
			query,
			pref.UserID,
			pref.DifficultyLevel,
			pref.QuizFormat,
			pref.CreatedAt,
			pref.UpdatedAt,
		).Scan(&pref.ID); err != nil {
			return translateError(err)
		}
		return insertUserTopics(ctx, tx, pref.UserID, topicIDs)
	})
	if err != nil {
		return types.Preference{}, err
	}
	return pref, nil
}

// Replace overwrites difficulty and format of the user's preference and
// swaps its whole topic set for topicIDs in a single transaction.
func (r *PreferenceRepository) Replace(ctx context.Context, pref types.Preference, topicIDs []int) (types.Preference, error) {
	pref.UpdatedAt = time.Now()

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		const update = `
			UPDATE user_preferences
			SET difficulty_level = $1,
				quiz_format = $2,
				updated_at = $3
			WHERE user_id = $4
			RETURNING id, created_at`
		if err := tx.QueryRowContext(
			ctx,
			update,
			pref.DifficultyLevel,
			pref.QuizFormat,
			pref.UpdatedAt,
			pref.UserID,
		).Scan(&pref.ID, &pref.CreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		const clear = `DELETE FROM user_topics WHERE user_id = $1`
		if _, err := tx.ExecContext(ctx, clear, pref.UserID); err != nil {
			return err
		}
		return insertUserTopics(ctx, tx, pref.UserID, topicIDs)
	})
	if err != nil {
		return types.Preference{}, err
	}
	return pref, nil
}

func insertUserTopics(ctx context.Context, tx db.DBTX, userID int, topicIDs []int) error {
	if len(topicIDs) == 0 {
		return nil
	}
	const query = `
		INSERT INTO user_topics (user_id, topic_id)
		SELECT $1, unnest($2::integer[])`
	if _, err := tx.ExecContext(ctx, query, userID, pq.Array(toInt64s(topicIDs))); err != nil {
		return translateError(err)
	}
	return nil
}
