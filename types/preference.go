package types

import "time"

// Topic is a named subject area a user can pick for quiz content.
// Names are unique and compared case-sensitively.
type Topic struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// Preference holds a user's quiz generation settings. There is at most one
// preference per user.
type Preference struct {
	// ID is the unique identifier of the preference row.
	ID int `json:"id" db:"id"`

	// UserID references the owning user.
	UserID int `json:"user_id" db:"user_id"`

	// DifficultyLevel is free-form, e.g. "easy", "medium", "hard".
	DifficultyLevel string `json:"difficulty_level" db:"difficulty_level"`

	// QuizFormat is free-form, e.g. "MCQs" or "True/False".
	QuizFormat string `json:"quiz_format" db:"quiz_format"`

	// Topics is materialized from the user_topics join, ordered by topic id.
	// It is not a column of the preferences table.
	Topics []Topic `json:"topics" db:"-"`

	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// TopicNames returns the names of the preference's topics in order.
func (p Preference) TopicNames() []string {
	names := make([]string, 0, len(p.Topics))
	for _, topic := range p.Topics {
		names = append(names, topic.Name)
	}
	return names
}
