package types

// Quiz formats with dedicated prompt instructions and validation rules.
const (
	QuizFormatMCQ       = "MCQs"
	QuizFormatTrueFalse = "True/False"
)

// QuizQuestion is a single generated question. Correct always equals one
// of Options once the question has passed validation.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  string   `json:"correct"`
	Topic    string   `json:"topic"`
}

// QuizGeneratedEvent is published after a quiz was generated successfully.
type QuizGeneratedEvent struct {
	UserID          int    `json:"user_id"`
	DifficultyLevel string `json:"difficulty_level"`
	QuizFormat      string `json:"quiz_format"`
	TopicCount      int    `json:"topic_count"`
	QuestionCount   int    `json:"question_count"`
}

// PreferencesChangedEvent is published after a preference was created or
// replaced.
type PreferencesChangedEvent struct {
	UserID   int    `json:"user_id"`
	Action   string `json:"action"`
	TopicIDs []int  `json:"topic_ids"`
}
