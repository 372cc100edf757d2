package services

import (
	"strings"
	"text/template"

	"github.com/quizmind/apiserver/types"
)

// The header lines are read back by llm.StubClient; keep their wording.
var quizPromptTemplate = template.Must(template.New("quiz").Parse(`Generate {{.Count}} quiz questions.
Topics: {{.Topics}}
Difficulty: {{.Difficulty}}
Format: {{.Format}}

{{.Instruction}}
Every question must be about one of the listed topics and name it in "topic".
The "correct" value must repeat one of the options exactly.
Respond with JSON only, no prose, in this shape:
{"questions": [{"question": "...", "options": ["..."], "correct": "...", "topic": "..."}]}
`))

type quizPrompt struct {
	Count       int
	Topics      string
	Difficulty  string
	Format      string
	Instruction string
}

func formatInstruction(format string) string {
	switch format {
	case types.QuizFormatMCQ:
		return "Each question must have exactly four options and exactly one correct answer."
	case types.QuizFormatTrueFalse:
		return `Each question must have exactly two options, "true" and "false", and exactly one correct answer.`
	default:
		return "Each question must have at least two options and exactly one correct option."
	}
}

func buildQuizPrompt(count int, pref types.Preference) (string, error) {
	var sb strings.Builder
	err := quizPromptTemplate.Execute(&sb, quizPrompt{
		Count:       count,
		Topics:      strings.Join(pref.TopicNames(), ", "),
		Difficulty:  pref.DifficultyLevel,
		Format:      pref.QuizFormat,
		Instruction: formatInstruction(pref.QuizFormat),
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
