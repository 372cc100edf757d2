package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"github.com/quizmind/apiserver/types"
)

const quizResponseSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["question", "options", "correct", "topic"],
		"properties": {
			"question": {"type": "string", "minLength": 1},
			"options": {
				"type": "array",
				"minItems": 2,
				"items": {"type": "string"}
			},
			"correct": {"type": "string"},
			"topic": {"type": "string"}
		}
	}
}`

var quizSchema = mustCompileSchema(quizResponseSchema)

func mustCompileSchema(source string) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile([]byte(source))
	if err != nil {
		panic(fmt.Sprintf("compile quiz schema: %v", err))
	}
	return schema
}

// parseQuizResponse turns raw model output into validated questions. It
// accepts a bare array or an object with a "questions" array, optionally
// wrapped in a Markdown code fence. Either every question is valid or an
// error is returned.
func parseQuizResponse(raw, format string) ([]types.QuizQuestion, error) {
	var decoded any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := decoded
	if obj, ok := decoded.(map[string]any); ok {
		questions, found := obj["questions"]
		if !found {
			return nil, errors.New(`response object has no "questions" field`)
		}
		items = questions
	}

	result := quizSchema.Validate(items)
	if !result.IsValid() {
		messages := make([]string, 0, len(result.Errors))
		for field, evalErr := range result.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		sort.Strings(messages)
		return nil, fmt.Errorf("schema validation failed: %s", strings.Join(messages, "; "))
	}

	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var questions []types.QuizQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	for i, q := range questions {
		if err := checkQuestion(q, format); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return questions, nil
}

func checkQuestion(q types.QuizQuestion, format string) error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("empty question text")
	}
	if !slices.Contains(q.Options, q.Correct) {
		return fmt.Errorf("correct answer %q is not one of the options", q.Correct)
	}
	switch format {
	case types.QuizFormatMCQ:
		if len(q.Options) != 4 {
			return fmt.Errorf("%s needs 4 options, got %d", format, len(q.Options))
		}
		if hasDuplicates(q.Options) {
			return fmt.Errorf("%s options must be distinct", format)
		}
	case types.QuizFormatTrueFalse:
		if len(q.Options) != 2 {
			return fmt.Errorf("%s needs 2 options, got %d", format, len(q.Options))
		}
		if !slices.Contains(q.Options, "true") || !slices.Contains(q.Options, "false") {
			return fmt.Errorf(`%s options must be "true" and "false", got %q`, format, q.Options)
		}
	}
	return nil
}

func hasDuplicates(options []string) bool {
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		if _, ok := seen[o]; ok {
			return true
		}
		seen[o] = struct{}{}
	}
	return false
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
