package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	stubCountPattern  = regexp.MustCompile(`Generate (\d+) quiz questions`)
	stubTopicsPattern = regexp.MustCompile(`(?m)^Topics: (.+)$`)
	stubFormatPattern = regexp.MustCompile(`(?m)^Format: (.+)$`)
)

// StubClient is an offline Generator for local development. It reads the
// question count, topics and format from the prompt header and returns
// well-formed placeholder questions.
type StubClient struct{}

func NewStubClient() *StubClient {
	return &StubClient{}
}

func (s *StubClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	count := 5
	if m := stubCountPattern.FindStringSubmatch(prompt); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			count = n
		}
	}

	topics := []string{"General knowledge"}
	if m := stubTopicsPattern.FindStringSubmatch(prompt); m != nil {
		topics = strings.Split(strings.TrimSpace(m[1]), ", ")
	}

	format := ""
	if m := stubFormatPattern.FindStringSubmatch(prompt); m != nil {
		format = strings.TrimSpace(m[1])
	}

	type question struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
		Correct  string   `json:"correct"`
		Topic    string   `json:"topic"`
	}
	questions := make([]question, 0, count)
	for i := 0; i < count; i++ {
		topic := topics[i%len(topics)]
		q := question{Topic: topic}
		if format == "True/False" {
			q.Question = fmt.Sprintf("Statement %d about %s is true.", i+1, topic)
			q.Options = []string{"true", "false"}
			q.Correct = "true"
		} else {
			q.Question = fmt.Sprintf("Sample question %d about %s?", i+1, topic)
			q.Options = []string{"Option A", "Option B", "Option C", "Option D"}
			q.Correct = "Option A"
		}
		questions = append(questions, q)
	}

	data, err := json.Marshal(map[string]any{"questions": questions})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
