package session_service_client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcdev12/quizlive/go/internal/quiz"
)

// Question is the session service's native question shape. Older deployments send
// questionText and timeLimit, and choices either as strings or as {id, text} objects.
type Question struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	QuestionText string  `json:"questionText"`
	Type         string  `json:"type"`
	Choices      Choices `json:"choices"`
	Options      Choices `json:"options"`
	TimeLimitSec *int    `json:"timeLimitSec"`
	TimeLimit    *int    `json:"timeLimit"`
	Points       int     `json:"points"`
}

// Choices decodes either ["a","b"] or [{"text":"a"},{"text":"b"}]
type Choices []string

func (c *Choices) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = nil
		return nil
	}

	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		*c = plain
		return nil
	}

	var objects []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &objects); err != nil {
		return fmt.Errorf("choices must be strings or objects with text: %w", err)
	}
	out := make([]string, len(objects))
	for i, o := range objects {
		out[i] = o.Text
		if out[i] == "" {
			out[i] = o.Label
		}
	}
	*c = out
	return nil
}

var typeAliases = map[string]quiz.QuestionType{
	"single":          quiz.QuestionTypeSingle,
	"single_choice":   quiz.QuestionTypeSingle,
	"multiple":        quiz.QuestionTypeMultiple,
	"multiple_choice": quiz.QuestionTypeMultiple,
	"boolean":         quiz.QuestionTypeBoolean,
	"true_false":      quiz.QuestionTypeBoolean,
	"text":            quiz.QuestionTypeText,
	"open":            quiz.QuestionTypeText,
}

// ToWire converts to the broadcast schema and validates the result
func (q *Question) ToWire() (*quiz.Question, error) {
	text := q.Text
	if text == "" {
		text = q.QuestionText
	}

	choices := []string(q.Choices)
	if len(choices) == 0 {
		choices = q.Options
	}

	limit := 0
	switch {
	case q.TimeLimitSec != nil:
		limit = *q.TimeLimitSec
	case q.TimeLimit != nil:
		limit = *q.TimeLimit
	}

	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(q.Type), "-", "_"))
	qt, ok := typeAliases[normalized]
	if !ok {
		qt = quiz.QuestionType(normalized)
	}

	w := &quiz.Question{
		ID:           q.ID,
		Text:         text,
		Type:         qt,
		Choices:      choices,
		TimeLimitSec: limit,
		Points:       q.Points,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}
