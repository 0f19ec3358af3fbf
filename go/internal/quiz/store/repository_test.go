package store

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/quizlive/go/internal/quiz"
	"github.com/mcdev12/quizlive/go/internal/quiz/store/db"
)

func TestToQuestion(t *testing.T) {
	row := db.QuizQuestion{
		SessionCode:  "ABC123",
		Position:     2,
		ID:           "q3",
		Text:         "2+2?",
		Type:         "SINGLE",
		Choices:      pqtype.NullRawMessage{RawMessage: json.RawMessage(`["3","4","5"]`), Valid: true},
		TimeLimitSec: 20,
		Points:       100,
	}

	q, err := toQuestion(row)
	if err != nil {
		t.Fatalf("toQuestion() failed: %v", err)
	}
	if q.Type != quiz.QuestionTypeSingle {
		t.Errorf("Expected lowercased type single, got %q", q.Type)
	}
	if strings.Join(q.Choices, ",") != "3,4,5" {
		t.Errorf("Expected choices 3,4,5, got %v", q.Choices)
	}
	if q.TimeLimitSec != 20 || q.Points != 100 {
		t.Errorf("Unexpected limits %+v", q)
	}
}

func TestToQuestionNullChoices(t *testing.T) {
	q, err := toQuestion(db.QuizQuestion{ID: "q1", Text: "Why?", Type: "text", TimeLimitSec: 30})
	if err != nil {
		t.Fatalf("toQuestion() failed: %v", err)
	}
	if q.Choices == nil || len(q.Choices) != 0 {
		t.Errorf("Expected empty choices, got %#v", q.Choices)
	}
}

func TestToQuestionRejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name string
		row  db.QuizQuestion
	}{
		{
			name: "choices not an array",
			row: db.QuizQuestion{
				ID: "q1", Text: "?", Type: "single", TimeLimitSec: 10,
				Choices: pqtype.NullRawMessage{RawMessage: json.RawMessage(`{"a":1}`), Valid: true},
			},
		},
		{
			name: "missing time limit",
			row:  db.QuizQuestion{ID: "q1", Text: "?", Type: "text"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := toQuestion(tc.row); !errors.Is(err, quiz.ErrInvalidQuestion) {
				t.Errorf("Expected ErrInvalidQuestion, got %v", err)
			}
		})
	}
}

func TestToInsertParams(t *testing.T) {
	params, err := toInsertParams("ABC123", 4, quiz.Question{
		ID: "q5", Text: "Pick one", Type: quiz.QuestionTypeSingle,
		Choices: []string{"a", "b"}, TimeLimitSec: 15, Points: 10,
	})
	if err != nil {
		t.Fatalf("toInsertParams() failed: %v", err)
	}
	if params.Position != 4 || params.SessionCode != "ABC123" {
		t.Errorf("Unexpected params %+v", params)
	}
	if !params.Choices.Valid || string(params.Choices.RawMessage) != `["a","b"]` {
		t.Errorf("Expected JSONB choices, got %s (valid=%v)", params.Choices.RawMessage, params.Choices.Valid)
	}

	textParams, err := toInsertParams("ABC123", 0, quiz.Question{ID: "q1", Text: "?", Type: quiz.QuestionTypeText, TimeLimitSec: 5})
	if err != nil {
		t.Fatalf("toInsertParams() failed: %v", err)
	}
	if textParams.Choices.Valid {
		t.Error("Expected NULL choices for a text question")
	}
}
