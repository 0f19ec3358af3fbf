package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// WireSchemaVersion is the version of the Question shape sent to clients
const WireSchemaVersion = 1

var (
	// ErrSessionNotFound is returned by backends that know no session for a code
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidQuestion is returned when a question fails validation before broadcast
	ErrInvalidQuestion = errors.New("invalid question")
)

// QuestionType defines how a question is answered.
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "single"
	QuestionTypeMultiple QuestionType = "multiple"
	QuestionTypeBoolean  QuestionType = "boolean"
	QuestionTypeText     QuestionType = "text"
)

// Question is the wire shape broadcast with question:started.
type Question struct {
	ID           string       `json:"id" yaml:"id"`
	Text         string       `json:"text" yaml:"text"`
	Type         QuestionType `json:"type" yaml:"type"`
	Choices      []string     `json:"choices" yaml:"choices"`
	TimeLimitSec int          `json:"timeLimitSec" yaml:"timeLimitSec"`
	Points       int          `json:"points" yaml:"points"`
}

// Validate checks the fields every client relies on. It normalises a nil choice list.
func (q *Question) Validate() error {
	if q == nil {
		return fmt.Errorf("%w: question is missing", ErrInvalidQuestion)
	}
	var problems []string
	if strings.TrimSpace(q.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(q.Text) == "" {
		problems = append(problems, "text is required")
	}
	if q.Type == "" {
		problems = append(problems, "type is required")
	}
	if q.TimeLimitSec <= 0 {
		problems = append(problems, "timeLimitSec must be positive")
	}
	if q.Points < 0 {
		problems = append(problems, "points must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidQuestion, strings.Join(problems, ", "))
	}
	if q.Choices == nil {
		q.Choices = []string{}
	}
	return nil
}

// AdvanceResult is what a session service reports after moving to the next question.
// Index and total are pointers so a backend that omits them can be told apart from zero.
type AdvanceResult struct {
	Finished             bool      `json:"finished"`
	CurrentQuestionIndex *int      `json:"currentQuestionIndex,omitempty"`
	TotalQuestions       *int      `json:"totalQuestions,omitempty"`
	Question             *Question `json:"question,omitempty"`
	Message              string    `json:"message,omitempty"`
}

// SessionService owns quiz progression state. The realtime gateway only reads the
// current question and asks it to advance.
type SessionService interface {
	// CurrentQuestion returns the active question, or nil when none is active
	CurrentQuestion(ctx context.Context, sessionCode string) (*Question, error)
	NextQuestion(ctx context.Context, sessionCode string) (*AdvanceResult, error)
}

// LeaderboardEntry is one row of scoreboard:updated
type LeaderboardEntry struct {
	TeamName string `json:"teamName"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// AnswerStats is the aggregate carried by answer:stats-updated
type AnswerStats struct {
	TotalAnswers   int `json:"totalAnswers"`
	CorrectAnswers int `json:"correctAnswers"`
}

// IntPtr is a helper for building AdvanceResult values
func IntPtr(v int) *int {
	return &v
}
