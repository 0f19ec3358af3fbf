// Package events defines the quiz domain events exchanged over NATS JetStream and the
// stream plumbing shared by their producers and the realtime gateway.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/quizlive/go/internal/quiz"
)

// Event types carried in Envelope.EventType
const (
	TypeSessionStarted     = "SessionStarted"
	TypeSessionEnded       = "SessionEnded"
	TypeQuestionStarted    = "QuestionStarted"
	TypeQuestionEnded      = "QuestionEnded"
	TypeAnswerSubmitted    = "AnswerSubmitted"
	TypeAnswerStatsUpdated = "AnswerStatsUpdated"
	TypeScoreboardUpdated  = "ScoreboardUpdated"
)

var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope is the JSON body of every message on the quiz event stream
type Envelope struct {
	EventID     string          `json:"eventId"`
	EventType   string          `json:"eventType"`
	SessionCode string          `json:"sessionCode"`
	Timestamp   time.Time       `json:"timestamp"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type QuestionStarted struct {
	QuestionIndex int           `json:"questionIndex"`
	Question      quiz.Question `json:"question"`
}

type QuestionEnded struct {
	QuestionIndex int `json:"questionIndex"`
}

type AnswerSubmitted struct {
	TeamID string `json:"teamId"`
}

type AnswerStatsUpdated struct {
	Stats quiz.AnswerStats `json:"stats"`
}

type ScoreboardUpdated struct {
	Leaderboard []quiz.LeaderboardEntry `json:"leaderboard"`
}

// NewEnvelope wraps payload in an envelope with a fresh event id.
// A nil payload leaves Payload empty.
func NewEnvelope(eventType, sessionCode string, payload any) (Envelope, error) {
	env := Envelope{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		SessionCode: sessionCode,
		Timestamp:   time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		env.Payload = data
	}
	return env, nil
}

// DecodeEnvelope parses a message body and checks the fields every event needs
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.EventType == "" {
		return Envelope{}, fmt.Errorf("%w: missing eventType", ErrInvalidEnvelope)
	}
	if env.SessionCode == "" {
		return Envelope{}, fmt.Errorf("%w: missing sessionCode", ErrInvalidEnvelope)
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into v
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrInvalidEnvelope, e.EventType)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrInvalidEnvelope, e.EventType, err)
	}
	return nil
}
