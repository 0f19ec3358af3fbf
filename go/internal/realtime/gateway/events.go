package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/quizlive/go/internal/quiz"
)

// Inbound events (client → server)
const (
	EventJoinSession        = "join_session"
	EventGetCurrentQuestion = "question:get-current"
	EventAdminNextQuestion  = "admin:next-question"
	EventAdminEndSession    = "admin:end-session"
)

// Outbound events (server → client)
const (
	EventJoinSuccess         = "join_success"
	EventQuestionCurrent     = "question:current"
	EventSessionStarted      = "session:started"
	EventSessionEnded        = "session:ended"
	EventQuestionStarted     = "question:started"
	EventQuestionTimeWarning = "question:time-warning"
	EventQuestionEnded       = "question:ended"
	EventTimeUp              = "time:up"
	EventAnswerSubmitted     = "answer:submitted"
	EventAnswerStatsUpdated  = "answer:stats-updated"
	EventScoreboardUpdated   = "scoreboard:updated"
	EventNextQuestionAck     = "admin:next-question:ack"
	EventEndSessionAck       = "admin:end-session:ack"
	EventError               = "error"
)

// timestampLayout matches ISO-8601 with millisecond precision in UTC
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// InboundMessage is a frame sent by a client
type InboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutboundMessage is a frame sent to clients. V is the wire schema version.
type OutboundMessage struct {
	V     int    `json:"v"`
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encodeEnvelope(event string, data any) ([]byte, error) {
	msg, err := json.Marshal(OutboundMessage{V: quiz.WireSchemaVersion, Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event, err)
	}
	return msg, nil
}

// SessionRequest is the payload of every inbound event
type SessionRequest struct {
	SessionCode string `json:"sessionCode"`
}

type JoinSuccessPayload struct {
	SessionCode string `json:"sessionCode"`
}

type QuestionCurrentPayload struct {
	SessionCode string         `json:"sessionCode"`
	Question    *quiz.Question `json:"question"`
}

// SessionLifecyclePayload is shared by session:started and session:ended
type SessionLifecyclePayload struct {
	SessionCode string `json:"sessionCode"`
	Timestamp   string `json:"timestamp"`
}

type QuestionStartedPayload struct {
	SessionCode   string        `json:"sessionCode"`
	QuestionIndex int           `json:"questionIndex"`
	Question      quiz.Question `json:"question"`
}

type QuestionTimeWarningPayload struct {
	SessionCode      string `json:"sessionCode"`
	QuestionIndex    int    `json:"questionIndex"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

type QuestionEndedPayload struct {
	SessionCode   string `json:"sessionCode"`
	QuestionIndex int    `json:"questionIndex"`
	Timestamp     string `json:"timestamp"`
}

type TimeUpPayload struct {
	SessionCode string `json:"sessionCode"`
}

type AnswerSubmittedPayload struct {
	SessionCode string `json:"sessionCode"`
	TeamID      string `json:"teamId"`
	Timestamp   string `json:"timestamp"`
}

type AnswerStatsPayload struct {
	SessionCode string           `json:"sessionCode"`
	Stats       quiz.AnswerStats `json:"stats"`
}

type ScoreboardPayload struct {
	SessionCode string                  `json:"sessionCode"`
	Leaderboard []quiz.LeaderboardEntry `json:"leaderboard"`
	Timestamp   string                  `json:"timestamp"`
}

type NextQuestionAckPayload struct {
	SessionCode          string `json:"sessionCode"`
	Success              bool   `json:"success"`
	Finished             bool   `json:"finished"`
	Message              string `json:"message,omitempty"`
	CurrentQuestionIndex *int   `json:"currentQuestionIndex,omitempty"`
	TotalQuestions       *int   `json:"totalQuestions,omitempty"`
}

type EndSessionAckPayload struct {
	SessionCode string `json:"sessionCode"`
	Success     bool   `json:"success"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
