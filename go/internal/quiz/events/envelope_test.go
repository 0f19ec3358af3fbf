package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mcdev12/quizlive/go/internal/quiz"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(TypeAnswerSubmitted, "ABC123", AnswerSubmitted{TeamID: "team-1"})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.EventID == "" {
		t.Error("expected an event id")
	}
	if env.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	var payload AnswerSubmitted
	if err := decoded.DecodePayload(&payload); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if payload.TeamID != "team-1" {
		t.Errorf("teamId = %q", payload.TeamID)
	}
}

func TestNewEnvelopeWithoutPayload(t *testing.T) {
	env, err := NewEnvelope(TypeSessionStarted, "ABC123", nil)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if len(env.Payload) != 0 {
		t.Errorf("payload = %s, want empty", env.Payload)
	}
	if err := env.DecodePayload(&AnswerSubmitted{}); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("DecodePayload error = %v, want ErrInvalidEnvelope", err)
	}
}

func TestDecodeEnvelopeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"missing type", `{"sessionCode":"ABC123"}`},
		{"missing session", `{"eventType":"SessionStarted"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEnvelope([]byte(tt.data)); !errors.Is(err, ErrInvalidEnvelope) {
				t.Errorf("error = %v, want ErrInvalidEnvelope", err)
			}
		})
	}
}

func TestQuestionStartedPayload(t *testing.T) {
	raw := `{"eventId":"e1","eventType":"QuestionStarted","sessionCode":"ABC123",
		"timestamp":"2026-01-02T03:04:05Z",
		"payload":{"questionIndex":2,"question":{"id":"q3","text":"2+2?","type":"single",
		"choices":["3","4"],"timeLimitSec":15,"points":5}}}`
	env, err := DecodeEnvelope([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	var p QuestionStarted
	if err := env.DecodePayload(&p); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.QuestionIndex != 2 || p.Question.ID != "q3" || p.Question.Type != quiz.QuestionTypeSingle {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestStreamConfigSubjects(t *testing.T) {
	cfg := DefaultStreamConfig()
	if got := cfg.Subject(TypeScoreboardUpdated); got != "quiz.events.ScoreboardUpdated" {
		t.Errorf("Subject = %q", got)
	}
	if got := cfg.SubjectFilter(); got != "quiz.events.>" {
		t.Errorf("SubjectFilter = %q", got)
	}
}
