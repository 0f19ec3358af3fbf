package gateway

import (
	"errors"

	"github.com/mcdev12/quizlive/go/internal/auth"
	"github.com/mcdev12/quizlive/go/internal/quiz"
)

var (
	ErrMissingParameter = errors.New("session code is required")
	// ErrUpstream wraps failures of the session service, including malformed results
	ErrUpstream = errors.New("session service error")
	// ErrInvalidQuestionData marks an advance result that cannot be broadcast
	ErrInvalidQuestionData = errors.New("invalid question data")
	ErrForbidden           = errors.New("admin privileges required")
	ErrMalformedMessage    = errors.New("malformed message")
	ErrUnknownEvent        = errors.New("unknown event")
)

// Fallback messages per inbound event for errors that carry nothing client-safe
var fallbackMessages = map[string]string{
	EventJoinSession:        "Failed to join session",
	EventGetCurrentQuestion: "Failed to get current question",
	EventAdminNextQuestion:  "Failed to advance question",
	EventAdminEndSession:    "Failed to end session",
}

// clientMessage maps an error to the single message sent in the error event
func clientMessage(event string, err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "Authentication token not provided"
	case errors.Is(err, auth.ErrInvalidToken):
		return "Invalid authentication token"
	case errors.Is(err, ErrMissingParameter):
		return "Session code is required"
	case errors.Is(err, ErrInvalidQuestionData), errors.Is(err, quiz.ErrInvalidQuestion):
		return "Invalid question data"
	case errors.Is(err, ErrForbidden):
		return "Admin privileges required"
	case errors.Is(err, quiz.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, ErrMalformedMessage):
		return "Malformed message"
	case errors.Is(err, ErrUnknownEvent):
		return "Unknown event: " + event
	}
	if msg, ok := fallbackMessages[event]; ok {
		return msg
	}
	return "Request failed"
}
