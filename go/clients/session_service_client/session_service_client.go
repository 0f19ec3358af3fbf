package session_service_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mcdev12/quizlive/go/clients"
	"github.com/mcdev12/quizlive/go/internal/quiz"
)

// SessionServiceClient talks to a remote session service over HTTP
type SessionServiceClient struct {
	*clients.BaseClient
}

var _ quiz.SessionService = (*SessionServiceClient)(nil)

// NewSessionServiceClient creates a client. An empty token sends no Authorization header.
func NewSessionServiceClient(baseURL, token string) *SessionServiceClient {
	client := &SessionServiceClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(AcceptHeader, "application/json")
	if token != "" {
		client.SetHeader(AuthorizationHeader, "Bearer "+token)
	}

	return client
}

type currentQuestionResponse struct {
	Question *Question `json:"question"`
}

type nextQuestionResponse struct {
	Finished             bool      `json:"finished"`
	CurrentQuestionIndex *int      `json:"currentQuestionIndex"`
	TotalQuestions       *int      `json:"totalQuestions"`
	Question             *Question `json:"question"`
	Message              string    `json:"message"`
}

func (c *SessionServiceClient) CurrentQuestion(ctx context.Context, sessionCode string) (*quiz.Question, error) {
	body, err := c.Get(ctx, fmt.Sprintf(CurrentQuestionEndpoint, url.PathEscape(sessionCode)))
	if err != nil {
		return nil, mapError(sessionCode, err)
	}

	var response currentQuestionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	if response.Question == nil {
		return nil, nil
	}
	return response.Question.ToWire()
}

func (c *SessionServiceClient) NextQuestion(ctx context.Context, sessionCode string) (*quiz.AdvanceResult, error) {
	body, err := c.Post(ctx, fmt.Sprintf(NextQuestionEndpoint, url.PathEscape(sessionCode)), nil)
	if err != nil {
		return nil, mapError(sessionCode, err)
	}

	var response nextQuestionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	result := &quiz.AdvanceResult{
		Finished:             response.Finished,
		CurrentQuestionIndex: response.CurrentQuestionIndex,
		TotalQuestions:       response.TotalQuestions,
		Message:              response.Message,
	}
	if response.Question != nil {
		q, err := response.Question.ToWire()
		if err != nil {
			return nil, err
		}
		result.Question = q
	}
	return result, nil
}

func mapError(sessionCode string, err error) error {
	var statusErr *clients.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", quiz.ErrSessionNotFound, sessionCode)
	}
	return fmt.Errorf("session service request failed: %w", err)
}
