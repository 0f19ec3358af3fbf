package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/auth"
	"github.com/mcdev12/quizlive/go/internal/quiz"
	"github.com/mcdev12/quizlive/go/internal/realtime/timer"
)

// HandlerOptions tunes protocol policy
type HandlerOptions struct {
	// EnforceAdminRole rejects admin:* events from identities not verified by the admin domain.
	// When false any authenticated connection may drive a session.
	EnforceAdminRole bool
	Clock            clockwork.Clock
}

// Handler implements the realtime protocol: it dispatches inbound events, drives question
// progression against the session service and fans events out through the registry.
type Handler struct {
	rooms    *Registry
	timers   *timer.Manager
	sessions quiz.SessionService
	authn    *Authenticator
	opts     HandlerOptions
	clock    clockwork.Clock
	// progress serializes question announcements with their countdowns per session
	progress *sessionLocks
}

var (
	_ MessageHandler = (*Handler)(nil)
	_ timer.Listener = (*Handler)(nil)
)

// NewHandler creates the handler and registers it as the timer listener
func NewHandler(rooms *Registry, timers *timer.Manager, sessions quiz.SessionService, authn *Authenticator, opts HandlerOptions) *Handler {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	h := &Handler{
		rooms:    rooms,
		timers:   timers,
		sessions: sessions,
		authn:    authn,
		opts:     opts,
		clock:    clock,
		progress: newSessionLocks(),
	}
	timers.SetListener(h)
	return h
}

type eventFunc func(ctx context.Context, c *Connection, identity auth.Identity, code string) error

func (h *Handler) route(event string) (eventFunc, bool) {
	switch event {
	case EventJoinSession:
		return h.joinSession, true
	case EventGetCurrentQuestion:
		return h.getCurrentQuestion, true
	case EventAdminNextQuestion:
		return h.adminNextQuestion, true
	case EventAdminEndSession:
		return h.adminEndSession, true
	}
	return nil, false
}

// HandleMessage processes one inbound frame. Every failure becomes a single error
// event addressed to c.
func (h *Handler) HandleMessage(ctx context.Context, c *Connection, raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.fail(c, "", fmt.Errorf("%w: %v", ErrMalformedMessage, err))
		return
	}
	if msg.Event == "" {
		h.fail(c, "", ErrMalformedMessage)
		return
	}

	fn, ok := h.route(msg.Event)
	if !ok {
		h.fail(c, msg.Event, ErrUnknownEvent)
		return
	}

	identity, err := h.authn.Guard(ctx, c)
	if err != nil {
		h.fail(c, msg.Event, err)
		return
	}

	var req SessionRequest
	if len(msg.Data) > 0 && !bytes.Equal(msg.Data, []byte("null")) {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.fail(c, msg.Event, fmt.Errorf("%w: %v", ErrMalformedMessage, err))
			return
		}
	}
	if req.SessionCode == "" {
		h.fail(c, msg.Event, ErrMissingParameter)
		return
	}

	if err := fn(ctx, c, identity, req.SessionCode); err != nil {
		h.fail(c, msg.Event, err)
	}
}

// HandleDisconnect drops the connection from its room
func (h *Handler) HandleDisconnect(c *Connection) {
	room := h.rooms.Remove(c)
	log.Info().
		Str("connection_id", c.ID).
		Str("identity", c.Identity.ID).
		Str("session_code", room).
		Msg("client disconnected")
}

func (h *Handler) fail(c *Connection, event string, err error) {
	message := clientMessage(event, err)
	log.Debug().
		Err(err).
		Str("connection_id", c.ID).
		Str("event", event).
		Str("message", message).
		Msg("request failed")
	if emitErr := c.Emit(EventError, ErrorPayload{Message: message}); emitErr != nil {
		log.Debug().Err(emitErr).Str("connection_id", c.ID).Msg("could not deliver error event")
	}
}

func (h *Handler) requireAdmin(identity auth.Identity) error {
	if h.opts.EnforceAdminRole && !identity.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (h *Handler) joinSession(ctx context.Context, c *Connection, identity auth.Identity, code string) error {
	h.rooms.Add(code, c)
	log.Info().
		Str("connection_id", c.ID).
		Str("identity", identity.ID).
		Str("session_code", code).
		Msg("client joined session")
	return c.Emit(EventJoinSuccess, JoinSuccessPayload{SessionCode: code})
}

func (h *Handler) getCurrentQuestion(ctx context.Context, c *Connection, identity auth.Identity, code string) error {
	q, err := h.sessions.CurrentQuestion(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return c.Emit(EventQuestionCurrent, QuestionCurrentPayload{SessionCode: code, Question: q})
}

func (h *Handler) adminNextQuestion(ctx context.Context, c *Connection, identity auth.Identity, code string) error {
	if err := h.requireAdmin(identity); err != nil {
		return err
	}

	log.Info().Str("session_code", code).Str("identity", identity.ID).Msg("advancing to next question")

	res, err := h.sessions.NextQuestion(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if res == nil {
		return fmt.Errorf("%w: %w: empty advance result", ErrUpstream, ErrInvalidQuestionData)
	}

	if res.Finished {
		log.Info().Str("session_code", code).Msg("all questions finished")
		h.BroadcastSessionEnded(code)
		return c.Emit(EventNextQuestionAck, NextQuestionAckPayload{
			SessionCode: code,
			Success:     true,
			Finished:    true,
			Message:     res.Message,
		})
	}

	if res.Question == nil || res.CurrentQuestionIndex == nil {
		log.Error().Str("session_code", code).Msg("advance result is missing question data")
		return fmt.Errorf("%w: %w", ErrUpstream, ErrInvalidQuestionData)
	}
	if err := h.BroadcastQuestionStarted(code, *res.CurrentQuestionIndex, *res.Question); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	return c.Emit(EventNextQuestionAck, NextQuestionAckPayload{
		SessionCode:          code,
		Success:              true,
		Finished:             false,
		CurrentQuestionIndex: res.CurrentQuestionIndex,
		TotalQuestions:       res.TotalQuestions,
	})
}

// adminEndSession only broadcasts; persisted session state is left to the session service
func (h *Handler) adminEndSession(ctx context.Context, c *Connection, identity auth.Identity, code string) error {
	if err := h.requireAdmin(identity); err != nil {
		return err
	}

	log.Info().Str("session_code", code).Str("identity", identity.ID).Msg("admin ending session")
	h.BroadcastSessionEnded(code)
	return c.Emit(EventEndSessionAck, EndSessionAckPayload{SessionCode: code, Success: true})
}

// QuestionExpired is the timer callback: time:up, then question:ended
func (h *Handler) QuestionExpired(sessionCode string, questionIndex int) {
	log.Info().Str("session_code", sessionCode).Msg("time is up")
	h.rooms.Broadcast(sessionCode, EventTimeUp, TimeUpPayload{SessionCode: sessionCode})
	h.BroadcastQuestionEnded(sessionCode, questionIndex)
}

func (h *Handler) QuestionWarning(sessionCode string, questionIndex, remainingSeconds int) {
	h.BroadcastQuestionTimeWarning(sessionCode, questionIndex, remainingSeconds)
}
