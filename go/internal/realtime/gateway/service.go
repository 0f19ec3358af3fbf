package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/quiz"
	"github.com/mcdev12/quizlive/go/internal/realtime/timer"
)

// Service is the realtime gateway: WebSocket endpoint, rooms, question timers and
// the optional JetStream event ingress
type Service struct {
	rooms         *Registry
	timers        *timer.Manager
	handler       *Handler
	wsHandler     *WebSocketHandler
	eventConsumer *EventConsumer
	path          string
}

// Config holds configuration for the realtime gateway service
type Config struct {
	Path             string
	ConnectionConfig ConnectionConfig
	// JetStream enables the event consumer when non-nil
	JetStream        *JetStreamConsumerConfig
	WarningBefore    time.Duration
	EnforceAdminRole bool
	Clock            clockwork.Clock
}

// DefaultConfig returns default configuration for the realtime gateway
func DefaultConfig() Config {
	return Config{
		Path:             "/realtime",
		ConnectionConfig: DefaultConnectionConfig(),
		WarningBefore:    5 * time.Second,
	}
}

// NewService wires the gateway around a session service and token verifier
func NewService(ctx context.Context, config Config, sessions quiz.SessionService, verifier TokenVerifier) (*Service, error) {
	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.Path == "" {
		config.Path = "/realtime"
	}

	rooms := NewRegistry()
	timers := timer.NewManager(clock, config.WarningBefore)
	authn := NewAuthenticator(verifier)
	handler := NewHandler(rooms, timers, sessions, authn, HandlerOptions{
		EnforceAdminRole: config.EnforceAdminRole,
		Clock:            clock,
	})

	s := &Service{
		rooms:     rooms,
		timers:    timers,
		handler:   handler,
		wsHandler: NewWebSocketHandler(authn, handler, rooms, timers, config.ConnectionConfig),
		path:      config.Path,
	}

	if config.JetStream != nil {
		consumer, err := NewEventConsumer(ctx, handler, *config.JetStream)
		if err != nil {
			timers.Stop()
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}

	return s, nil
}

// Start runs the event consumer, if any, until ctx is cancelled, then stops the service
func (s *Service) Start(ctx context.Context) error {
	log.Info().Str("path", s.path).Msg("starting realtime gateway service")

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("realtime gateway service shutting down")
	return s.Stop()
}

// Stop cancels every armed question timer and closes the event consumer
func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	s.timers.Stop()
	log.Info().Msg("realtime gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux, s.path)
	log.Info().Str("path", s.path).Msg("realtime gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.wsHandler.Stats()
}

// CheckEventIngress fails when the event consumer is enabled but disconnected
func (s *Service) CheckEventIngress(ctx context.Context) error {
	if s.eventConsumer == nil || s.eventConsumer.Connected() {
		return nil
	}
	return errors.New("NATS disconnected")
}

// Gauges returns the stats as metric values
func (s *Service) Gauges() map[string]int {
	stats := s.GetStats()
	return map[string]int{
		"connections":  stats.TotalConnections,
		"rooms":        stats.ActiveRooms,
		"armed_timers": stats.ArmedTimers,
	}
}

// Broadcaster exposes the handler's broadcast operations to in-process producers
func (s *Service) Broadcaster() EventBroadcaster {
	return s.handler
}
