package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/quiz"
	"github.com/mcdev12/quizlive/go/internal/quiz/events"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	Stream        events.StreamConfig
	ConsumerName  string
	MaxDeliver    int           // Max delivery attempts
	AckWait       time.Duration // How long to wait for ack
	MaxAckPending int           // Max messages pending ack
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer configuration
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		Stream:        events.DefaultStreamConfig(),
		ConsumerName:  "quiz-gateway",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// EventBroadcaster fans quiz domain events out to session rooms
type EventBroadcaster interface {
	BroadcastSessionStarted(sessionCode string)
	BroadcastSessionEnded(sessionCode string)
	BroadcastQuestionStarted(sessionCode string, questionIndex int, q quiz.Question) error
	BroadcastQuestionEnded(sessionCode string, questionIndex int)
	BroadcastAnswerSubmitted(sessionCode, teamID string)
	BroadcastAnswerStatsUpdated(sessionCode string, stats quiz.AnswerStats)
	BroadcastScoreboardUpdated(sessionCode string, leaderboard []quiz.LeaderboardEntry)
}

var _ EventBroadcaster = (*Handler)(nil)

// EventConsumer consumes quiz events from JetStream and broadcasts them to WebSocket clients
type EventConsumer struct {
	broadcaster EventBroadcaster
	nc          *nats.Conn
	js          jetstream.JetStream
	consumer    jetstream.Consumer
	config      JetStreamConsumerConfig
}

// NewEventConsumer connects to NATS and creates or reuses the durable consumer
func NewEventConsumer(ctx context.Context, broadcaster EventBroadcaster, config JetStreamConsumerConfig) (*EventConsumer, error) {
	nc, js, err := events.Connect(config.Stream)
	if err != nil {
		return nil, err
	}

	ec := &EventConsumer{
		broadcaster: broadcaster,
		nc:          nc,
		js:          js,
		config:      config,
	}

	if err := ec.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := events.EnsureStream(ctx, ec.js, ec.config.Stream)
	if err != nil {
		return err
	}

	// Only events published after the gateway starts are relevant to live rooms
	consumerConfig := jetstream.ConsumerConfig{
		Name:          ec.config.ConsumerName,
		Durable:       ec.config.ConsumerName,
		Description:   "Quiz gateway WebSocket consumer",
		FilterSubject: ec.config.Stream.SubjectFilter(),
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, ec.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", ec.config.ConsumerName).
			Str("stream", ec.config.Stream.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", ec.config.ConsumerName).
			Str("stream", ec.config.Stream.StreamName).
			Msg("using existing JetStream consumer")
	}

	ec.consumer = consumer
	return nil
}

// Start consumes events until ctx is cancelled
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.Stream.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			ec.settle(msg, processEvent(ec.broadcaster, msg.Data()))
		}
	}
}

func (ec *EventConsumer) settle(msg jetstream.Msg, err error) {
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	case isPermanent(err):
		// Redelivery cannot fix a malformed event
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed event")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
	default:
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process message")
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error().Err(nakErr).Msg("failed to NAK message")
		}
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, events.ErrInvalidEnvelope) || errors.Is(err, ErrInvalidQuestionData)
}

// processEvent decodes one message body and broadcasts it. Unknown event types are
// logged and reported as handled.
func processEvent(b EventBroadcaster, data []byte) error {
	env, err := events.DecodeEnvelope(data)
	if err != nil {
		return err
	}

	log.Debug().
		Str("event_id", env.EventID).
		Str("event_type", env.EventType).
		Str("session_code", env.SessionCode).
		Msg("processing JetStream event")

	code := env.SessionCode
	switch env.EventType {
	case events.TypeSessionStarted:
		b.BroadcastSessionStarted(code)

	case events.TypeSessionEnded:
		b.BroadcastSessionEnded(code)

	case events.TypeQuestionStarted:
		var p events.QuestionStarted
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		if err := b.BroadcastQuestionStarted(code, p.QuestionIndex, p.Question); err != nil {
			return err
		}

	case events.TypeQuestionEnded:
		var p events.QuestionEnded
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		b.BroadcastQuestionEnded(code, p.QuestionIndex)

	case events.TypeAnswerSubmitted:
		var p events.AnswerSubmitted
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		b.BroadcastAnswerSubmitted(code, p.TeamID)

	case events.TypeAnswerStatsUpdated:
		var p events.AnswerStatsUpdated
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		b.BroadcastAnswerStatsUpdated(code, p.Stats)

	case events.TypeScoreboardUpdated:
		var p events.ScoreboardUpdated
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		b.BroadcastScoreboardUpdated(code, p.Leaderboard)

	default:
		log.Warn().
			Str("event_id", env.EventID).
			Str("event_type", env.EventType).
			Msg("ignoring unknown event type")
		return nil
	}

	log.Info().
		Str("event_id", env.EventID).
		Str("event_type", env.EventType).
		Str("session_code", code).
		Msg("event broadcasted to WebSocket clients")
	return nil
}

// Connected reports whether the NATS connection is currently up
func (ec *EventConsumer) Connected() bool {
	return ec.nc != nil && ec.nc.IsConnected()
}

// Stop closes the NATS connection
func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")
	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}

// GetConsumerInfo returns information about the consumer
func (ec *EventConsumer) GetConsumerInfo(ctx context.Context) (*jetstream.ConsumerInfo, error) {
	return ec.consumer.Info(ctx)
}
