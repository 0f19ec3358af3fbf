package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Publisher writes quiz events to the JetStream stream
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config StreamConfig
}

func NewPublisher(ctx context.Context, cfg StreamConfig) (*Publisher, error) {
	nc, js, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := EnsureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return &Publisher{nc: nc, js: js, config: cfg}, nil
}

// Publish sends env on its event type's subject. The event id doubles as the
// JetStream message id so retried publishes are deduplicated.
func (p *Publisher) Publish(ctx context.Context, env Envelope) error {
	subject := p.config.Subject(env.EventType)

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type":   []string{env.EventType},
			"Session-Code": []string{env.SessionCode},
			"Event-ID":     []string{env.EventID},
		},
	},
		jetstream.WithMsgID(env.EventID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Info().
		Str("subject", subject).
		Str("event_id", env.EventID).
		Uint64("sequence", ack.Sequence).
		Str("stream", ack.Stream).
		Msg("published to JetStream")
	return nil
}

func (p *Publisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
