package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/internal/events"
)

// EventConsumer subscribes to the session event subjects on NATS and fans
// the events out to WebSocket clients through the connection manager.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	subjectPrefix     string
}

// NewEventConsumer dials NATS and prepares a consumer feeding cm.
func NewEventConsumer(cm *ConnectionManager, url string) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &EventConsumer{
		connectionManager: cm,
		nc:                nc,
		subjectPrefix:     events.DefaultSubjectPrefix,
	}, nil
}

// Start subscribes and blocks until the context is cancelled. NATS invokes
// the handler serially per subscription, which preserves the per-session
// event order end to end.
func (ec *EventConsumer) Start(ctx context.Context) error {
	subject := ec.subjectPrefix + ".>"
	sub, err := ec.nc.Subscribe(subject, ec.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	log.Info().Str("subject", subject).Msg("event consumer started")

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain subscription")
	}
	ec.nc.Close()

	log.Info().Msg("event consumer stopped")
	return nil
}

func (ec *EventConsumer) handleMessage(msg *nats.Msg) {
	var env events.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to decode event envelope")
		return
	}

	data, err := json.Marshal(env.Event)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(env.Type)).Msg("failed to marshal event")
		return
	}

	ec.connectionManager.Deliver(env.QuizCode, env.TargetConnID, data)
}
