package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/internal/session"
)

// DefaultSubjectPrefix is the NATS subject prefix session events are
// published under; the full subject is "<prefix>.<quiz code>".
const DefaultSubjectPrefix = "quiz.events"

// Envelope is the wire form of a session event. TargetConnID is set for
// unicasts; consumers deliver those only to the matching connection.
type Envelope struct {
	session.Event
	TargetConnID string `json:"target_conn_id,omitempty"`
}

// Subject returns the NATS subject for a quiz code.
func Subject(prefix, code string) string {
	return fmt.Sprintf("%s.%s", prefix, code)
}

// NATSBroadcaster publishes session events to NATS. Core NATS (not
// JetStream) is deliberate: delivery durability is out of scope, and
// per-subject publish order gives each session its total event order.
type NATSBroadcaster struct {
	nc            *nats.Conn
	subjectPrefix string
}

// Connect dials NATS with reconnect handling and returns a broadcaster.
func Connect(url string) (*NATSBroadcaster, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSBroadcaster{nc: nc, subjectPrefix: DefaultSubjectPrefix}, nil
}

// Broadcast publishes an event to every subscriber of the session.
func (b *NATSBroadcaster) Broadcast(code string, event session.Event) {
	b.publish(code, Envelope{Event: event})
}

// Unicast publishes an event addressed to a single connection.
func (b *NATSBroadcaster) Unicast(code string, connID string, event session.Event) {
	b.publish(code, Envelope{Event: event, TargetConnID: connID})
}

func (b *NATSBroadcaster) publish(code string, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(env.Type)).Msg("failed to marshal event envelope")
		return
	}

	if err := b.nc.Publish(Subject(b.subjectPrefix, code), data); err != nil {
		log.Error().
			Err(err).
			Str("quiz_code", code).
			Str("event_type", string(env.Type)).
			Msg("failed to publish event")
	}
}

// Close drains and closes the NATS connection.
func (b *NATSBroadcaster) Close() {
	if err := b.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain NATS connection")
	}
}
