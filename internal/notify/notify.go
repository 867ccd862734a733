// Package notify delivers experiment events to instrument clients over the
// MQTT bus. Each client has its own channel, named after its identifier.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/infrastructure/mqtt"
)

// ErrInvalidChannel is returned for channel names that cannot be used as a
// single topic level.
var ErrInvalidChannel = errors.New("notify: invalid channel")

// Publisher is the part of the MQTT client the dispatcher needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Envelope is the JSON body of every event message.
type Envelope struct {
	Event     string          `json:"event"`
	Channel   string          `json:"channel"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Dispatcher publishes events to client channels.
type Dispatcher struct {
	pub Publisher
	qos byte
	now func() time.Time
}

// NewDispatcher creates a Dispatcher publishing at qos.
func NewDispatcher(pub Publisher, qos byte) *Dispatcher {
	return &Dispatcher{pub: pub, qos: qos, now: time.Now}
}

// Notify publishes event to channel. Events are never retained: a client
// that is offline misses them, and the caller learns so from the error.
func (d *Dispatcher) Notify(ctx context.Context, channel, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !mqtt.ValidChannel(channel) {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}
	msg, err := json.Marshal(Envelope{
		Event:     event,
		Channel:   channel,
		Payload:   body,
		Timestamp: d.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", event, err)
	}

	if err := d.pub.Publish(mqtt.Topics{}.ClientEvent(channel, event), msg, d.qos, false); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", event, channel, err)
	}
	return nil
}
