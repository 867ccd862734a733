package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize bounds a single published message.
const maxPayloadSize = 1 << 20

// Publish sends payload on topic and waits for the broker to acknowledge
// it (QoS 1/2) or for the write to complete (QoS 0).
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := checkRoute(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.connected() {
		return ErrNotConnected
	}
	return await(c.paho.Publish(topic, qos, retained, payload), publishTimeout, ErrPublishFailed)
}

// Subscribe routes messages matching topic (wildcards allowed) to handler.
// Subscribing again to the same topic replaces its handler.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := checkRoute(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.connected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.routes[topic] = route{qos: qos, handler: handler}
	c.mu.Unlock()

	if err := await(c.paho.Subscribe(topic, qos, c.dispatch(handler)), publishTimeout, ErrSubscribeFailed); err != nil {
		c.mu.Lock()
		delete(c.routes, topic)
		c.mu.Unlock()
		return err
	}
	return nil
}

// dispatch adapts handler to paho, logging handler errors and panics
// instead of letting them reach the network goroutine.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("MQTT handler panicked", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log.Warn("MQTT handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}

func checkRoute(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}

// await waits for token and tags any failure with kind.
func await(token pahomqtt.Token, timeout time.Duration, kind error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timed out after %v", kind, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return nil
}
