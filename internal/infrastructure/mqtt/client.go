package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/potentiostat-core/internal/infrastructure/config"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/logging"
)

// MessageHandler receives one message. Paho runs handlers on its own
// goroutines; a returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// Client is the broker session shared by the event notifier and the
// WebSocket relay. Routes registered with Subscribe are replayed after every
// reconnect, and the service's retained status is kept current on
// potentiostat/system/status.
type Client struct {
	paho   pahomqtt.Client
	cfg    config.MQTTConfig
	log    *logging.Logger
	online atomic.Bool

	mu     sync.Mutex
	routes map[string]route
}

type route struct {
	qos     byte
	handler MessageHandler
}

// Connect opens the broker session and blocks until the first CONNACK or
// connectTimeout. A nil log discards client diagnostics.
func Connect(cfg config.MQTTConfig, log *logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.Discard()
	}
	c := &Client{
		cfg:    cfg,
		log:    log.With("component", "mqtt"),
		routes: make(map[string]route),
	}

	opts := clientOptions(cfg)
	opts.SetOnConnectHandler(c.sessionUp)
	opts.SetConnectionLostHandler(c.sessionLost)
	c.paho = pahomqtt.NewClient(opts)

	if err := await(c.paho.Connect(), connectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}
	// sessionUp runs asynchronously and may not have fired yet.
	c.online.Store(true)
	return c, nil
}

// sessionUp fires on the first connect and on every automatic reconnect.
func (c *Client) sessionUp(pahomqtt.Client) {
	c.online.Store(true)

	c.mu.Lock()
	for topic, r := range c.routes {
		c.paho.Subscribe(topic, r.qos, c.dispatch(r.handler))
	}
	n := len(c.routes)
	c.mu.Unlock()

	c.announce(statusOnline, "")
	c.log.Info("MQTT session up", "restored_routes", n)
}

func (c *Client) sessionLost(_ pahomqtt.Client, err error) {
	c.online.Store(false)
	c.log.Warn("MQTT connection lost", "error", err)
}

// announce publishes the retained service status without waiting.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	return c.paho.Publish(Topics{}.SystemStatus(), c.QoS(), true, statusPayload(c.cfg.Broker.ClientID, status, reason))
}

// Close marks the service offline and disconnects. It is safe on a client
// that never connected.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.connected() {
		if err := await(c.announce(statusOffline, "graceful_shutdown"), publishTimeout, ErrPublishFailed); err != nil {
			c.log.Warn("offline status not delivered", "error", err)
		}
	}
	c.paho.Disconnect(disconnectQuiesceMillis)
	c.online.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.connected() {
		return ErrNotConnected
	}
	return nil
}

// QoS returns the configured default QoS level.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS)
}

func (c *Client) connected() bool {
	return c.paho != nil && c.online.Load() && c.paho.IsConnected()
}
