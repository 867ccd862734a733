// Package mqtt provides MQTT client connectivity for the potentiostat
// service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The broker carries experiment events to instrument clients. Each client
// listens on its own channel, named after its client identifier:
//
//	Service → potentiostat/clients/{channel}/events/{event} → Client
//
// The HTTP API also subscribes to AllClientEvents and relays events to
// clients connected over WebSocket.
//
// # Security Considerations
//
//   - TLS should be enabled for production deployments (cfg.Broker.TLS=true)
//   - Broker ACLs should restrict each client to its own channel
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, log)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.ClientEvent("device-x", "experiment.created")
//	client.Publish(topic, payload, 1, false)
package mqtt
