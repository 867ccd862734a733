package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes. Every topic this service publishes lives under
// TopicPrefix.
//
//	potentiostat/clients/{channel}/events/{event}
//	potentiostat/system/status
const (
	// TopicPrefix is the root of the topic tree.
	TopicPrefix = "potentiostat"

	// TopicPrefixClients is the base for per-client topics. The channel
	// segment is the client identifier.
	TopicPrefixClients = "potentiostat/clients"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "potentiostat/system"
)

// Topics provides builders for potentiostat MQTT topics.
//
//	topic := mqtt.Topics{}.ClientEvent("device-x", "experiment.created")
//	// Returns: "potentiostat/clients/device-x/events/experiment.created"
type Topics struct{}

// ClientEvent returns the topic an event for one client is published on.
//
// Example: potentiostat/clients/device-x/events/experiment.created
func (Topics) ClientEvent(channel, event string) string {
	return fmt.Sprintf("%s/%s/events/%s", TopicPrefixClients, channel, event)
}

// ClientEvents returns a pattern matching every event for one client.
//
// Pattern: potentiostat/clients/device-x/events/+
func (Topics) ClientEvents(channel string) string {
	return fmt.Sprintf("%s/%s/events/+", TopicPrefixClients, channel)
}

// AllClientEvents returns a pattern matching events for every client.
//
// Pattern: potentiostat/clients/+/events/+
func (Topics) AllClientEvents() string {
	return TopicPrefixClients + "/+/events/+"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: potentiostat/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// ParseClientEvent splits a client event topic into its channel and event.
// ok is false for any other topic.
func ParseClientEvent(topic string) (channel, event string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixClients+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "events" || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

// ValidChannel reports whether channel can be used as a single topic
// level: non-empty and free of separators and wildcards.
func ValidChannel(channel string) bool {
	return channel != "" && !strings.ContainsAny(channel, "/+#")
}
