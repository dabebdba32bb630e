package mqtt

import "fmt"

// Topic prefixes.
const (
	// TopicPrefix is the base for every mC Connect topic.
	TopicPrefix = "mcconnect"

	// TopicPrefixDisplay is the base for per-display topics.
	TopicPrefixDisplay = "mcconnect/display"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "mcconnect/system"

	// DefaultIngressTopic carries fleet events published by a relay
	// instead of the HTTP webhook.
	DefaultIngressTopic = "mcconnect/fleet/events"
)

// Topics provides builders for mC Connect MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DisplayState("D-1042")
//	// Returns: "mcconnect/display/D-1042/state"
type Topics struct{}

// DisplayState returns the retained topic mirroring a display's screen.
//
// Example: mcconnect/display/D-1042/state
func (Topics) DisplayState(deviceID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixDisplay, deviceID)
}

// DisplayEvent returns the topic where handled fleet events are echoed.
//
// Example: mcconnect/display/D-1042/event
func (Topics) DisplayEvent(deviceID string) string {
	return fmt.Sprintf("%s/%s/event", TopicPrefixDisplay, deviceID)
}

// SystemStatus returns the system status (and LWT) topic.
//
// Example: mcconnect/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDisplayStates matches every display's state topic.
//
// Pattern: mcconnect/display/+/state
func (Topics) AllDisplayStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixDisplay)
}

// AllDisplayEvents matches every display's event topic.
//
// Pattern: mcconnect/display/+/event
func (Topics) AllDisplayEvents() string {
	return fmt.Sprintf("%s/+/event", TopicPrefixDisplay)
}

// AllTopics matches all mC Connect traffic.
//
// Pattern: mcconnect/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
