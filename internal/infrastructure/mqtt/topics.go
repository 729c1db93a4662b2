package mqtt

import "fmt"

// Topic prefixes.
//
// Value events use winston/state/{module}/{channel}/{index} so that a
// subscriber can filter by module or channel with single-level wildcards.
const (
	// TopicPrefixState is the base for channel value events.
	TopicPrefixState = "winston/state"

	// TopicPrefixTrigger is the base for group trigger executions.
	TopicPrefixTrigger = "winston/trigger"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "winston/system"

	// TopicPrefixCommand is the base for RPC commands carried over MQTT.
	TopicPrefixCommand = "winston/command"
)

// Topics provides builders for Winston MQTT topics.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.ChannelState("virtual", "house", 0)
//	// Returns: "winston/state/virtual/house/0"
type Topics struct{}

// ChannelState returns the topic for a value read or written through the
// RPC router.
//
// Example: winston/state/wemo/lamp/0
func (Topics) ChannelState(module, channelID string, index int) string {
	return fmt.Sprintf("%s/%s/%s/%d", TopicPrefixState, module, channelID, index)
}

// TriggerFired returns the topic for executions of a group trigger.
//
// Example: winston/trigger/evening
func (Topics) TriggerFired(group string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixTrigger, group)
}

// SystemStatus returns the topic for online/offline status.
//
// Example: winston/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// Command returns the topic on which RPC paths are accepted.
//
// Example: winston/command
func (Topics) Command() string {
	return TopicPrefixCommand
}

// CommandResult returns the topic on which command outcomes are published.
//
// Example: winston/command/result
func (Topics) CommandResult() string {
	return fmt.Sprintf("%s/result", TopicPrefixCommand)
}
