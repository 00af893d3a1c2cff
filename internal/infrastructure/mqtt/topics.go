package mqtt

import "fmt"

// DefaultTopicPrefix is used when the configuration leaves the topic
// prefix empty. Running several coverseer instances against one broker
// only needs distinct prefixes (for example "coverseer/train-job").
const DefaultTopicPrefix = "coverseer"

// Topics builds the coverseer topic hierarchy under a configurable
// prefix. Using these helpers keeps topic naming consistent between
// the publisher, the LWT configuration and external subscribers.
//
//	topics := mqtt.NewTopics("coverseer")
//	topics.Status()        // coverseer/status
//	topics.Event("verdict") // coverseer/event/verdict
type Topics struct {
	prefix string
}

// NewTopics creates a topic builder for the given prefix, falling back
// to DefaultTopicPrefix when empty.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the configured topic prefix.
func (t Topics) Prefix() string {
	return t.prefix
}

// Status returns the presence topic. Published retained on connect and
// graceful shutdown, and by the broker's LWT on unexpected disconnect.
//
// Example: coverseer/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.prefix)
}

// Event returns the topic for a lifecycle event kind
// (start, exit, verdict, restart, state).
//
// Example: coverseer/event/verdict
func (t Topics) Event(kind string) string {
	return fmt.Sprintf("%s/event/%s", t.prefix, kind)
}

// Output returns the topic for captured child output on one stream.
//
// Example: coverseer/output/stderr
func (t Topics) Output(stream string) string {
	return fmt.Sprintf("%s/output/%s", t.prefix, stream)
}

// Control returns the topic coverseer listens on for operator commands.
// A "restart" payload requests a child restart.
//
// Example: coverseer/control
func (t Topics) Control() string {
	return fmt.Sprintf("%s/control", t.prefix)
}

// AllEvents returns a pattern matching every lifecycle event.
//
// Pattern: coverseer/event/+
func (t Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", t.prefix)
}

// AllOutput returns a pattern matching both output streams.
//
// Pattern: coverseer/output/+
func (t Topics) AllOutput() string {
	return fmt.Sprintf("%s/output/+", t.prefix)
}

// All returns a pattern matching every coverseer topic.
// Use with caution on shared brokers.
//
// Pattern: coverseer/#
func (t Topics) All() string {
	return fmt.Sprintf("%s/#", t.prefix)
}
