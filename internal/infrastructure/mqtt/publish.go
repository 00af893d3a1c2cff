package mqtt

import (
	"fmt"
)

// maxPayloadSize caps one message at 1MB, in line with common broker
// limits. Oversized payloads are rejected before touching the network.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to confirm
// at the given QoS. Run events and output lines go out unretained;
// retained is for topics whose last value must greet new subscribers,
// like the presence topic.
//
// Fails fast with ErrNotConnected while the link is down; nothing is
// queued for later delivery. The sinks log and carry on, so a broker
// outage costs events, not supervision.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString publishes a string payload unchanged.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes with the retained flag set, at the
// configured default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
