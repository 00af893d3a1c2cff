package mqtt

import "errors"

// Sentinel errors for broker operations. Callers match with errors.Is;
// the publish and subscribe paths wrap these with operation detail.
var (
	// ErrNotConnected rejects operations while the broker link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed covers a failed or timed-out initial connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed covers rejected or timed-out publishes,
	// including event payloads over the size cap.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed covers a failed control-topic subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed covers a failed unsubscribe.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels outside 0 to 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topics.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
