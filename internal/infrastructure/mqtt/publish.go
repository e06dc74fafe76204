package mqtt

import (
	"fmt"
)

// maxPayloadSize caps a single message at 1MB, in line with common broker
// limits. Telemetry documents are a few hundred bytes; anything near the
// cap indicates a bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends a message to the given topic and waits for the broker's
// acknowledgement at the requested QoS.
//
// Retained messages replace the broker's stored value for the topic, so
// new subscribers see the latest state immediately. The agent retains
// status announcements only; telemetry and control events are not retained.
//
// Parameters:
//   - topic: Destination topic, usually built with Topics
//   - payload: Message body, JSON in this system
//   - qos: Delivery guarantee (0, 1 or 2)
//   - retained: Whether the broker stores the message for new subscribers
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected, or
//     ErrPublishFailed wrapping the underlying cause
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

	token := c.paho.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
