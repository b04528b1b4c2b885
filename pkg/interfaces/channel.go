package interfaces

import "breakout/pkg/protocol"

// Channel is one persistent, ordered, bidirectional connection to the
// relay. Implementations deliver inbound events one at a time in arrival
// order and report closure; they do not reconnect.
type Channel interface {
	// Send queues one outbound command. Fire-and-forget: no response is
	// correlated with the call.
	Send(cmd protocol.Command) error

	// Receive blocks for the next inbound event. A body that cannot be
	// decoded returns protocol.ErrMalformedPayload and leaves the channel
	// usable; any transport failure returns ErrChannelClosed and is
	// terminal.
	Receive() (protocol.Event, error)

	// Close tears the connection down. Safe to call more than once.
	Close() error
}
