package websocket

import "errors"

// ErrTransportClosed reports a write against a dead or replaced transport.
// The manager treats it as a disconnect, never as something to retry.
var ErrTransportClosed = errors.New("transport closed")

// Transport is the write side of one live connection. The real
// implementation is the fiber websocket client; tests use in-memory fakes.
type Transport interface {
	// Send queues one encoded frame for delivery.
	Send(data []byte) error
	// Close tears the connection down. Safe to call more than once.
	Close() error
}
