// Package transport performs the actual network work behind each
// dispatched command: waiting for a port, opening, closing, writing to
// and reading from TCP connections.  It knows nothing about handles;
// the dispatcher owns that bookkeeping.
package transport

import (
	"context"
	"net"
	"time"
)

// Conn is an established connection produced by Adapter.Open.  It is
// opaque to callers apart from its remote address.
type Conn interface {
	Addr() string
}

// Adapter is the connection primitive the dispatcher drives.  Every
// method reports success or a descriptive error.
type Adapter interface {
	// ConnectWait blocks until address:port accepts a connection or
	// timeout elapses.  No connection is kept.
	ConnectWait(ctx context.Context, address string, port int, timeout time.Duration) error

	// Open establishes a connection, giving up after timeout.
	Open(ctx context.Context, address string, port int, timeout time.Duration) (Conn, error)

	// Close closes c.  c must not be used afterwards, even on error.
	Close(c Conn) error

	// Write sends all of p over c.
	Write(c Conn, p []byte) error

	// Read returns the next chunk of data received on c.
	Read(c Conn) ([]byte, error)
}

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}
