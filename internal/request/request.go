// Package request turns untyped call parameters into typed, validated
// request records.
//
// Each command has a fixed schema.  Decoding is a single pass over the
// supplied fields: a name outside the schema fails at once, and after
// the pass every schema field must have been seen.  Errors are
// *errors.ValidationError values that always name the field involved.
package request

import "time"

// Call names, as routed by the dispatcher.
const (
	CallConnectWait = "net_wait_for_tcp_connection"
	CallOpen        = "net_socket_open"
	CallClose       = "net_socket_close"
	CallWrite       = "net_socket_write"
	CallRead        = "net_socket_read"
)

// Wire field names.
const (
	FieldAddress = "address"
	FieldPort    = "port"
	FieldTimeout = "timeoutMillis"
	FieldHandle  = "handle"
	FieldPayload = "payload"
)

// Endpoint is the address/port/timeout triple shared by connect-and-wait
// and open.
type Endpoint struct {
	Address       string
	Port          int
	TimeoutMillis int64
}

// Timeout converts TimeoutMillis to a duration.
func (e Endpoint) Timeout() time.Duration {
	return time.Duration(e.TimeoutMillis) * time.Millisecond
}

// ConnectWait asks to block until address:port accepts a connection.
type ConnectWait struct{ Endpoint }

// Open asks for a new connection to be established and registered.
type Open struct{ Endpoint }

// Close retires a handle.
type Close struct {
	Handle int64
}

// Write sends Payload over the connection behind Handle.
type Write struct {
	Handle  int64
	Payload string
}

// Read receives the next chunk from the connection behind Handle.
type Read struct {
	Handle int64
}

// DecodeConnectWait validates fields against the connect-and-wait schema.
func DecodeConnectWait(in Fields) (ConnectWait, error) {
	var r ConnectWait
	err := decode(CallConnectWait, in, endpointSchema(&r.Endpoint)...)
	return r, err
}

// DecodeOpen validates fields against the open schema.
func DecodeOpen(in Fields) (Open, error) {
	var r Open
	err := decode(CallOpen, in, endpointSchema(&r.Endpoint)...)
	return r, err
}

// DecodeClose validates fields against the close schema.
func DecodeClose(in Fields) (Close, error) {
	var r Close
	err := decode(CallClose, in, handleField(&r.Handle))
	return r, err
}

// DecodeWrite validates fields against the write schema.
func DecodeWrite(in Fields) (Write, error) {
	var r Write
	err := decode(CallWrite, in,
		handleField(&r.Handle),
		stringField(FieldPayload, &r.Payload),
	)
	return r, err
}

// DecodeRead validates fields against the read schema.
func DecodeRead(in Fields) (Read, error) {
	var r Read
	err := decode(CallRead, in, handleField(&r.Handle))
	return r, err
}

func endpointSchema(e *Endpoint) []field {
	return []field{
		stringField(FieldAddress, &e.Address),
		portField(&e.Port),
		millisField(&e.TimeoutMillis),
	}
}
