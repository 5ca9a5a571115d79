// Package dispatch executes the five network calls against a transport
// adapter, tracking open connections through a handle registry.
//
// Every handle-bearing call follows the same shape: check the socket out
// of the registry, operate on it with exclusive ownership, then either
// release it under the same handle or retire it.  A deferred Done on the
// lease guarantees a socket is never stranded outside the registry.
package dispatch

import (
	"context"

	neterr "netcall/internal/errors"
	"netcall/internal/metrics"
	"netcall/internal/registry"
	"netcall/internal/request"
	"netcall/internal/transport"
	"netcall/util"
)

// socket is the registry entry for one open connection.  readable is
// cleared by a successful read and set again by open or write.
type socket struct {
	conn     transport.Conn
	readable bool
}

// Dispatcher owns the handle registry and the adapter all calls go
// through.  It is safe for concurrent use.
type Dispatcher struct {
	adapter transport.Adapter
	reg     *registry.Registry[*socket]
	logger  *util.Logger
	metrics *metrics.Collector
}

// New creates a Dispatcher over adapter.  logger and m may be nil.
func New(adapter transport.Adapter, logger *util.Logger, m *metrics.Collector) *Dispatcher {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	d := &Dispatcher{
		adapter: adapter,
		logger:  logger,
		metrics: m,
	}
	d.reg = registry.New(func(s *socket) error {
		m.HandleRetired()
		return adapter.Close(s.conn)
	})
	m.SetHandleGauge(func() (int, int) { return d.reg.Len(), d.reg.Busy() })
	return d
}

// Shutdown tears down the registry, closing every idle connection.
// Connections checked out at that moment close when their call returns.
func (d *Dispatcher) Shutdown() error {
	return d.reg.Close()
}

// Handles returns the number of idle and checked-out handles.
func (d *Dispatcher) Handles() (idle, busy int) {
	return d.reg.Len(), d.reg.Busy()
}

// ConnectWait blocks until the endpoint accepts a TCP connection or the
// request timeout elapses.  No handle is created.
func (d *Dispatcher) ConnectWait(ctx context.Context, r request.ConnectWait) error {
	d.logger.Verbose("wait %s", util.FormatAddr(r.Address, r.Port))
	err := d.adapter.ConnectWait(ctx, r.Address, r.Port, r.Timeout())
	d.metrics.WaitCompleted(err)
	return err
}

// Open establishes a connection and registers it under a new handle.
// On failure nothing is registered.
func (d *Dispatcher) Open(ctx context.Context, r request.Open) (int64, error) {
	conn, err := d.adapter.Open(ctx, r.Address, r.Port, r.Timeout())
	if err != nil {
		return 0, err
	}

	h, err := d.reg.Insert(&socket{conn: conn, readable: true})
	if err != nil {
		d.adapter.Close(conn) //nolint:errcheck
		return 0, err
	}
	d.metrics.HandleOpened()
	d.logger.Verbose("handle %d: opened %s", h, conn.Addr())
	return h, nil
}

// Close closes the connection behind the handle and retires it.  The
// handle is gone even when the close itself reports an error.
func (d *Dispatcher) Close(r request.Close) error {
	lease, err := d.reg.Checkout(r.Handle)
	if err != nil {
		return err
	}
	defer lease.Done()

	d.logger.Verbose("handle %d: close", r.Handle)
	return lease.Retire()
}

// Write sends the payload over the connection behind the handle.  A
// transport error retires the handle.
func (d *Dispatcher) Write(r request.Write) error {
	lease, err := d.reg.Checkout(r.Handle)
	if err != nil {
		return err
	}
	defer lease.Done()

	s := lease.Resource()
	if err := d.adapter.Write(s.conn, []byte(r.Payload)); err != nil {
		d.logger.Verbose("handle %d: write failed, retiring: %v", r.Handle, err)
		lease.Retire() //nolint:errcheck
		return err
	}
	d.metrics.BytesSent(int64(len(r.Payload)))

	s.readable = true
	lease.Release()
	return nil
}

// Read receives the next chunk from the connection behind the handle.
// After a successful read the handle stays open but further reads fail
// until the next write.
func (d *Dispatcher) Read(r request.Read) ([]byte, error) {
	lease, err := d.reg.Checkout(r.Handle)
	if err != nil {
		return nil, err
	}
	defer lease.Done()

	s := lease.Resource()
	if !s.readable {
		lease.Release()
		return nil, &neterr.HandleError{Handle: r.Handle, Reason: neterr.HandleDrained}
	}

	data, err := d.adapter.Read(s.conn)
	if err != nil {
		d.logger.Verbose("handle %d: read failed, retiring: %v", r.Handle, err)
		lease.Retire() //nolint:errcheck
		return nil, err
	}
	d.metrics.BytesReceived(int64(len(data)))

	s.readable = false
	lease.Release()
	return data, nil
}
