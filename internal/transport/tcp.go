package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	neterr "netcall/internal/errors"
	"netcall/internal/retry"
	"netcall/util"
)

// TCPDialer establishes plain TCP connections.
type TCPDialer struct {
	Timeout time.Duration // 0 leaves the bound to the context
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }

// Socket is the Conn produced by TCPAdapter.
type Socket struct {
	conn net.Conn
	addr string
}

// Addr returns the host:port the socket was opened to.
func (s *Socket) Addr() string { return s.addr }

// TCPAdapter implements Adapter over TCP.
type TCPAdapter struct {
	// Dialer opens connections; nil means a plain TCPDialer.
	Dialer Dialer
	// MaxTimeout caps every request timeout; 0 leaves them uncapped.
	MaxTimeout time.Duration
	// IOTimeout bounds each read and write; 0 blocks until the peer acts.
	IOTimeout time.Duration
	// Backoff spaces connect-and-wait attempts; nil means retry.DefaultBackoff.
	Backoff *retry.Backoff
	Logger  *util.Logger
}

func (a *TCPAdapter) dialer() Dialer {
	if a.Dialer != nil {
		return a.Dialer
	}
	return &TCPDialer{}
}

func (a *TCPAdapter) log() *util.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return util.NewLogger(0)
}

// bound applies MaxTimeout to a requested timeout.  The result is 0
// only when neither sets a limit.
func (a *TCPAdapter) bound(timeout time.Duration) time.Duration {
	if a.MaxTimeout > 0 && (timeout <= 0 || timeout > a.MaxTimeout) {
		return a.MaxTimeout
	}
	return timeout
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// ConnectWait dials address:port until a connection is accepted or the
// timeout elapses.  A zero timeout dials exactly once; MaxTimeout then
// only bounds that single dial.
func (a *TCPAdapter) ConnectWait(ctx context.Context, address string, port int, timeout time.Duration) error {
	addr := util.FormatAddr(address, port)

	bo := retry.DefaultBackoff()
	if a.Backoff != nil {
		cp := *a.Backoff
		bo = &cp
	}
	if timeout <= 0 {
		bo.MaxAttempts = 1
	}

	ctx, cancel := withTimeout(ctx, a.bound(timeout))
	defer cancel()

	err := bo.Poll(ctx, func(ctx context.Context, attempt int) error {
		conn, err := a.dialer().Dial(ctx, "tcp", addr)
		if err != nil {
			a.log().Debug("wait %s: attempt %d: %v", addr, attempt, err)
			return err
		}
		conn.Close()
		return nil
	})
	if err == nil {
		return nil
	}

	var ex *retry.ExhaustedError
	if neterr.As(err, &ex) && ex.Cause != nil {
		err = fmt.Errorf("%w: %w", neterr.ErrTimeout, err)
	}
	return neterr.Wrap("wait", addr, err)
}

// Open dials address:port within timeout.
func (a *TCPAdapter) Open(ctx context.Context, address string, port int, timeout time.Duration) (Conn, error) {
	addr := util.FormatAddr(address, port)

	ctx, cancel := withTimeout(ctx, a.bound(timeout))
	defer cancel()

	conn, err := a.dialer().Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, neterr.Wrap("open", addr, err)
	}
	a.log().Verbose("opened %s (local %s)", addr, conn.LocalAddr())
	return &Socket{conn: conn, addr: addr}, nil
}

// Close closes the socket.
func (a *TCPAdapter) Close(c Conn) error {
	s, err := socketOf("close", c)
	if err != nil {
		return err
	}
	return neterr.Wrap("close", s.addr, s.conn.Close())
}

// Write sends all of p.
func (a *TCPAdapter) Write(c Conn, p []byte) error {
	s, err := socketOf("write", c)
	if err != nil {
		return err
	}
	if a.IOTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(a.IOTimeout)) //nolint:errcheck
	}
	_, err = s.conn.Write(p)
	return neterr.Wrap("write", s.addr, err)
}

// Read performs a single read of up to util.DefaultBufSize bytes.  Data
// that arrives together with io.EOF is returned; EOF alone is an error.
func (a *TCPAdapter) Read(c Conn) ([]byte, error) {
	s, err := socketOf("read", c)
	if err != nil {
		return nil, err
	}
	if a.IOTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(a.IOTimeout)) //nolint:errcheck
	}

	buf := util.GetBuf()
	defer util.PutBuf(buf)

	n, err := s.conn.Read(*buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, (*buf)[:n])
		return out, nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return nil, neterr.Wrap("read", s.addr, err)
}

func socketOf(op string, c Conn) (*Socket, error) {
	s, ok := c.(*Socket)
	if !ok || s == nil || s.conn == nil {
		return nil, neterr.Wrap(op, "", fmt.Errorf("not a TCP socket: %T", c))
	}
	return s, nil
}

var _ Adapter = (*TCPAdapter)(nil)
