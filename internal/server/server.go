// Package server exposes the call router over line-delimited JSON, on
// a TCP listener or on a pair of streams such as stdin/stdout.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"netcall/internal/dispatch"
	"netcall/internal/request"
	"netcall/util"
)

// DefaultMaxInflight bounds concurrent requests per stream when
// Server.MaxInflight is unset.
const DefaultMaxInflight = 64

// maxLine is the longest request line accepted.
const maxLine = 1 << 20

// Caller runs one named call.  *dispatch.Router implements it.
type Caller interface {
	Call(ctx context.Context, name string, in request.Fields) (dispatch.Response, error)
}

// Server reads request envelopes and writes one reply per request.
// Requests on one stream run concurrently; their replies are written
// whole, in completion order.
type Server struct {
	Address     string // host:port for Run
	Caller      Caller
	Logger      *util.Logger
	MaxInflight int

	// Ready, when set, receives the bound listener address once Run is
	// accepting.
	Ready chan<- net.Addr
}

func (s *Server) log() *util.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return util.NewLogger(0)
}

func (s *Server) inflight() int {
	if s.MaxInflight > 0 {
		return s.MaxInflight
	}
	return DefaultMaxInflight
}

// Run listens on Address and serves every accepted connection until ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.  ln is closed
// on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	s.log().Info("listening on %s", ln.Addr())
	if s.Ready != nil {
		s.Ready <- ln.Addr()
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		s.log().Verbose("connection from %s", conn.RemoteAddr())
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := s.ServeStream(ctx, conn, conn); !util.IsHarmless(err) {
		s.log().Warn("%s: %v", conn.RemoteAddr(), err)
	}
	s.log().Verbose("connection from %s closed", conn.RemoteAddr())
}

// ServeStream handles request lines from r until EOF, writing replies to
// w.  It returns once every started request has replied.
func (s *Server) ServeStream(ctx context.Context, r io.Reader, w io.Writer) error {
	var (
		wmu  sync.Mutex
		enc  = json.NewEncoder(w)
		wg   sync.WaitGroup
		sem  = make(chan struct{}, s.inflight())
		werr error
	)
	defer wg.Wait()

	send := func(rep reply) {
		wmu.Lock()
		defer wmu.Unlock()
		if werr != nil {
			return
		}
		werr = enc.Encode(rep)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		env, fields, err := parseEnvelope(line)
		if err != nil {
			send(reply{ID: env.ID, Error: err.Error()})
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			send(s.handle(ctx, env, fields))
		}()
	}
	return sc.Err()
}

func (s *Server) handle(ctx context.Context, env envelope, fields request.Fields) reply {
	log := s.log().With("req", logID(env.ID))
	log.Debug("%s %d field(s)", env.Call, len(fields))

	resp, err := s.Caller.Call(ctx, env.Call, fields)
	if err != nil {
		log.Verbose("%s: %v", env.Call, err)
		return reply{ID: env.ID, Error: err.Error()}
	}
	log.Debug("%s: %s", env.Call, resp.Kind)
	return reply{ID: env.ID, Result: &resp}
}
