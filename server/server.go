package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	humanize "github.com/dustin/go-humanize"
	proxyproto "github.com/pires/go-proxyproto"
	"golang.org/x/net/netutil"

	"github.com/icecave/forkstream/forked"
	"github.com/icecave/forkstream/relay"
	"github.com/icecave/forkstream/request"
	"github.com/icecave/forkstream/upstream"
)

// Server accepts client connections and proxies a single GET request per
// connection to the upstream named by the request target, forking the
// response body into a stream obtained from Factory.
//
// The zero value is not running; configure the exported fields before
// calling Start.
type Server struct {
	// Factory creates the forked stream for each proxied request.
	Factory forked.Factory

	// Executor performs the real upstream request. If nil,
	// upstream.Default is used.
	Executor upstream.Executor

	Logger *log.Logger

	// BufferSize is the relay chunk size. If zero, the relay's default is
	// used.
	BufferSize int

	// ProxyProtocol enables PROXY protocol support on the listening
	// socket.
	ProxyProtocol bool

	// MaxConnections, when non-zero, bounds the number of simultaneously
	// accepted connections. The default is unbounded: one worker per
	// connection with no queuing limit, which leaves the server exposed to
	// connection floods.
	MaxConnections int

	m        sync.Mutex
	listener net.Listener
	port     int
	cancel   context.CancelFunc
	stopped  chan struct{}
	workers  sync.WaitGroup
	conns    registry
	running  bool
}

// Start binds the listening socket and launches the accept loop. A port of
// zero binds an ephemeral port, which Port resolves to the assigned one.
//
// It returns a BindError if the socket cannot be bound, and an
// AlreadyStartedError if the server is already running.
func (s *Server) Start(port int) error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.running {
		return &AlreadyStartedError{}
	}

	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	bound := listener.Addr().(*net.TCPAddr).Port

	if s.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.MaxConnections)
	}
	if s.ProxyProtocol {
		listener = &proxyproto.Listener{Listener: listener}
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.listener = listener
	s.port = bound
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.running = true

	go s.accept(ctx, listener)

	s.logf("proxy: listening on port %d", bound)

	return nil
}

// Shutdown stops the server: it cancels in-flight workers, force-closes
// every live client connection, closes the listening socket, and blocks
// until the accept loop and all workers have stopped. Afterwards the
// server is back in an unstarted state and may be started again.
//
// It returns a NotStartedError if the server is not running.
func (s *Server) Shutdown() error {
	s.m.Lock()
	if !s.running {
		s.m.Unlock()
		return &NotStartedError{Op: "shutdown"}
	}

	cancel := s.cancel
	listener := s.listener
	stopped := s.stopped
	s.running = false
	s.m.Unlock()

	cancel()

	if err := s.conns.CloseAll(); err != nil {
		s.logf("proxy: shutdown: %v", err)
	}

	listener.Close()
	<-stopped

	// The accept loop may have registered a connection after the first
	// sweep; every registration happens before the loop exits, so a second
	// sweep catches any straggler.
	if err := s.conns.CloseAll(); err != nil {
		s.logf("proxy: shutdown: %v", err)
	}

	s.workers.Wait()

	s.m.Lock()
	s.listener = nil
	s.port = 0
	s.cancel = nil
	s.stopped = nil
	s.m.Unlock()

	return nil
}

// Port returns the bound listening port. It returns a NotStartedError if
// the server is not running.
func (s *Server) Port() (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if !s.running {
		return 0, &NotStartedError{Op: "port"}
	}

	return s.port, nil
}

// ActiveConnections returns the number of client connections currently
// being served.
func (s *Server) ActiveConnections() int {
	return s.conns.Len()
}

// accept runs the accept loop until ctx is cancelled or the listening
// socket is closed. Any other accept error is logged and the loop
// continues.
func (s *Server) accept(ctx context.Context, listener net.Listener) {
	defer close(s.stopped)

	for {
		conn, err := listener.Accept()

		if err != nil {
			if ctx.Err() != nil || isClosed(err) {
				return
			}

			s.logf("proxy: unable to accept connection: %v", err)
			continue
		}

		if ctx.Err() != nil {
			conn.Close()
			return
		}

		s.conns.Add(conn)
		s.workers.Add(1)
		go s.serve(ctx, conn)
	}
}

// isClosed reports whether err is the result of the listening socket being
// closed out from under an accept call.
func isClosed(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}

// serve handles a single client connection. Request-level failures are
// logged and terminate this connection's service without affecting other
// connections or the server.
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer s.workers.Done()
	defer func() {
		conn.Close()
		s.conns.Remove(conn)
	}()

	req, err := request.Read(conn)
	if err != nil {
		s.logf("proxy: %s: %v", conn.RemoteAddr(), err)
		return
	}

	executor := s.Executor
	if executor == nil {
		executor = upstream.Default
	}

	response, err := executor.Do(ctx, req.URL, req.Headers)
	if err != nil {
		s.logf("proxy: %s: %v", conn.RemoteAddr(), err)
		return
	}

	if ctx.Err() != nil {
		response.Body.Close()
		return
	}

	fork, err := s.Factory.NewStream(forked.Params(req.Query))
	if err != nil {
		response.Body.Close()
		s.logf("proxy: %s: unable to create forked stream: %v", conn.RemoteAddr(), err)
		return
	}

	r := &relay.Relay{BufferSize: s.BufferSize, Logger: s.Logger}

	relayed, err := r.Stream(ctx, conn, response, fork)
	if err != nil {
		s.logf("proxy: %s: %v", conn.RemoteAddr(), err)
		return
	}

	s.logf(
		"proxy: %s \"GET %s\" %d %s",
		conn.RemoteAddr(),
		req.URL,
		response.StatusCode,
		humanize.IBytes(uint64(relayed)),
	)
}

func (s *Server) logf(format string, v ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, v...)
	}
}
