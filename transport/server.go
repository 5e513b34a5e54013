package transport

import (
	"crypto/rand"
	"log/slog"
	"net"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Goxoy/goxoy-litep2p/queue"
	"github.com/Goxoy/goxoy-litep2p/wire"
)

// poolSize mirrors the fixed-size worker pool the original system used
// ahead of this one; any bounded concurrency would work here, a
// fixed-size pool is simply the idiom carried forward.
const poolSize = 4

// Server accepts inbound connections on the node's own address, decodes
// one Message per connection, enqueues it, and replies Ok.
type Server struct {
	self    string
	logger  *slog.Logger
	inbound *queue.Messages

	listener net.Listener
	jobs     chan net.Conn
}

// Listen binds addr. Failure here is fatal to node startup.
func Listen(self string, inbound *queue.Messages, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", self)
	if err != nil {
		return nil, err
	}
	s := &Server{
		self:     self,
		logger:   logger,
		inbound:  inbound,
		listener: ln,
		jobs:     make(chan net.Conn, poolSize*4),
	}
	return s, nil
}

// Serve starts the accept loop and the fixed worker pool. It returns
// immediately; both run on background goroutines until stop is closed.
func (s *Server) Serve(stop <-chan struct{}) {
	for i := 0; i < poolSize; i++ {
		go s.worker(stop)
	}
	go s.accept(stop)
}

func (s *Server) accept(stop <-chan struct{}) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-stop:
				return
			default:
				s.logger.Debug("accept", "err", err)
				continue
			}
		}
		select {
		case s.jobs <- conn:
		case <-stop:
			conn.Close()
			return
		}
	}
}

func (s *Server) worker(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case conn := <-s.jobs:
			s.handle(conn)
		}
	}
}

// handle implements the exact one-shot semantics the wire protocol
// requires: a single read of up to wire.IngressFrameLimit bytes, decode,
// enqueue, and reply with an Ok message, or write the literal "ERR" on a
// read failure.
func (s *Server) handle(conn net.Conn) {
	jobID := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	defer conn.Close()

	buf := make([]byte, wire.IngressFrameLimit)
	n, err := conn.Read(buf)
	if err != nil {
		s.logger.Debug("ingress read failed", "job", jobID.String(), "err", err)
		_, _ = conn.Write([]byte("ERR"))
		return
	}
	if n == 0 {
		return
	}

	msg := wire.Decode(buf[:n])
	s.inbound.Push(msg)

	reply, err := wire.Encode(wire.OkMessage(s.self))
	if err != nil {
		s.logger.Warn("encode ingress reply", "job", jobID.String(), "err", err)
		return
	}
	_, _ = conn.Write(reply)
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Addr returns the bound local address, useful when self was ":0".
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}
