// Package transport implements the two TCP primitives the prober and the
// application use to talk to peers: a one-shot outbound client with a
// short read timeout, and an ingress server bound on the node's own
// address. Both are deliberately connection-per-call, unlike
// cluster/connection_pool.go's cached dial-and-reuse pool, a liveness
// prober that reused connections could never observe a fresh connection
// refusal, which is how this system detects a peer going away.
package transport

import (
	"log/slog"
	"net"
	"time"

	"github.com/Goxoy/goxoy-litep2p/wire"
)

// ReadTimeout is the outbound client's read deadline, short enough that
// the prober loop can treat a stalled peer as effectively synchronous.
const ReadTimeout = 10 * time.Millisecond

// Client performs one-shot send-then-receive TCP calls to peers.
type Client struct {
	logger *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{logger: logger}
}

// Call opens a TCP connection to addr, writes b, and reads up to
// wire.OutboundFrameLimit bytes for a reply. It never returns a Go
// error: transport failures collapse into the stable result codes
// wire.IDConnectFailed and its siblings, because the prober branches on the
// specific code rather than on an error value.
func (c *Client) Call(addr string, b []byte) wire.Message {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return wire.ErrorMessage(wire.IDConnectFailed)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(ReadTimeout))

	if _, err := conn.Write(b); err != nil {
		return wire.ErrorMessage(wire.IDWriteFailed)
	}

	buf := make([]byte, wire.OutboundFrameLimit)
	n, err := conn.Read(buf)
	if err != nil {
		return wire.ErrorMessage(wire.IDReadFailed)
	}
	if n == 0 {
		return wire.ErrorMessage(wire.IDEmptyReply)
	}
	return wire.Decode(buf[:n])
}

// CallAsync fires Call in the background and discards the reply. Used
// for best-effort fan-out (ControlNodeStatus propagation, Distribute).
func (c *Client) CallAsync(addr string, b []byte) {
	go func() {
		_ = c.Call(addr, b)
	}()
}

// Send is a convenience wrapper that encodes msg before calling Call.
func (c *Client) Send(addr string, msg wire.Message) wire.Message {
	b, err := wire.Encode(msg)
	if err != nil {
		c.logger.Warn("encode outbound message", "err", err)
		return wire.ErrorMessage(wire.IDWriteFailed)
	}
	return c.Call(addr, b)
}

// SendAsync is the fire-and-forget counterpart of Send.
func (c *Client) SendAsync(addr string, msg wire.Message) {
	b, err := wire.Encode(msg)
	if err != nil {
		c.logger.Warn("encode outbound message", "err", err)
		return
	}
	c.CallAsync(addr, b)
}
