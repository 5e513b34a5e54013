// Package node assembles the peer table, ingress server, prober, and
// state processor into the embeddable façade: construct, start, and
// repeatedly call OnEvent to drain whatever happened since the last
// call. The lifecycle (construct → start(non-blocking) → poll for
// events) mirrors cluster.Peer's Join/settle/Leave shape, generalized
// from memberlist delegate callbacks to this system's own EventType.
package node

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Goxoy/goxoy-litep2p/config"
	"github.com/Goxoy/goxoy-litep2p/membership"
	"github.com/Goxoy/goxoy-litep2p/prober"
	"github.com/Goxoy/goxoy-litep2p/queue"
	"github.com/Goxoy/goxoy-litep2p/state"
	"github.com/Goxoy/goxoy-litep2p/store"
	"github.com/Goxoy/goxoy-litep2p/transport"
	"github.com/Goxoy/goxoy-litep2p/wire"
)

// EventKind discriminates the value OnEvent returns.
type EventKind int

const (
	OnWait EventKind = iota
	OnNodesSynced
	OnNodeStatusChanged
	OnMessage
)

// Event is the single value OnEvent produces per call.
type Event struct {
	Kind EventKind

	// OnNodesSynced
	Hash string

	// OnNodeStatusChanged
	Addr   string
	Status membership.Status

	// OnMessage
	Message wire.Message
}

// Node is the embeddable façade: one TCP listener, one prober goroutine,
// and the queues connecting them to OnEvent.
type Node struct {
	self string

	table     *membership.Table
	inbound   *queue.Messages
	changes   *queue.StatusChanges
	latch     *queue.SyncedLatch
	persist   *store.FileStore
	processor *state.Processor
	client    *transport.Client
	server    *transport.Server
	prober    *prober.Prober

	logger *slog.Logger
	stop   chan struct{}
}

// New constructs a Node from cfg but performs no network I/O (it only
// reads the on-disk peer cache when cfg.StoreNodeList is set); call Start
// to bind the listener and spawn the background goroutines.
func New(cfg config.Config, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}

	table := membership.New(cfg.Addr)
	fs := store.New(cfg.Addr, logger)
	inbound := &queue.Messages{}
	changes := &queue.StatusChanges{}
	latch := &queue.SyncedLatch{}
	client := transport.NewClient(logger)
	processor := state.New(table, fs, cfg.StoreNodeList, latch, logger)

	n := &Node{
		self:      cfg.Addr,
		table:     table,
		inbound:   inbound,
		changes:   changes,
		latch:     latch,
		persist:   fs,
		processor: processor,
		client:    client,
		logger:    logger,
		stop:      make(chan struct{}),
	}

	if cfg.StoreNodeList {
		table.AddMany(fs.Load())
	}
	table.AddMany(cfg.Bootstrap)
	table.RecomputeSelfHash()

	n.prober = prober.New(prober.Config{
		PingGateMs:         cfg.PingGateMs,
		OfflineRecheckSecs: cfg.OfflineRecheck,
		NodeListStaleMs:    cfg.NodeListStale,
	}, table, client, changes, latch, logger)

	return n
}

// Start binds the ingress listener and spawns the ingress worker pool
// and the prober goroutine. It does not block. A bind failure is fatal
// per the embedded API's contract: callers are expected to exit the
// process on a non-nil error.
func (n *Node) Start() error {
	srv, err := transport.Listen(n.self, n.inbound, n.logger)
	if err != nil {
		return fmt.Errorf("bind ingress listener on %s: %w", n.self, err)
	}
	n.server = srv
	srv.Serve(n.stop)
	go n.prober.Run(n.stop)
	return nil
}

// Stop tears down the ingress listener and background goroutines.
func (n *Node) Stop() {
	close(n.stop)
	if n.server != nil {
		_ = n.server.Close()
	}
}

// OnEvent drains exactly one pending occurrence, in priority order:
// status changes, then hash convergence, then the inbound message
// queue. It never blocks; absence of work yields OnWait.
func (n *Node) OnEvent() Event {
	if c, ok := n.changes.Pop(); ok {
		n.table.RecomputeSelfHash()
		if c.Status == membership.StatusOnline || c.Status == membership.StatusOffline {
			return Event{Kind: OnNodeStatusChanged, Addr: c.Addr, Status: c.Status}
		}
		// Unknown falls through to the remaining checks this call.
	}

	if hash, ok := n.latch.TakeIfUpdated(); ok {
		return Event{Kind: OnNodesSynced, Hash: hash}
	}

	msg, ok := n.inbound.Peek()
	if !ok {
		return Event{Kind: OnWait}
	}

	switch msg.Kind {
	case wire.KindDistribute:
		n.inbound.Pop()
		n.processor.Dispatch(msg)
		return Event{Kind: OnMessage, Message: msg}
	case wire.KindState:
		n.inbound.Pop()
		n.processor.Dispatch(msg)
		return Event{Kind: OnWait}
	default:
		// A malformed or non-actionable frame (Ok, Error) at the
		// queue head. Discarding it here is what keeps the queue
		// from growing unbounded on a stream of bad frames.
		n.inbound.Pop()
		return Event{Kind: OnWait}
	}
}

// SendTo delivers payload to addr using the async outbound client.
func (n *Node) SendTo(addr string, payload []byte) {
	msg := wire.Message{ID: nanos(), Sender: n.self, Kind: wire.KindDistribute, Payload: payload}
	n.client.SendAsync(addr, msg)
}

// Distribute fires payload at every known peer except self, best-effort.
func (n *Node) Distribute(payload []byte) {
	msg := wire.Message{ID: nanos(), Sender: n.self, Kind: wire.KindDistribute, Payload: payload}
	for _, addr := range n.table.SortedAddrs() {
		if addr == n.self {
			continue
		}
		n.client.SendAsync(addr, msg)
	}
}

// StoreNodeListActive toggles whether peer-table mutations are written
// to the on-disk cache.
func (n *Node) StoreNodeListActive(active bool) {
	n.processor.SetPersistenceActive(active)
}

// Table exposes the underlying peer table for read-only inspection
// (online_count, hash, and similar embedder queries).
func (n *Node) Table() *membership.Table {
	return n.table
}

func nanos() *big.Int {
	return big.NewInt(time.Now().UnixNano())
}
