// Package prober implements the liveness loop: the dedicated goroutine
// that periodically pings every known peer, drives Unknown/Online/Offline
// transitions, and reconciles the peer table against the rest of the
// cluster via NodeList pushes. The ticker/done-channel goroutine shape
// is grounded on heartbeat's impl.go; the per-peer probe-or-not decision
// table and the ordering of steps within an iteration are ported
// directly from the original thread_ping loop.
package prober

import (
	"log/slog"
	"time"

	"github.com/coder/quartz"

	"github.com/Goxoy/goxoy-litep2p/membership"
	"github.com/Goxoy/goxoy-litep2p/queue"
	"github.com/Goxoy/goxoy-litep2p/transport"
	"github.com/Goxoy/goxoy-litep2p/wire"
)

// Config holds the prober's timing parameters. Zero values are replaced
// with the defaults below.
type Config struct {
	// PingGateMs is the cadence at which an Online peer already probed
	// recently is left alone.
	PingGateMs int64
	// OfflineRecheckSecs is how long an Offline peer is left alone
	// before it is probed again.
	OfflineRecheckSecs int64
	// NodeListStaleMs is how old a peer's synced_time_as_secs must be
	// before it is sent a fresh NodeList push.
	NodeListStaleMs int64
}

const (
	defaultPingGateMs         = 250
	defaultOfflineRecheckSecs = 10
	defaultNodeListStaleMs    = 100
)

func (c Config) withDefaults() Config {
	if c.PingGateMs <= 0 {
		c.PingGateMs = defaultPingGateMs
	}
	if c.OfflineRecheckSecs <= 0 {
		c.OfflineRecheckSecs = defaultOfflineRecheckSecs
	}
	if c.NodeListStaleMs <= 0 {
		c.NodeListStaleMs = defaultNodeListStaleMs
	}
	return c
}

// Prober runs the liveness loop against a shared Table, emitting status
// deltas onto changes and hash convergence onto latch.
type Prober struct {
	cfg     Config
	table   *membership.Table
	client  *transport.Client
	changes *queue.StatusChanges
	latch   *queue.SyncedLatch
	logger  *slog.Logger
	clock   quartz.Clock

	allChanged bool
}

// New builds a Prober against the real clock. Tests that need
// deterministic timing assign p.clock = quartz.NewMock(t) after
// construction, the same way silence.Silences is overridden in
// silence_test.go.
func New(cfg Config, table *membership.Table, client *transport.Client, changes *queue.StatusChanges, latch *queue.SyncedLatch, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		cfg:        cfg.withDefaults(),
		table:      table,
		client:     client,
		changes:    changes,
		latch:      latch,
		logger:     logger,
		clock:      quartz.NewReal(),
		allChanged: true,
	}
}

// Run blocks, executing iterations back to back until stop is closed. A
// short sleep is inserted between iterations purely to avoid spinning a
// CPU core; the protocol's own pacing comes entirely from the TCP read
// timeout in transport.Client and the ping-gate comparisons below, not
// from this sleep.
func (p *Prober) Run(stop <-chan struct{}) {
	t := p.clock.NewTicker(5 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		default:
		}
		p.iterate()
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

type localUpdate struct {
	addr       string
	status     membership.Status
	accessTime int64
	hadAccess  bool
}

func (p *Prober) iterate() {
	self := p.table.Self()
	snap := p.table.Snapshot()

	selfHash, _ := p.table.Get(self)
	ping := wire.EncodeState(wire.Ping(selfHash.NodeHash))
	pingMsg := wire.Message{ID: nanosBig(p.clock.Now()), Sender: self, Kind: wire.KindState, Payload: ping}
	pingBytes, _ := wire.Encode(pingMsg)

	var updates []localUpdate
	var removal string
	hashDirty := false
	gate := p.cfg.PingGateMs

	for _, peer := range snap {
		if peer.Addr == self {
			continue
		}
		if removal != "" {
			break
		}

		nowMs := millis(p.clock.Now())
		nowS := nowMs / 1000

		probe := false
		switch peer.Status {
		case membership.StatusOnline:
			probe = abs64(nowMs-peer.LastAccessTime) > gate
		case membership.StatusOffline:
			probe = abs64(nowS-peer.LastAccessTime) > p.cfg.OfflineRecheckSecs
			if probe {
				gate = 0
			}
		case membership.StatusUnknown:
			probe = true
			gate = 0
		}
		if !probe {
			continue
		}

		reply := p.client.Call(peer.Addr, pingBytes)

		switch {
		case reply.Kind == wire.KindOk:
			updates = append(updates, localUpdate{addr: peer.Addr, status: membership.StatusOnline, accessTime: nowMs, hadAccess: true})
			if peer.Status != membership.StatusOnline {
				p.changes.Push(queue.StatusChange{Addr: peer.Addr, Status: membership.StatusOnline})
				hashDirty = true
			}

		case reply.ID != nil && reply.ID.Int64() == wire.IDConnectFailed.Int64():
			switch peer.Status {
			case membership.StatusOnline:
				updates = append(updates, localUpdate{addr: peer.Addr, status: membership.StatusOffline, accessTime: nowS, hadAccess: true})
				p.changes.Push(queue.StatusChange{Addr: peer.Addr, Status: membership.StatusOffline})
				p.broadcastControlNodeStatus(peer.Addr, snap)
				hashDirty = true
			case membership.StatusOffline:
				removal = peer.Addr
			case membership.StatusUnknown:
				// An earlier revision enqueued (P, Unknown) here,
				// which the event loop silently drops since it never
				// surfaces Unknown deltas to the application. Offline
				// in both places is what actually reports the failure.
				updates = append(updates, localUpdate{addr: peer.Addr, status: membership.StatusOffline, accessTime: nowS, hadAccess: true})
				p.changes.Push(queue.StatusChange{Addr: peer.Addr, Status: membership.StatusOffline})
				hashDirty = true
			}

		default:
			// id==9 (read failed) and any other error id are
			// silently ignored, per the source.
		}
	}

	if removal != "" {
		p.table.Remove(removal)
		p.allChanged = true
	} else {
		for _, u := range updates {
			if u.hadAccess {
				p.table.SetAccessTime(u.addr, u.accessTime)
			}
			p.table.SetStatus(u.addr, u.status)
		}
	}

	p.pushNodeLists(self)

	if p.table.AllOnlineAgree() {
		if p.allChanged {
			p.allChanged = false
			self2, _ := p.table.Get(self)
			p.latch.Set(self2.NodeHash)
		}
	} else {
		p.allChanged = true
	}

	if hashDirty {
		if p.table.RecomputeSelfHash() != selfHash.NodeHash {
			p.allChanged = true
		}
	}
}

func (p *Prober) broadcastControlNodeStatus(offlineAddr string, snap []membership.NodeDetails) {
	self := p.table.Self()
	payload := wire.EncodeState(wire.ControlNodeStatus(offlineAddr))
	msg := wire.Message{ID: nanosBig(p.clock.Now()), Sender: self, Kind: wire.KindState, Payload: payload}
	for _, peer := range snap {
		if peer.Addr == self || peer.Addr == offlineAddr {
			continue
		}
		p.client.SendAsync(peer.Addr, msg)
	}
}

func (p *Prober) pushNodeLists(self string) {
	snap := p.table.Snapshot()
	selfRec, _ := p.table.Get(self)

	nowMs := millis(p.clock.Now())
	needsPush := false
	for _, peer := range snap {
		if peer.Addr == self || peer.Status != membership.StatusOnline {
			continue
		}
		if peer.NodeHash != selfRec.NodeHash && abs64(nowMs-peer.SyncedTimeAsSecs) > p.cfg.NodeListStaleMs {
			needsPush = true
			break
		}
	}
	if !needsPush {
		return
	}

	addrs := p.table.SortedAddrs()
	payload := wire.EncodeState(wire.NodeList(addrs))
	msg := wire.Message{ID: nanosBig(p.clock.Now()), Sender: self, Kind: wire.KindState, Payload: payload}
	msgBytes, err := wire.Encode(msg)
	if err != nil {
		p.logger.Warn("encode node list push", "err", err)
		return
	}

	var pushed []string
	for _, peer := range snap {
		if peer.Addr == self {
			continue
		}
		p.client.Call(peer.Addr, msgBytes)
		pushed = append(pushed, peer.Addr)
	}
	p.table.SetSyncTime(pushed, nowMs)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
