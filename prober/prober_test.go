package prober

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/Goxoy/goxoy-litep2p/membership"
	"github.com/Goxoy/goxoy-litep2p/queue"
	"github.com/Goxoy/goxoy-litep2p/transport"
)

func TestUnknownPeerBecomesOfflineWhenUnreachable(t *testing.T) {
	tbl := membership.New("127.0.0.1:18001")
	tbl.Add("127.0.0.1:1") // nobody listens here

	changes := &queue.StatusChanges{}
	latch := &queue.SyncedLatch{}
	client := transport.NewClient(nil)
	p := New(Config{}, tbl, client, changes, latch, nil)

	p.iterate()

	rec, ok := tbl.Get("127.0.0.1:1")
	require.True(t, ok)
	require.Equal(t, membership.StatusOffline, rec.Status)

	c, ok := changes.Pop()
	require.True(t, ok)
	require.Equal(t, membership.StatusOffline, c.Status)
}

func TestOnlinePeerStaysOnlineOnSuccessfulProbe(t *testing.T) {
	inbound := &queue.Messages{}
	srv, err := transport.Listen("127.0.0.1:0", inbound, nil)
	require.NoError(t, err)
	defer srv.Close()
	stop := make(chan struct{})
	defer close(stop)
	srv.Serve(stop)

	tbl := membership.New("127.0.0.1:18002")
	tbl.Add(srv.Addr())
	tbl.SetStatus(srv.Addr(), membership.StatusOnline)

	changes := &queue.StatusChanges{}
	latch := &queue.SyncedLatch{}
	client := transport.NewClient(nil)
	p := New(Config{}, tbl, client, changes, latch, nil)
	clock := quartz.NewMock(t)
	p.clock = clock

	p.iterate()
	clock.Advance(10 * time.Millisecond)

	rec, ok := tbl.Get(srv.Addr())
	require.True(t, ok)
	require.Equal(t, membership.StatusOnline, rec.Status)
	require.Greater(t, rec.LastAccessTime, int64(0))
}

// TestProbeGateRespectsPingIntervalOnMockClock pins the prober to a mock
// clock and asserts the per-peer probe gate in iterate() only lets a
// second probe through once PingGateMs has elapsed on that clock, not
// on wall time.
func TestProbeGateRespectsPingIntervalOnMockClock(t *testing.T) {
	inbound := &queue.Messages{}
	srv, err := transport.Listen("127.0.0.1:0", inbound, nil)
	require.NoError(t, err)
	defer srv.Close()
	stop := make(chan struct{})
	defer close(stop)
	srv.Serve(stop)

	tbl := membership.New("127.0.0.1:18003")
	tbl.Add(srv.Addr())
	tbl.SetStatus(srv.Addr(), membership.StatusOnline)

	changes := &queue.StatusChanges{}
	latch := &queue.SyncedLatch{}
	client := transport.NewClient(nil)
	p := New(Config{PingGateMs: 1000}, tbl, client, changes, latch, nil)
	clock := quartz.NewMock(t)
	p.clock = clock

	p.iterate()
	before, ok := tbl.Get(srv.Addr())
	require.True(t, ok)

	clock.Advance(10 * time.Millisecond)
	p.iterate()
	after, ok := tbl.Get(srv.Addr())
	require.True(t, ok)
	require.Equal(t, before.LastAccessTime, after.LastAccessTime, "probe gate should have skipped this peer before PingGateMs elapsed")

	clock.Advance(2 * time.Second)
	p.iterate()
	afterGate, ok := tbl.Get(srv.Addr())
	require.True(t, ok)
	require.Greater(t, afterGate.LastAccessTime, after.LastAccessTime, "probe gate should let a probe through once PingGateMs elapsed")
}
