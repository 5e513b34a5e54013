package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Goxoy/goxoy-litep2p/membership"
	"github.com/Goxoy/goxoy-litep2p/queue"
	"github.com/Goxoy/goxoy-litep2p/wire"
)

type fakePersister struct {
	saved []string
	calls int
}

func (f *fakePersister) Save(addrs []string) {
	f.saved = addrs
	f.calls++
}

func TestDispatchPingAddsPeerAndSetsHash(t *testing.T) {
	tbl := membership.New("A")
	latch := &queue.SyncedLatch{}
	p := New(tbl, nil, false, latch, nil)

	msg := wire.Message{Sender: "B", Kind: wire.KindState, Payload: wire.EncodeState(wire.Ping("peerhash"))}
	p.Dispatch(msg)

	rec, ok := tbl.Get("B")
	require.True(t, ok)
	require.Equal(t, "peerhash", rec.NodeHash)

	self, ok := tbl.Get("A")
	require.True(t, ok)
	require.NotEmpty(t, self.NodeHash)
}

func TestDispatchPingPersistsWhenEnabled(t *testing.T) {
	tbl := membership.New("A")
	fp := &fakePersister{}
	latch := &queue.SyncedLatch{}
	p := New(tbl, fp, true, latch, nil)

	msg := wire.Message{Sender: "B", Kind: wire.KindState, Payload: wire.EncodeState(wire.Ping("h"))}
	p.Dispatch(msg)

	require.Equal(t, 1, fp.calls)
	require.Contains(t, fp.saved, "B")
}

func TestDispatchControlNodeStatusZeroesAccessTime(t *testing.T) {
	tbl := membership.New("A")
	tbl.Add("B")
	tbl.SetAccessTime("B", 555)
	latch := &queue.SyncedLatch{}
	p := New(tbl, nil, false, latch, nil)

	msg := wire.Message{Sender: "C", Kind: wire.KindState, Payload: wire.EncodeState(wire.ControlNodeStatus("B"))}
	p.Dispatch(msg)

	rec, ok := tbl.Get("B")
	require.True(t, ok)
	require.Equal(t, int64(0), rec.LastAccessTime)
}

func TestDispatchNodeListBulkAddsAndLatches(t *testing.T) {
	tbl := membership.New("A")
	latch := &queue.SyncedLatch{}
	p := New(tbl, nil, false, latch, nil)

	msg := wire.Message{Sender: "B", Kind: wire.KindState, Payload: wire.EncodeState(wire.NodeList([]string{"A", "B", "C"}))}
	p.Dispatch(msg)

	require.Len(t, tbl.Snapshot(), 3)
	_, ok := latch.TakeIfUpdated()
	require.True(t, ok)
}

func TestDispatchDistributeIsNoOp(t *testing.T) {
	tbl := membership.New("A")
	latch := &queue.SyncedLatch{}
	p := New(tbl, nil, false, latch, nil)

	msg := wire.Message{Sender: "B", Kind: wire.KindDistribute, Payload: []byte("x")}
	p.Dispatch(msg)

	require.Len(t, tbl.Snapshot(), 1)
}
