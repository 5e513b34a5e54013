// Package state implements the state processor: the single place inbound
// Ping / NodeList / ControlNodeStatus messages are applied to the peer
// table. It plays the role cluster/delegate.go's NotifyMsg and
// MergeRemoteState play upstream: merging peer-reported state into
// local state, generalized from memberlist's opaque byte blobs to this
// system's three concrete State variants.
package state

import (
	"log/slog"

	"github.com/Goxoy/goxoy-litep2p/membership"
	"github.com/Goxoy/goxoy-litep2p/queue"
	"github.com/Goxoy/goxoy-litep2p/wire"
)

// Persister is the narrow interface the processor needs from the on-disk
// peer cache; store.FileStore satisfies it.
type Persister interface {
	Save(addrs []string)
}

// Processor applies inbound State messages to a Table.
type Processor struct {
	table     *membership.Table
	persist   Persister
	persistOn bool
	latch     *queue.SyncedLatch
	logger    *slog.Logger
}

func New(table *membership.Table, persist Persister, persistOn bool, latch *queue.SyncedLatch, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{table: table, persist: persist, persistOn: persistOn, latch: latch, logger: logger}
}

// SetPersistenceActive toggles whether peer-table mutations are
// persisted to disk, implementing the embedded API's
// store_node_list_active(bool) operation.
func (p *Processor) SetPersistenceActive(active bool) {
	p.persistOn = active
}

// Dispatch applies msg's effect on the peer table, if any. Kind ==
// Distribute and Kind == Ok are no-ops here; only Kind == State carries a
// StateType payload for this processor to act on.
func (p *Processor) Dispatch(msg wire.Message) {
	if msg.Kind != wire.KindState {
		return
	}
	p.processState(wire.DecodeState(msg.Payload), msg.Sender)
}

func (p *Processor) processState(s wire.StateType, sender string) {
	switch s.Tag {
	case wire.StatePing:
		p.table.Add(sender)
		p.maybePersist()
		p.table.SetNodeHash(sender, s.PingHash)
		p.table.RecomputeSelfHash()

	case wire.StateControlNodeStatus:
		p.table.ZeroAccessTime(s.ControlNodeAddr)

	case wire.StateNodeList:
		if p.table.AddMany(s.NodeListAddrs) {
			hash := p.table.RecomputeSelfHash()
			p.latch.Set(hash)
			p.maybePersist()
		}

	default:
		p.logger.Debug("discarding unrecognized state payload", "sender", sender)
	}
}

func (p *Processor) maybePersist() {
	if p.persistOn && p.persist != nil {
		p.persist.Save(p.table.SortedAddrs())
	}
}
