// Package membership holds the peer table: the set of known nodes, their
// liveness status, and the membership hash fingerprint used as a
// convergence predicate. It is adapted from the bookkeeping shape of
// prometheus/alertmanager's cluster.Peer (a mutex-guarded map of peer
// records with idempotent join/update operations), generalized to the
// Unknown/Online/Offline lifecycle this system needs instead of
// memberlist's Alive/Failed/Left states.
package membership

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
)

// Status is a peer's liveness state.
type Status int

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "Online"
	case StatusOffline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// NodeDetails is one record in the peer table.
//
// LastAccessTime is intentionally dual-unit: milliseconds since epoch
// while the peer is Online, seconds since epoch while it is Offline.
// This is a preserved quirk of the system this was ported from, not an
// oversight.
//
// SyncedTimeAsSecs is, despite its name, also milliseconds since epoch:
// the timestamp of the last NodeList push sent to this peer. The name is
// carried over unchanged from the source field it mirrors.
type NodeDetails struct {
	Addr             string
	Status           Status
	LastAccessTime   int64
	SyncedTimeAsSecs int64
	NodeHash         string
}

// Table is the mutex-guarded set of known peers, keyed by address.
// Every mutation takes Table's single lock for a short critical section;
// callers that need to iterate while performing I/O must call Snapshot
// first and iterate the copy, never the live map.
type Table struct {
	mu     sync.Mutex
	self   string
	byAddr map[string]*NodeDetails
}

// New creates a table containing exactly one record: self, Online.
func New(self string) *Table {
	t := &Table{self: self, byAddr: make(map[string]*NodeDetails)}
	t.byAddr[self] = &NodeDetails{Addr: self, Status: StatusOnline}
	return t
}

// Self returns this node's own address.
func (t *Table) Self() string { return t.self }

// Add idempotently inserts addr. New peers start Unknown, except self
// which is always Online. Returns true if a new record was created.
func (t *Table) Add(addr string) bool {
	if addr == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byAddr[addr]; ok {
		return false
	}
	status := StatusUnknown
	if addr == t.self {
		status = StatusOnline
	}
	t.byAddr[addr] = &NodeDetails{Addr: addr, Status: status}
	return true
}

// AddMany adds every address in addrs, returning true if any insertion
// occurred.
func (t *Table) AddMany(addrs []string) bool {
	any := false
	for _, a := range addrs {
		if t.Add(a) {
			any = true
		}
	}
	return any
}

// Remove deletes addr from the table. It is only ever called by the
// prober on an Offline peer that has failed a second probe.
func (t *Table) Remove(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byAddr, addr)
}

// Snapshot returns a point-in-time copy of every record, sorted by
// address, safe to read without holding the table's lock.
func (t *Table) Snapshot() []NodeDetails {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]NodeDetails, 0, len(t.byAddr))
	for _, n := range t.byAddr {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Get returns a copy of the record for addr, if present.
func (t *Table) Get(addr string) (NodeDetails, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.byAddr[addr]
	if !ok {
		return NodeDetails{}, false
	}
	return *n, true
}

// SetAccessTime records a successful probe/contact time for addr.
func (t *Table) SetAccessTime(addr string, v int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.byAddr[addr]; ok {
		n.LastAccessTime = v
	}
}

// SetStatus transitions addr to status.
func (t *Table) SetStatus(addr string, status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.byAddr[addr]; ok {
		n.Status = status
	}
}

// SetNodeHash records the self-reported fingerprint last observed from
// addr's Ping replies.
func (t *Table) SetNodeHash(addr, hash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.byAddr[addr]; ok {
		n.NodeHash = hash
	}
}

// ZeroAccessTime resets addr's LastAccessTime to 0, forcing the prober to
// probe it again on the next iteration regardless of status. Used by the
// ControlNodeStatus state handler.
func (t *Table) ZeroAccessTime(addr string) {
	t.SetAccessTime(addr, 0)
}

// SetSyncTime sets SyncedTimeAsSecs on the named subset, or on every
// record when subset is empty.
func (t *Table) SetSyncTime(subset []string, tMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(subset) == 0 {
		for _, n := range t.byAddr {
			n.SyncedTimeAsSecs = tMs
		}
		return
	}
	want := make(map[string]struct{}, len(subset))
	for _, a := range subset {
		want[a] = struct{}{}
	}
	for addr, n := range t.byAddr {
		if _, ok := want[addr]; ok {
			n.SyncedTimeAsSecs = tMs
		}
	}
}

// SortedAddrs returns every known address in ascending order.
func (t *Table) SortedAddrs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.byAddr))
	for a := range t.byAddr {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// OnlineAddrs returns the addresses currently marked Online.
func (t *Table) OnlineAddrs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.byAddr))
	for a, n := range t.byAddr {
		if n.Status == StatusOnline {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// OnlineCount returns the number of Online peers, including self.
func (t *Table) OnlineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, d := range t.byAddr {
		if d.Status == StatusOnline {
			n++
		}
	}
	return n
}

// AllOnlineAgree is true iff among Online records, every non-empty
// NodeHash is equal.
func (t *Table) AllOnlineAgree() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := ""
	for _, n := range t.byAddr {
		if n.Status != StatusOnline || n.NodeHash == "" {
			continue
		}
		if current == "" {
			current = n.NodeHash
			continue
		}
		if current != n.NodeHash {
			return false
		}
	}
	return true
}

// Hash computes the membership fingerprint: the first five hex digits of
// md5(json(sorted addresses)), a colon, and the first five hex digits of
// md5(json(sorted "addr:status" strings)). The algorithm is bit-exact
// with the system this table design was ported from so that multiple
// implementations converge on identical fingerprints for the same
// {addr, status} multiset, independent of insertion order.
func (t *Table) Hash() string {
	snap := t.Snapshot()

	addrs := make([]string, 0, len(snap))
	statuses := make([]string, 0, len(snap))
	for _, n := range snap {
		addrs = append(addrs, n.Addr)
		statuses = append(statuses, n.Addr+":"+n.Status.String())
	}
	sort.Strings(addrs)
	sort.Strings(statuses)

	return sumHalf(addrs) + ":" + sumHalf(statuses)
}

func sumHalf(items []string) string {
	b, _ := json.Marshal(items)
	sum := md5.Sum(b)
	full := hex.EncodeToString(sum[:])
	return full[:5]
}

// RecomputeSelfHash computes the current fingerprint and writes it into
// self's own NodeHash field, so AllOnlineAgree can compare self against
// its peers the same way it compares peers against each other.
func (t *Table) RecomputeSelfHash() string {
	h := t.Hash()
	t.SetNodeHash(t.self, h)
	return h
}
