// Package casruntime wires the independently-testable CAS packages
// (conn, dispatch, handle, auth, catalogmirror/heapstore) into one
// running server process: adapters, stores, and the dispatch loop
// glued together from a loaded Config.
package casruntime

import (
	"sync"

	"github.com/rimdb/rim/internal/cas/conn"
	"github.com/rimdb/rim/pkg/config"
)

// SharedMemory is a local stand-in for the broker shared-memory segment
// a real CAS process attaches to (spec §5: "read-only from CAS except
// for counters"). ACL enforcement and the replication key are out of
// scope for this adapter's storage (they come from Config instead of a
// live broker), so Allowed permits every request: access control is the
// broker's job upstream of the handoff, not this process's.
type SharedMemory struct {
	mu        sync.Mutex
	counters  map[string]int64
	slotState conn.SlotState
	replKey   []byte
}

// NewSharedMemory builds the in-process SharedMemory view for one CAS
// instance from its replication configuration.
func NewSharedMemory(cfg config.ReplicationConfig) *SharedMemory {
	return &SharedMemory{
		counters: make(map[string]int64),
		replKey:  []byte(cfg.SharedKeySecret),
	}
}

// Allowed implements conn.ACLChecker. ACL rules live in the broker's
// shared memory in the original architecture; this process trusts the
// broker to have already enforced them before handing a client off.
func (s *SharedMemory) Allowed(dbName, user, clientIP string) bool { return true }

// ReplicationSharedKey implements conn.SharedMemory.
func (s *SharedMemory) ReplicationSharedKey() []byte { return s.replKey }

// SetSlotState implements conn.SharedMemory.
func (s *SharedMemory) SetSlotState(state conn.SlotState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slotState = state
}

// SlotState reports the last state this process reported.
func (s *SharedMemory) SlotState() conn.SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotState
}

// IncrCounter implements conn.SharedMemory.
func (s *SharedMemory) IncrCounter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
}

// Counter returns the current value of a named counter (diagnostics).
func (s *SharedMemory) Counter(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}
