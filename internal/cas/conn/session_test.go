package conn

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSharedMem struct {
	allowed    bool
	replSecret []byte
	slotState  SlotState
	counters   map[string]int
}

func (f *fakeSharedMem) Allowed(dbName, user, clientIP string) bool { return f.allowed }
func (f *fakeSharedMem) ReplicationSharedKey() []byte               { return f.replSecret }
func (f *fakeSharedMem) SetSlotState(s SlotState)                   { f.slotState = s }
func (f *fakeSharedMem) IncrCounter(name string) {
	if f.counters == nil {
		f.counters = map[string]int{}
	}
	f.counters[name]++
}

type fakeTxMgr struct {
	ended, shutdown bool
}

func (f *fakeTxMgr) EndTransaction(c DBConnection, commit bool) error {
	f.ended = true
	return nil
}

func (f *fakeTxMgr) Shutdown(c DBConnection) error {
	f.shutdown = true
	return c.Close()
}

func TestSessionShutdownEndsTransactionAndMarksSlotIdle(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	shared := &fakeSharedMem{allowed: true}
	txMgr := &fakeTxMgr{}
	dbConn := &fakeDBConn{}
	open := &OpenState{DBName: "mydb", User: "dba", Conn: dbConn}

	s := NewSession(client, open, [ServerSessionKeySize]byte{}, 7, 4, shared, txMgr)
	s.Shutdown(false)

	assert.True(t, txMgr.ended)
	assert.True(t, txMgr.shutdown)
	assert.True(t, dbConn.closed)
	assert.Equal(t, SlotStateIdle, shared.slotState)
}

func TestSessionShutdownMarksRestartNeeded(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	shared := &fakeSharedMem{allowed: true}
	open := &OpenState{DBName: "mydb", Conn: &fakeDBConn{}}
	s := NewSession(client, open, [ServerSessionKeySize]byte{}, 1, 4, shared, nil)
	s.Shutdown(true)

	assert.Equal(t, SlotStateRestartNeeded, shared.slotState)
}

func TestHandleSignalShutdownNeverBlocks(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	shared := &fakeSharedMem{allowed: true}
	conn := &fakeDBConn{}
	open := &OpenState{Conn: conn}
	s := NewSession(client, open, [ServerSessionKeySize]byte{}, 1, 4, shared, nil)
	s.HandleSignalShutdown()

	require.True(t, conn.closed)
	assert.Equal(t, SlotStateIdle, shared.slotState)
}
