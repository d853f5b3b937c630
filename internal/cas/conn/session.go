package conn

import (
	"net"

	"github.com/rimdb/rim/internal/cas/handle"
	"github.com/rimdb/rim/internal/logger"
)

// SlotState is the broker-shared-memory state a CAS process reports for
// its own process slot.
type SlotState int32

const (
	SlotStateBusy SlotState = iota
	SlotStateIdle
	SlotStateRestartNeeded
)

// SharedMemory is the broker shared-memory surface a CAS process reads
// and updates: ACL rules, the replication shared key, and this CAS's own
// slot state and counters (spec §5 "Broker shared memory is read-only
// from CAS except for counters ... updated without a lock").
type SharedMemory interface {
	ACLChecker
	ReplicationSharedKey() []byte
	SetSlotState(state SlotState)
	IncrCounter(name string)
}

// TransactionManager ends the current transaction, with commit or
// rollback, and shuts the database connection down cleanly. Implemented
// by the heap store.
type TransactionManager interface {
	EndTransaction(conn DBConnection, commit bool) error
	Shutdown(conn DBConnection) error
}

// Session is the live, per-connection state a CAS process holds from
// handshake completion until the connection closes: the open database
// connection, the negotiated session key, and the statement/cursor
// handle table.
type Session struct {
	Conn net.Conn

	DBName        string
	User          string
	ClientType    ClientType
	SessionKey    [ServerSessionKeySize]byte
	SessionID     int32
	Open          *OpenState
	Handles       *handle.Table
	ReplAuth      bool

	shared SharedMemory
	txMgr  TransactionManager
}

// NewSession builds a session after a successful handshake and DB
// connect, ready to be handed to the request dispatcher.
func NewSession(clientConn net.Conn, open *OpenState, sessionKey [ServerSessionKeySize]byte, sessionID int32, maxHandles int, shared SharedMemory, txMgr TransactionManager) *Session {
	return &Session{
		Conn:       clientConn,
		DBName:     open.DBName,
		User:       open.User,
		ClientType: open.ClientType,
		SessionKey: sessionKey,
		SessionID:  sessionID,
		Open:       open,
		Handles:    handle.NewTable(maxHandles),
		shared:     shared,
		txMgr:      txMgr,
	}
}

// Shutdown performs the clean-exit sequence of spec §4.6: release the
// handle table, end the transaction with rollback, shut the database
// connection down, and mark this CAS's broker-shared-memory slot idle
// (or restart-needed if restart is true).
func (s *Session) Shutdown(restart bool) {
	if s.Handles != nil {
		s.Handles.FreeAll(true)
	}

	if s.Open != nil && s.Open.Conn != nil {
		if s.txMgr != nil {
			if err := s.txMgr.EndTransaction(s.Open.Conn, false); err != nil {
				logger.Warn("rollback during shutdown failed", logger.Err(err))
			}
			if err := s.txMgr.Shutdown(s.Open.Conn); err != nil {
				logger.Warn("db_shutdown failed", logger.Err(err))
			}
		} else {
			_ = s.Open.Conn.Close()
		}
	}

	if s.shared != nil {
		if restart {
			s.shared.SetSlotState(SlotStateRestartNeeded)
		} else {
			s.shared.SetSlotState(SlotStateIdle)
		}
	}

	_ = s.Conn.Close()
}

// HandleSignalShutdown performs a best-effort free of session resources
// from a signal handler context: it never blocks on a graceful
// transaction end, matching spec §4.6 "A signal handler performs a
// best-effort free and exits with code 0."
func (s *Session) HandleSignalShutdown() {
	if s.Handles != nil {
		s.Handles.FreeAll(true)
	}
	if s.Open != nil && s.Open.Conn != nil {
		_ = s.Open.Conn.Close()
	}
	if s.shared != nil {
		s.shared.SetSlotState(SlotStateIdle)
	}
	_ = s.Conn.Close()
}
