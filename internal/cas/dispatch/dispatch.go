// Package dispatch implements the CAS request dispatcher (spec §4.7): a
// fixed function-code table, per-request auto-commit bookkeeping, and
// query cancellation, running as a single-threaded cooperative loop
// over one client connection (spec §5).
package dispatch

import (
	"context"

	"github.com/rimdb/rim/internal/cas/conn"
	"github.com/rimdb/rim/internal/cas/handle"
)

// AutoCommitAction is what the dispatcher does to the transaction after
// a handler returns (spec §4.7 step 4: "if need_auto_commit != NONE, run
// the commit or rollback, then set connection status to OUT_TRAN").
type AutoCommitAction int

const (
	AutoCommitNone AutoCommitAction = iota
	AutoCommitCommit
	AutoCommitRollback
)

// TranStatus mirrors the connection's transaction state on the wire
// (StatusInfo.TranStatus).
type TranStatus byte

const (
	TranStatusOutTran TranStatus = iota
	TranStatusInTran
)

// HandlerResult is what a function-code handler returns: the encoded
// reply body, and what the dispatcher should do to the transaction
// afterward.
type HandlerResult struct {
	Body       []byte
	AutoCommit AutoCommitAction
}

// Handler processes one request's argv and produces a reply.
type Handler func(ctx context.Context, d *Dispatcher, argv [][]byte) (HandlerResult, error)

// Engine is the query-processing surface the dispatcher calls into.
// Real SQL parsing and execution planning are out of scope (see
// non-goals); Engine is the seam a storage-backed implementation
// (heapstore) satisfies.
type Engine interface {
	Prepare(ctx context.Context, c conn.DBConnection, sql string, holdable bool) (stmtType handle.StmtType, numMarkers int, columns []handle.ColumnInfo, shardInfo string, err error)
	Execute(ctx context.Context, c conn.DBConnection, h *handle.Handle, args [][]byte, autoCommit bool) (result *handle.QueryResult, commitAction AutoCommitAction, err error)
	Fetch(ctx context.Context, c conn.DBConnection, h *handle.Handle, count int) (rows [][]any, eof bool, err error)
	SchemaInfo(ctx context.Context, c conn.DBConnection, classOID string) ([]byte, error)
	GetDBParameter(ctx context.Context, c conn.DBConnection, name string) (string, error)
	SetDBParameter(ctx context.Context, c conn.DBConnection, name, value string) error
	GetQueryPlan(ctx context.Context, c conn.DBConnection, h *handle.Handle) (string, error)
	ChangeDBUser(ctx context.Context, c conn.DBConnection, user, passwd string) error
	DBVersion(ctx context.Context, c conn.DBConnection) (string, error)
}

// Dispatcher holds the per-connection state the dispatch loop threads
// through every request: the session (connection, handle table, open
// DB), the query engine, the transaction manager, and cancellation/
// restart bookkeeping.
type Dispatcher struct {
	Session *conn.Session
	Engine  Engine
	TxMgr   conn.TransactionManager
	Shared  conn.SharedMemory

	Cancel *CancelState
	Alive  *AliveTracker

	tranStatus TranStatus

	// MemoryLimitBytes restarts the CAS process when exceeded and no
	// holdable results exist (spec §4.7 step 1). Zero disables the check.
	MemoryLimitBytes int64
	// KeepConAuto mirrors the broker's keep_con==AUTO setting: only then,
	// and only while out-of-transaction, does Serve run the memory-limit
	// check before reading the next request. The dispatcher does not poll
	// the broker listener for pending handoffs.
	KeepConAuto bool

	// checkCasRestore, when non-nil, is a snapshot taken by a prior
	// check_cas call marked restore-on-success; a following successful
	// request restores the transaction status from it instead of
	// whatever auto-commit produced (spec §4.7 "Function-specific state
	// transitions").
	checkCasRestore *TranStatus
}

// NewDispatcher builds a dispatcher for a freshly completed session.
func NewDispatcher(session *conn.Session, engine Engine, txMgr conn.TransactionManager, shared conn.SharedMemory) *Dispatcher {
	return &Dispatcher{
		Session: session,
		Engine:  engine,
		TxMgr:   txMgr,
		Shared:  shared,
		Cancel:  NewCancelState(),
		Alive:   NewAliveTracker(),
	}
}

// TranStatus reports the dispatcher's current transaction status.
func (d *Dispatcher) TranStatus() TranStatus { return d.tranStatus }

// applyAutoCommit runs the commit/rollback for action (if any) and
// advances the transaction status, honoring a pending check_cas
// restore snapshot (spec §4.7 step 4, and the check_cas state
// transition).
func (d *Dispatcher) applyAutoCommit(action AutoCommitAction, handlerErr error) error {
	var commitErr error
	if action != AutoCommitNone && d.TxMgr != nil && d.Session.Open != nil && d.Session.Open.Conn != nil {
		commit := action == AutoCommitCommit
		commitErr = d.TxMgr.EndTransaction(d.Session.Open.Conn, commit)
		d.tranStatus = TranStatusOutTran
	}

	if d.checkCasRestore != nil {
		if handlerErr == nil && commitErr == nil {
			d.tranStatus = *d.checkCasRestore
		}
		d.checkCasRestore = nil
	}
	return commitErr
}
