package dispatch

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rimdb/rim/internal/cas/conn"
	"github.com/rimdb/rim/internal/cas/handle"
	"github.com/rimdb/rim/pkg/wire"
)

type fakeDBConn struct{ closed bool }

func (f *fakeDBConn) Close() error { f.closed = true; return nil }

type fakeTxMgr struct{ ended, committed bool }

func (f *fakeTxMgr) EndTransaction(c conn.DBConnection, commit bool) error {
	f.ended = true
	f.committed = commit
	return nil
}
func (f *fakeTxMgr) Shutdown(c conn.DBConnection) error { return c.Close() }

type fakeShared struct {
	allowed  bool
	counters map[string]int
}

func (f *fakeShared) Allowed(dbName, user, clientIP string) bool { return f.allowed }
func (f *fakeShared) ReplicationSharedKey() []byte               { return nil }
func (f *fakeShared) SetSlotState(s conn.SlotState)              {}
func (f *fakeShared) IncrCounter(name string) {
	if f.counters == nil {
		f.counters = map[string]int{}
	}
	f.counters[name]++
}

// fakeEngine is a minimal stand-in for the storage-backed query engine;
// Prepare always returns a one-column select, Execute always returns a
// single row, and Fetch returns a single row on the first call and an
// empty, eof result thereafter.
type fakeEngine struct{ fetched bool }

func (e *fakeEngine) Prepare(ctx context.Context, c conn.DBConnection, sql string, holdable bool) (handle.StmtType, int, []handle.ColumnInfo, string, error) {
	return handle.StmtTypeSelect, 0, []handle.ColumnInfo{{Name: "id", TypeCode: 1}}, "", nil
}

func (e *fakeEngine) Execute(ctx context.Context, c conn.DBConnection, h *handle.Handle, args [][]byte, autoCommit bool) (*handle.QueryResult, AutoCommitAction, error) {
	return &handle.QueryResult{
		Columns: h.Columns,
		Rows:    [][]any{{int64(1)}},
	}, AutoCommitNone, nil
}

func (e *fakeEngine) Fetch(ctx context.Context, c conn.DBConnection, h *handle.Handle, count int) ([][]any, bool, error) {
	if !e.fetched {
		e.fetched = true
		return [][]any{{int64(1)}}, false, nil
	}
	return nil, true, nil
}

func (e *fakeEngine) SchemaInfo(ctx context.Context, c conn.DBConnection, classOID string) ([]byte, error) {
	return []byte("schema"), nil
}
func (e *fakeEngine) GetDBParameter(ctx context.Context, c conn.DBConnection, name string) (string, error) {
	return "value", nil
}
func (e *fakeEngine) SetDBParameter(ctx context.Context, c conn.DBConnection, name, value string) error {
	return nil
}
func (e *fakeEngine) GetQueryPlan(ctx context.Context, c conn.DBConnection, h *handle.Handle) (string, error) {
	return "plan", nil
}
func (e *fakeEngine) ChangeDBUser(ctx context.Context, c conn.DBConnection, user, passwd string) error {
	return nil
}
func (e *fakeEngine) DBVersion(ctx context.Context, c conn.DBConnection) (string, error) {
	return "1.0", nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	t.Cleanup(func() { clientSide.Close() })

	open := &conn.OpenState{DBName: "mydb", User: "dba", Conn: &fakeDBConn{}}
	session := conn.NewSession(serverSide, open, [conn.ServerSessionKeySize]byte{}, 1, 64, &fakeShared{allowed: true}, &fakeTxMgr{})

	d := NewDispatcher(session, &fakeEngine{}, &fakeTxMgr{}, &fakeShared{allowed: true})
	return d, clientSide
}

func sendRequest(t *testing.T, clientSide net.Conn, funcCode wire.FuncCode, args [][]byte) {
	t.Helper()
	body := wire.EncodeRequest(byte(funcCode), args)
	msg := wire.EncodeMessage(wire.StatusInfo{}, body)
	_, err := clientSide.Write(msg)
	require.NoError(t, err)
}

func recvReply(t *testing.T, clientSide net.Conn) (wire.StatusInfo, []byte) {
	t.Helper()
	var lenBuf [4]byte
	_, err := readFull(t, clientSide, lenBuf[:])
	require.NoError(t, err)
	n := binary.BigEndian.Uint32(lenBuf[:])
	rest := make([]byte, n)
	_, err = readFull(t, clientSide, rest)
	require.NoError(t, err)
	raw := append(lenBuf[:], rest...)
	status, body, err := wire.DecodeMessageHeader(raw)
	require.NoError(t, err)
	return status, body
}

func readFull(t *testing.T, r net.Conn, buf []byte) (int, error) {
	t.Helper()
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestServePreparesExecutesFetchesAndCloses(t *testing.T) {
	d, clientSide := newTestDispatcher(t)

	done := make(chan error, 1)
	go func() { done <- d.Serve(context.Background()) }()

	sendRequest(t, clientSide, wire.FuncPrepare, [][]byte{[]byte("select id from t"), {0}})
	_, prepareBody := recvReply(t, clientSide)
	c := wire.NewCursor(prepareBody)
	handleID, err := c.GetInt()
	require.NoError(t, err)

	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(handleID))

	sendRequest(t, clientSide, wire.FuncExecute, [][]byte{idBuf[:], {1}})
	_, execBody := recvReply(t, clientSide)
	assert.NotEmpty(t, execBody)

	sendRequest(t, clientSide, wire.FuncFetch, [][]byte{idBuf[:], {0, 0, 0, 1}})
	_, fetchBody := recvReply(t, clientSide)
	assert.NotEmpty(t, fetchBody)

	sendRequest(t, clientSide, wire.FuncConClose, nil)
	_, _ = recvReply(t, clientSide)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after con_close")
	}
}

func TestCheckCasRestoresStatusOnlyOnSuccess(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.tranStatus = TranStatusInTran

	result, err := handleCheckCas(context.Background(), d, [][]byte{{1}})
	require.NoError(t, err)
	assert.NotNil(t, result.Body)
	require.NotNil(t, d.checkCasRestore)

	d.tranStatus = TranStatusOutTran
	assert.NoError(t, d.applyAutoCommit(AutoCommitNone, nil))
	assert.Equal(t, TranStatusInTran, d.tranStatus)
}

func TestScanHookDetectsCancellation(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	cancel := NewCancelState()
	assert.NoError(t, ScanHook(cancel, serverSide))

	cancel.Cancel()
	err := ScanHook(cancel, serverSide)
	assert.Error(t, err)
}

func TestEffectiveTimeoutPicksSmallerAndReportsOrigin(t *testing.T) {
	timeout, origin := EffectiveTimeout(5*time.Second, 10*time.Second)
	assert.Equal(t, 5*time.Second, timeout)
	assert.Equal(t, "from app", origin)

	timeout, origin = EffectiveTimeout(10*time.Second, 5*time.Second)
	assert.Equal(t, 5*time.Second, timeout)
	assert.Equal(t, "from broker", origin)

	timeout, origin = EffectiveTimeout(0, 0)
	assert.Equal(t, time.Duration(0), timeout)
	assert.Equal(t, "no limit", origin)
}
