package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rimdb/rim/pkg/wire"
)

func buildConnectMessage(dbName, user, passwd, url, version string) []byte {
	buf := wire.NewNetBuffer()
	buf.PutStr([]byte(dbName))
	buf.PutStr([]byte(user))
	buf.PutStr([]byte(passwd))
	buf.PutStr([]byte(url))
	buf.PutStr([]byte(version))
	return buf.Bytes()
}

func TestParseConnectMessageWithoutSession(t *testing.T) {
	body := buildConnectMessage("mydb", "dba", "secret", "", "11.0")
	msg, err := ParseConnectMessage(body)
	require.NoError(t, err)
	assert.Equal(t, "mydb", msg.DBName)
	assert.Equal(t, "dba", msg.User)
	assert.Equal(t, "secret", msg.Passwd)
	assert.Equal(t, "11.0", msg.ClientVersion)
	assert.False(t, msg.HasSession)
}

func TestParseConnectMessageHealthCheck(t *testing.T) {
	body := buildConnectMessage(DummyDBName, "", "", "", "")
	msg, err := ParseConnectMessage(body)
	require.NoError(t, err)
	assert.True(t, msg.IsHealthCheck())
}

func TestNewSessionKeyIsNonZeroAndVaries(t *testing.T) {
	k1, id1, err := NewSessionKey()
	require.NoError(t, err)
	assert.NotZero(t, id1)

	k2, id2, err := NewSessionKey()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, id1, id2)
}

type fakeDBConn struct{ closed bool }

func (f *fakeDBConn) Close() error { f.closed = true; return nil }

type fakeDatabase struct{ opens int }

func (f *fakeDatabase) Connect(dbName, user, passwd, host string, clientType ClientType) (DBConnection, error) {
	f.opens++
	return &fakeDBConn{}, nil
}

func TestConnectToDatabaseReusesMatchingIdentity(t *testing.T) {
	db := &fakeDatabase{}
	state, err := ConnectToDatabase(nil, db, "mydb", "dba", "pw", "host1", ClientTypeReadWrite)
	require.NoError(t, err)
	assert.Equal(t, 1, db.opens)

	same, err := ConnectToDatabase(state, db, "mydb", "dba", "pw", "host1", ClientTypeReadWrite)
	require.NoError(t, err)
	assert.Equal(t, 1, db.opens)
	assert.Same(t, state.Conn, same.Conn)
}

func TestConnectToDatabaseReopensOnIdentityChange(t *testing.T) {
	db := &fakeDatabase{}
	state, err := ConnectToDatabase(nil, db, "mydb", "dba", "pw", "host1", ClientTypeReadWrite)
	require.NoError(t, err)

	oldConn := state.Conn.(*fakeDBConn)
	next, err := ConnectToDatabase(state, db, "otherdb", "dba", "pw", "host1", ClientTypeReadWrite)
	require.NoError(t, err)
	assert.Equal(t, 2, db.opens)
	assert.True(t, oldConn.closed)
	assert.NotSame(t, state.Conn, next.Conn)
}

func TestServerInfoEncodeProducesNonEmptyBytes(t *testing.T) {
	var key [ServerSessionKeySize]byte
	info := ServerInfo{Version: "1.0", PID: 42, SessionKey: key, SessionID: 7, DBMSFlavour: "rim"}
	out := info.Encode()
	assert.NotEmpty(t, out)
}
