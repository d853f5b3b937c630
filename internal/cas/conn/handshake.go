package conn

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/wire"
)

// ServerSessionKeySize is the width of the server-issued session key
// (spec §4.6 "an 8-byte server session key").
const ServerSessionKeySize = 8

// DummyDBName triggers the health-check short-circuit instead of a real
// database connect (spec §4.6 step 4).
const DummyDBName = "dummydb"

// ConnectMessage is the client's opening request on a freshly handed-off
// socket (spec §4.6 step 4).
type ConnectMessage struct {
	DBName        string
	User          string
	Passwd        string
	URL           string
	ClientVersion string

	// HasSession is true when the client supplied a non-zero prior
	// session to resume (spec §4.6 "a zero session id means new
	// session").
	HasSession bool
	SessionKey [ServerSessionKeySize]byte
	SessionID  int32
}

// IsHealthCheck reports whether this connect message is the dummy-name
// short-circuit rather than a real connect (spec §4.6 step 4).
func (m ConnectMessage) IsHealthCheck() bool {
	return m.DBName == DummyDBName
}

// ParseConnectMessage decodes the connect message body: five
// length-prefixed strings followed by an optional session blob packing
// the session key and session id (original_source cas.c:net_arg_get_str
// sequence for db_name, user, passwd, url, client_version,
// db_session_id).
func ParseConnectMessage(body []byte) (ConnectMessage, error) {
	c := wire.NewCursor(body)
	var msg ConnectMessage

	fields := []*string{&msg.DBName, &msg.User, &msg.Passwd, &msg.URL, &msg.ClientVersion}
	for _, f := range fields {
		s, isNull, err := c.GetStr()
		if err != nil {
			return ConnectMessage{}, caserr.New(caserr.CodeArgs, "connect message: %v", err)
		}
		if !isNull {
			*f = string(s)
		}
	}

	if c.Remaining() > 0 {
		session, isNull, err := c.GetStr()
		if err != nil {
			return ConnectMessage{}, caserr.New(caserr.CodeArgs, "connect message session blob: %v", err)
		}
		if !isNull && len(session) >= ServerSessionKeySize+4 {
			copy(msg.SessionKey[:], session[:ServerSessionKeySize])
			msg.SessionID = int32(binary.BigEndian.Uint32(session[ServerSessionKeySize : ServerSessionKeySize+4]))
			msg.HasSession = msg.SessionID != 0
		}
	}

	return msg, nil
}

// NewSessionKey generates a fresh 8-byte session key and a non-zero
// session id (spec §4.6 "Session keys: an 8-byte server session key plus
// a 4-byte session id are exchanged; a zero session id means 'new
// session'").
func NewSessionKey() (key [ServerSessionKeySize]byte, id int32, err error) {
	if _, err = rand.Read(key[:]); err != nil {
		return key, 0, caserr.New(caserr.CodeInternal, "generate session key: %v", err)
	}
	var idBuf [4]byte
	for {
		if _, err = rand.Read(idBuf[:]); err != nil {
			return key, 0, caserr.New(caserr.CodeInternal, "generate session id: %v", err)
		}
		id = int32(binary.BigEndian.Uint32(idBuf[:]))
		if id != 0 {
			break
		}
	}
	return key, id, nil
}

// ClientType selects the kind of DB connection a CAS process opens,
// chosen from the connect message and ACL result (spec §4.6 step 6).
type ClientType int32

const (
	ClientTypeReadWrite ClientType = iota
	ClientTypeReadOnly
	ClientTypeSlaveOnly
	ClientTypeReplicaOnly
	ClientTypeReplicationBroker
)

func (t ClientType) String() string {
	switch t {
	case ClientTypeReadWrite:
		return "READ_WRITE"
	case ClientTypeReadOnly:
		return "READ_ONLY"
	case ClientTypeSlaveOnly:
		return "SLAVE_ONLY"
	case ClientTypeReplicaOnly:
		return "REPLICA_ONLY"
	case ClientTypeReplicationBroker:
		return "REPLICATION_BROKER"
	default:
		return "UNKNOWN"
	}
}

// ACLChecker validates a connecting client against broker shared-memory
// access rules (spec §4.6 step 5).
type ACLChecker interface {
	Allowed(dbName, user, clientIP string) bool
}

// DBConnection is the live handle a CAS process holds on the database
// engine. Implementations live in heapstore; conn only needs to know how
// to open, reuse, and shut one down.
type DBConnection interface {
	Close() error
}

// Database opens and closes DBConnections for a given client type.
type Database interface {
	Connect(dbName, user, passwd, host string, clientType ClientType) (DBConnection, error)
}

// OpenState tracks the currently-open database connection so a
// same-identity reconnect can be reused instead of torn down and
// reopened (spec §4.6 step 6).
type OpenState struct {
	DBName     string
	User       string
	Passwd     string
	Host       string
	ClientType ClientType
	Conn       DBConnection
}

// matches reports whether a new connect request targets the same
// identity as the currently open connection (spec §4.6 step 6 "if
// db_name/user/passwd match the currently-open DB and the connected host
// is the same, reuse").
func (s *OpenState) matches(dbName, user, passwd, host string, clientType ClientType) bool {
	return s != nil && s.Conn != nil &&
		s.DBName == dbName && s.User == user && s.Passwd == passwd &&
		s.Host == host && s.ClientType == clientType
}

// ConnectToDatabase implements the reuse-or-reopen logic of spec §4.6
// step 6. clientType is passed through to db.Connect as given; any
// replication shared-key check happens before this call.
func ConnectToDatabase(state *OpenState, db Database, dbName, user, passwd, host string, clientType ClientType) (*OpenState, error) {
	if state.matches(dbName, user, passwd, host, clientType) {
		return state, nil
	}
	if state != nil && state.Conn != nil {
		_ = state.Conn.Close()
	}
	c, err := db.Connect(dbName, user, passwd, host, clientType)
	if err != nil {
		return nil, err
	}
	return &OpenState{DBName: dbName, User: user, Passwd: passwd, Host: host, ClientType: clientType, Conn: c}, nil
}

// ServerInfo is returned to the client as the connect reply (spec §4.6
// step 7).
type ServerInfo struct {
	Version            string
	PID                int32
	SessionKey         [ServerSessionKeySize]byte
	SessionID          int32
	DBMSFlavour        string
	HoldableResultSupport bool
	StatementPooling   bool
	AutocommitDefault  bool
	StartTime          time.Time
}

// Encode serializes the connect reply using the net-buffer wire codec
// (spec §4.5, §4.6 step 7).
func (s ServerInfo) Encode() []byte {
	buf := wire.NewNetBuffer()
	buf.PutStr([]byte(s.Version))
	buf.PutInt(s.PID)
	buf.PutStr(s.SessionKey[:])
	buf.PutInt(s.SessionID)
	buf.PutStr([]byte(s.DBMSFlavour))
	buf.PutByte(boolByte(s.HoldableResultSupport))
	buf.PutByte(boolByte(s.StatementPooling))
	buf.PutByte(boolByte(s.AutocommitDefault))
	buf.PutBigint(s.StartTime.Unix())
	return buf.Bytes()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
