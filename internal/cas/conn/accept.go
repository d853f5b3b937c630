package conn

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/rimdb/rim/internal/cas/auth"
	"github.com/rimdb/rim/internal/logger"
	"github.com/rimdb/rim/pkg/caserr"
)

// CompleteHandshake runs the post-handoff handshake on a freshly
// received client connection: write the success response, read and
// parse the connect message, enforce the ACL, open (or reuse) the
// database connection, negotiate a session key, and send back the
// server-info connect reply (spec §4.6 steps 3-7).
//
// prevState is the CAS process's currently-open database connection, if
// any; it is reused across connect calls on the same process when the
// new request targets the same identity.
func CompleteHandshake(clientConn net.Conn, prevState *OpenState, shared SharedMemory, db Database, txMgr TransactionManager, maxHandles int, version string, pid int32) (*Session, error) {
	if err := writeFramed(clientConn, []byte{0}); err != nil {
		return nil, caserr.New(caserr.CodeCommunication, "write handshake success: %v", err)
	}

	body, err := readFramed(clientConn)
	if err != nil {
		return nil, caserr.New(caserr.CodeCommunication, "read connect message: %v", err)
	}
	msg, err := ParseConnectMessage(body)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(clientConn.RemoteAddr().String())

	if msg.IsHealthCheck() {
		logger.Debug("health-check connect", logger.ClientIP(host))
		return nil, nil
	}

	// A password that validates as a replication shared key selects the
	// replication-broker client type and bypasses normal password auth
	// for the rest of the session (spec §4.6 step 6).
	clientType := ClientTypeReadWrite
	if secret := shared.ReplicationSharedKey(); len(secret) > 0 {
		if _, err := auth.NewReplicationValidator(secret).Validate(msg.Passwd, msg.DBName); err == nil {
			clientType = ClientTypeReplicationBroker
		}
	}

	if !shared.Allowed(msg.DBName, msg.User, host) {
		_ = writeFramed(clientConn, encodeErrorBody(caserr.New(caserr.CodeNotAuthorized, "client not permitted")))
		return nil, caserr.New(caserr.CodeNotAuthorized, "acl rejected %s@%s from %s", msg.User, msg.DBName, host)
	}

	open, err := ConnectToDatabase(prevState, db, msg.DBName, msg.User, msg.Passwd, host, clientType)
	if err != nil {
		_ = writeFramed(clientConn, encodeErrorBody(err))
		return nil, err
	}

	var (
		sessionKey [ServerSessionKeySize]byte
		sessionID  int32
	)
	if msg.HasSession {
		sessionKey, sessionID = msg.SessionKey, msg.SessionID
	} else {
		sessionKey, sessionID, err = NewSessionKey()
		if err != nil {
			return nil, err
		}
	}

	info := ServerInfo{
		Version:               version,
		PID:                   pid,
		SessionKey:            sessionKey,
		SessionID:             sessionID,
		DBMSFlavour:           "rim",
		HoldableResultSupport: true,
		StatementPooling:      true,
		AutocommitDefault:     true,
		StartTime:             time.Now(),
	}
	if err := writeFramed(clientConn, info.Encode()); err != nil {
		return nil, caserr.New(caserr.CodeCommunication, "write connect reply: %v", err)
	}

	session := NewSession(clientConn, open, sessionKey, sessionID, maxHandles, shared, txMgr)
	session.ReplAuth = clientType == ClientTypeReplicationBroker
	return session, nil
}

func encodeErrorBody(err error) []byte {
	ce, ok := err.(*caserr.CasError)
	if !ok {
		ce = caserr.New(caserr.CodeInternal, "%v", err)
	}
	buf := make([]byte, 0, 8+len(ce.Message))
	buf = binary.BigEndian.AppendUint32(buf, uint32(ce.Indicator))
	buf = binary.BigEndian.AppendUint32(buf, uint32(ce.Code))
	buf = append(buf, ce.Message...)
	return buf
}

// readFramed reads a 4-byte big-endian length prefix followed by that
// many bytes, the pre-session framing used before StatusInfo is
// negotiated.
func readFramed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func writeFramed(w io.Writer, body []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}
