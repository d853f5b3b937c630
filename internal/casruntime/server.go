package casruntime

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"os"
	"time"

	"github.com/rimdb/rim/internal/cas/auth"
	"github.com/rimdb/rim/internal/cas/conn"
	"github.com/rimdb/rim/internal/cas/dispatch"
	"github.com/rimdb/rim/internal/logger"
	"github.com/rimdb/rim/pkg/config"
	"github.com/rimdb/rim/pkg/metrics"
	"github.com/rimdb/rim/pkg/wire"
)

// Server is one running CAS process: a broker handoff listener plus
// everything a handed-off connection needs to complete the handshake
// and enter the dispatch loop (spec §4.6, §4.7).
type Server struct {
	cfg     *config.Config
	db      conn.Database
	txMgr   conn.TransactionManager
	engine  dispatch.Engine
	shared  *SharedMemory
	replVal *auth.ReplicationValidator
	metrics metrics.CasMetrics
}

// New builds a Server from a loaded configuration and the concrete
// adapters (heap store, SQL engine) it dispatches against.
func New(cfg *config.Config, db conn.Database, txMgr conn.TransactionManager, engine dispatch.Engine, replVal *auth.ReplicationValidator) *Server {
	return &Server{
		cfg:     cfg,
		db:      db,
		txMgr:   txMgr,
		engine:  engine,
		shared:  NewSharedMemory(cfg.Replication),
		replVal: replVal,
		metrics: metrics.NewCasMetrics(),
	}
}

// Run listens on the configured broker socket and serves handed-off
// client connections until ctx is cancelled (spec §4.6 step 1-2).
func (s *Server) Run(ctx context.Context) error {
	l, err := conn.ListenBrokerSocket(s.cfg.Broker.SocketPath)
	if err != nil {
		return err
	}
	defer l.Close()

	logger.Info("broker handoff listener started", "socket", s.cfg.Broker.SocketPath)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = l.Close()
		close(done)
	}()

	conn.ServeBrokerHandoffs(ctx, l, conn.ConStatusOutTran, conn.UtsStatusIdle, func(client net.Conn) {
		s.handleClient(ctx, client)
	})

	<-done
	return nil
}

// handleClient runs the connect handshake (spec §4.6 step 4-7) and, on
// success, the request dispatch loop (spec §4.7) for one handed-off
// client connection.
func (s *Server) handleClient(ctx context.Context, client net.Conn) {
	defer client.Close()
	s.shared.SetSlotState(conn.SlotStateBusy)
	metrics.SetSessionOpen(s.metrics, true)
	defer func() {
		s.shared.SetSlotState(conn.SlotStateIdle)
		metrics.SetSessionOpen(s.metrics, false)
	}()

	status, body, err := readFramed(client)
	if err != nil {
		logger.Warn("connect message read failed", logger.Err(err))
		return
	}

	msg, err := conn.ParseConnectMessage(body)
	if err != nil {
		logger.Warn("connect message parse failed", logger.Err(err))
		return
	}

	if msg.IsHealthCheck() {
		_ = writeFramed(client, status, conn.ServerInfo{Version: "rim-1.0", DBMSFlavour: "rim"}.Encode())
		return
	}

	clientType, replKey := classifyClient(msg, s.shared.ReplicationSharedKey(), s.replVal)
	if clientType == conn.ClientTypeReplicationBroker && s.replVal != nil {
		if _, err := s.replVal.Validate(replKey, msg.DBName); err != nil {
			logger.Warn("replication key rejected", logger.Err(err))
			return
		}
	}

	if !s.shared.Allowed(msg.DBName, msg.User, remoteIP(client)) {
		logger.Warn("acl rejected connection", "db", msg.DBName, "user", msg.User)
		return
	}

	open, err := conn.ConnectToDatabase(nil, s.db, msg.DBName, msg.User, msg.Passwd, remoteIP(client), clientType)
	if err != nil {
		logger.Warn("database connect failed", logger.Err(err))
		return
	}

	sessionKey, sessionID, err := conn.NewSessionKey()
	if err != nil {
		logger.Error("session key generation failed", logger.Err(err))
		return
	}

	info := conn.ServerInfo{
		Version:               "rim-1.0",
		PID:                   int32(pid()),
		SessionKey:             sessionKey,
		SessionID:              sessionID,
		DBMSFlavour:            "rim",
		HoldableResultSupport:  true,
		StatementPooling:       s.cfg.Dispatcher.MaxPreparedStmts > 0,
		AutocommitDefault:      true,
		StartTime:              time.Now(),
	}
	if err := writeFramed(client, status, info.Encode()); err != nil {
		logger.Warn("connect reply write failed", logger.Err(err))
		return
	}

	session := conn.NewSession(client, open, sessionKey, sessionID, s.cfg.Dispatcher.MaxPreparedStmts, s.shared, s.txMgr)
	d := dispatch.NewDispatcher(session, s.engine, s.txMgr, s.shared)
	d.MemoryLimitBytes = int64(s.cfg.Dispatcher.MemoryLimit)
	d.KeepConAuto = s.cfg.Broker.KeepConAuto

	if err := d.Serve(ctx); err != nil {
		logger.Warn("dispatch loop ended", logger.Err(err))
	}
	session.Shutdown(false)
}

// classifyClient picks the conn.ClientType for a connect message: the
// replication-broker type when a shared key is presented in place of a
// password (spec §4.6 step 6), read-write otherwise. Read-only/slave-
// only/replica-only selection is left to the broker's ACL layer
// upstream, since this process has no view of broker routing policy.
func classifyClient(msg conn.ConnectMessage, _ []byte, replVal *auth.ReplicationValidator) (conn.ClientType, string) {
	if replVal != nil && msg.Passwd != "" && msg.User == "" {
		return conn.ClientTypeReplicationBroker, msg.Passwd
	}
	return conn.ClientTypeReadWrite, ""
}

func remoteIP(c net.Conn) string {
	if addr, ok := c.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}
	return c.RemoteAddr().String()
}

// readFramed and writeFramed duplicate dispatch's unexported message
// framing (spec §4.5) for the connect phase, which runs before a
// Dispatcher exists to own the connection.
func readFramed(r io.Reader) (wire.StatusInfo, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return wire.StatusInfo{}, nil, err
	}
	bodySize := binary.BigEndian.Uint32(lenBuf[:])
	rest := make([]byte, bodySize)
	if _, err := io.ReadFull(r, rest); err != nil {
		return wire.StatusInfo{}, nil, err
	}
	raw := append(lenBuf[:], rest...)
	return wire.DecodeMessageHeader(raw)
}

func writeFramed(w io.Writer, status wire.StatusInfo, body []byte) error {
	_, err := w.Write(wire.EncodeMessage(status, body))
	return err
}

func pid() int {
	return os.Getpid()
}
