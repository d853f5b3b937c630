// Package conn implements the CAS connection lifecycle (spec §4.6): the
// broker handoff handshake over a UNIX-domain socket, connect-message
// parsing, ACL enforcement, database connect/reuse, session keying, and
// graceful shutdown.
package conn

import (
	"context"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rimdb/rim/internal/logger"
	"github.com/rimdb/rim/pkg/caserr"
)

// ConStatus mirrors the broker/CAS connection-status handshake values
// exchanged before the client fd changes hands (original_source
// cas.c:con_status / as_Info->con_status).
type ConStatus int32

const (
	ConStatusOutTran ConStatus = iota
	ConStatusInTran
	ConStatusCloseAndConnect
)

// UtsStatus mirrors the broker/CAS "up time status" reported back after
// the fd handoff so the broker knows whether to expect a restart.
type UtsStatus int32

const (
	UtsStatusIdle UtsStatus = iota
	UtsStatusBusy
	UtsStatusRestart
)

// ListenBrokerSocket binds the well-known per-CAS UNIX-domain socket the
// broker dials to hand off accepted client connections (spec §4.6 step
// 1).
func ListenBrokerSocket(path string) (*net.UnixListener, error) {
	_ = os.Remove(path)
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, caserr.New(caserr.CodeCommunication, "resolve broker socket path %s: %v", path, err)
	}
	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, caserr.New(caserr.CodeCommunication, "bind broker socket %s: %v", path, err)
	}
	return l, nil
}

// RecvClientFD runs the broker handoff handshake over brokerConn: read
// the broker's con_status, reply with the CAS's own status, receive the
// client's socket via SCM_RIGHTS, and report uts_status back. It then
// enables TCP_NODELAY and keepalive on the handed-off socket (spec §4.6
// step 2, grounded on original_source cas.c:recv_client_fd_from_broker).
func RecvClientFD(brokerConn *net.UnixConn, casStatus ConStatus, casUts UtsStatus) (net.Conn, error) {
	if _, err := readInt32(brokerConn); err != nil {
		return nil, caserr.New(caserr.CodeCommunication, "handshake read con_status: %v", err)
	}
	if err := writeInt32(brokerConn, int32(casStatus)); err != nil {
		return nil, caserr.New(caserr.CodeCommunication, "handshake write con_status: %v", err)
	}

	clientConn, err := recvFD(brokerConn)
	if err != nil {
		return nil, caserr.New(caserr.CodeCommunication, "handshake recv client fd: %v", err)
	}

	if err := writeInt32(brokerConn, int32(casUts)); err != nil {
		clientConn.Close()
		return nil, caserr.New(caserr.CodeCommunication, "handshake write uts_status: %v", err)
	}

	if tcp, ok := clientConn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(30 * time.Second)
	}

	return clientConn, nil
}

// recvFD receives a single file descriptor passed over brokerConn via an
// SCM_RIGHTS ancillary message and wraps it as a net.Conn.
func recvFD(brokerConn *net.UnixConn) (net.Conn, error) {
	raw, err := brokerConn.SyscallConn()
	if err != nil {
		return nil, err
	}

	oob := make([]byte, unix.CmsgSpace(4))
	buf := make([]byte, 4)

	var (
		n, oobn int
		recvErr error
	)
	if err := raw.Read(func(fd uintptr) bool {
		n, oobn, _, _, recvErr = unix.Recvmsg(int(fd), buf, oob, 0)
		return true
	}); err != nil {
		return nil, err
	}
	if recvErr != nil {
		return nil, recvErr
	}
	if n == 0 || oobn == 0 {
		return nil, caserr.New(caserr.CodeCommunication, "broker handoff carried no ancillary data")
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, err
	}
	if len(scms) == 0 {
		return nil, caserr.New(caserr.CodeCommunication, "broker handoff carried no control message")
	}
	fds, err := unix.ParseUnixRights(&scms[0])
	if err != nil {
		return nil, err
	}
	if len(fds) == 0 {
		return nil, caserr.New(caserr.CodeCommunication, "broker handoff carried no file descriptor")
	}

	file := os.NewFile(uintptr(fds[0]), "cas-client")
	defer file.Close()
	return net.FileConn(file)
}

func readInt32(c *net.UnixConn) (int32, error) {
	var buf [4]byte
	if _, err := readFull(c, buf[:]); err != nil {
		return 0, err
	}
	return int32(buf[0])<<24 | int32(buf[1])<<16 | int32(buf[2])<<8 | int32(buf[3]), nil
}

func writeInt32(c *net.UnixConn, v int32) error {
	buf := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	_, err := c.Write(buf[:])
	return err
}

func readFull(c *net.UnixConn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ServeBrokerHandoffs accepts broker connections on l until ctx is
// cancelled, running the handshake on each and delivering the resulting
// client connection to accept.
func ServeBrokerHandoffs(ctx context.Context, l *net.UnixListener, casStatus ConStatus, casUts UtsStatus, accept func(net.Conn)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = l.SetDeadline(time.Now().Add(time.Second))
		brokerConn, err := l.AcceptUnix()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			logger.Debug("broker handoff listener error", logger.Err(err))
			continue
		}

		clientConn, err := RecvClientFD(brokerConn, casStatus, casUts)
		brokerConn.Close()
		if err != nil {
			logger.Warn("broker handoff failed", logger.Err(err))
			continue
		}
		accept(clientConn)
	}
}
