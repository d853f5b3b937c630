package commands

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/rimdb/rim/pkg/config"
)

var handshakeTestSocket string

var handshakeTestCmd = &cobra.Command{
	Use:   "handshake-test",
	Short: "Exercise a broker's side of the CAS handoff handshake",
	Long: `handshake-test plays the broker's side of the connection handoff
described in spec §4.6: dial the CAS's broker socket, exchange
con_status, pass a loopback file descriptor via SCM_RIGHTS, and read
back uts_status. It reports success and round-trip time without
needing a real broker process, for exercising a CAS instance in
isolation.`,
	RunE: runHandshakeTest,
}

func init() {
	handshakeTestCmd.Flags().StringVar(&handshakeTestSocket, "socket", "", "broker handoff socket path (default: config's broker.socket_path)")
}

func runHandshakeTest(cmd *cobra.Command, args []string) error {
	socketPath := handshakeTestSocket
	if socketPath == "" {
		cfg, err := config.MustLoad(GetConfigFile())
		if err != nil {
			return err
		}
		socketPath = cfg.Broker.SocketPath
	}

	start := time.Now()

	addr, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return fmt.Errorf("resolve broker socket: %w", err)
	}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return fmt.Errorf("dial broker socket: %w", err)
	}
	defer conn.Close()

	// con_status: OUT_TRAN, mirroring conn.ConStatusOutTran.
	if err := writeInt32(conn, 0); err != nil {
		return fmt.Errorf("write con_status: %w", err)
	}
	casStatus, err := readInt32(conn)
	if err != nil {
		return fmt.Errorf("read cas con_status: %w", err)
	}

	clientFD, cleanup, err := loopbackFD()
	if err != nil {
		return fmt.Errorf("build loopback fd: %w", err)
	}
	defer cleanup()

	if err := sendFD(conn, clientFD); err != nil {
		return fmt.Errorf("send client fd: %w", err)
	}

	utsStatus, err := readInt32(conn)
	if err != nil {
		return fmt.Errorf("read uts_status: %w", err)
	}

	elapsed := time.Since(start)
	fmt.Printf("handshake ok: cas con_status=%d uts_status=%d (%s)\n", casStatus, utsStatus, elapsed)
	return nil
}

func writeInt32(c *net.UnixConn, v int32) error {
	buf := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	_, err := c.Write(buf[:])
	return err
}

func readInt32(c *net.UnixConn) (int32, error) {
	var buf [4]byte
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return 0, err
		}
	}
	return int32(buf[0])<<24 | int32(buf[1])<<16 | int32(buf[2])<<8 | int32(buf[3]), nil
}

// loopbackFD creates a connected UNIX socket pair and returns one end's
// raw descriptor to hand off, standing in for the real client socket a
// broker would pass (spec §4.6 step 2). The caller must close the
// returned cleanup to release both ends.
func loopbackFD() (int, func(), error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return 0, nil, err
	}
	cleanup := func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	}
	return fds[0], cleanup, nil
}

// sendFD passes fd to the peer over c via an SCM_RIGHTS ancillary
// message, the client-side counterpart of conn.recvFD.
func sendFD(c *net.UnixConn, fd int) error {
	raw, err := c.SyscallConn()
	if err != nil {
		return err
	}
	oob := unix.UnixRights(fd)
	var sendErr error
	if err := raw.Control(func(sysfd uintptr) {
		sendErr = unix.Sendmsg(int(sysfd), []byte{0}, oob, nil, 0)
	}); err != nil {
		return err
	}
	return sendErr
}
