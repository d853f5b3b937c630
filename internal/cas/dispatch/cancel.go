package dispatch

import (
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rimdb/rim/pkg/caserr"
)

// CancelState tracks the query_cancel_flag a signal handler sets to
// abort an in-flight scan without tearing down the connection (spec
// §4.7 "Cancellation").
type CancelState struct {
	flag   atomic.Bool
	atNano atomic.Int64
}

// NewCancelState returns a cleared cancel state.
func NewCancelState() *CancelState {
	return &CancelState{}
}

// Cancel sets the cancel flag and records when, intended to be called
// from a signal handler so it must not block or allocate in a way that
// could deadlock (it doesn't).
func (c *CancelState) Cancel() {
	c.atNano.Store(time.Now().UnixNano())
	c.flag.Store(true)
}

// Reset clears the cancel flag, run once per request before dispatch.
func (c *CancelState) Reset() {
	c.flag.Store(false)
	c.atNano.Store(0)
}

// Cancelled reports whether a cancel is pending.
func (c *CancelState) Cancelled() bool { return c.flag.Load() }

// CancelledAt returns the time Cancel was called, or the zero value if
// no cancel is pending.
func (c *CancelState) CancelledAt() time.Time {
	ns := c.atNano.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// ScanHook is called by the fetch handler before it reads rows, to
// decide whether to abort. It checks the cancel flag
// and, via a non-blocking POLLIN peek, whether the client socket is
// still reachable (spec §4.7 "During scans, a hook checks (a) this
// flag and (b) whether the client socket is still reachable ... and
// aborts if not").
func ScanHook(cancel *CancelState, clientConn net.Conn) error {
	if cancel.Cancelled() {
		return caserr.New(caserr.CodeQueryCancelled, "query cancelled")
	}
	if !socketReachable(clientConn) {
		return caserr.New(caserr.CodeCommunication, "client socket no longer reachable")
	}
	return nil
}

// syscallConner is implemented by *net.TCPConn and *net.UnixConn.
type syscallConner interface {
	SyscallConn() (syscall.RawConn, error)
}

// socketReachable peeks the client socket with a zero-timeout poll for
// POLLHUP/POLLERR/POLLNVAL without consuming any data. Connections that
// don't expose a raw fd (e.g. net.Pipe, used in tests) are always
// reported reachable.
func socketReachable(c net.Conn) bool {
	sc, ok := c.(syscallConner)
	if !ok {
		return true
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return true
	}

	reachable := true
	_ = rc.Control(func(fd uintptr) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, 0)
		if err != nil || n == 0 {
			return
		}
		if pfd[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			reachable = false
		}
	})
	return reachable
}
