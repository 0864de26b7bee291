package transport

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// socketBufferBytes sizes the kernel socket buffers generously: a
// burst of players all moving at once should never be dropped for
// lack of buffer space before it even reaches the rate limiter.
const socketBufferBytes = 1 << 20 // 1 MiB

type syscallConner interface {
	SyscallConn() (syscall.RawConn, error)
}

// TuneBuffers raises the kernel's receive and send buffer sizes on
// conn's underlying file descriptor. It is best-effort: a conn type
// that doesn't expose a raw fd (e.g. in tests) is left untouched.
func TuneBuffers(conn net.PacketConn) error {
	sc, ok := conn.(syscallConner)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return fmt.Errorf("transport: SyscallConn: %w", err)
	}

	var setErr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, socketBufferBytes); e != nil {
			setErr = fmt.Errorf("SO_RCVBUF: %w", e)
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, socketBufferBytes); e != nil {
			setErr = fmt.Errorf("SO_SNDBUF: %w", e)
			return
		}
	})
	if err != nil {
		return fmt.Errorf("transport: raw control: %w", err)
	}
	return setErr
}
