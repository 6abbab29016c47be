//go:build unix

package rsp

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// peekInterruptByte performs a non-blocking MSG_PEEK on conn's underlying
// file descriptor to check for a pending Ctrl-C (0x03) byte without
// consuming anything from the stream — and without touching the buffered
// reader the rest of the codec uses (see Conn.PeekInterrupt for why that
// matters). If present, it is then drained with a real (still
// non-blocking) read so it is not seen twice.
func peekInterruptByte(conn net.Conn) bool {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return false
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false
	}

	var found bool
	buf := make([]byte, 1)

	peekErr := raw.Read(func(fd uintptr) bool {
		n, _, err := unix.Recvfrom(int(fd), buf, unix.MSG_PEEK|unix.MSG_DONTWAIT)
		if err != nil || n != 1 || buf[0] != interrupt {
			return true // done, nothing interesting pending
		}
		found = true
		return true
	})
	if peekErr != nil || !found {
		return false
	}

	// Drain the single interrupt byte for real so it isn't observed again
	// by the codec's next ReadPacket call.
	_ = raw.Read(func(fd uintptr) bool {
		_, _, _ = unix.Recvfrom(int(fd), buf, unix.MSG_DONTWAIT)
		return true
	})
	return true
}
