//go:build linux

package ptyproxy

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// openPTY opens /dev/ptmx, unlocks and names the subordinate device, and
// returns both ends as *os.File. Mirrors the source's use of openpty()
// plus the manual grantpt/unlockpt/ptsname dance POSIX platforms need
// when not calling into libc directly.
func openPTY() (master, slave *os.File, err error) {
	m, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open /dev/ptmx: %w", err)
	}

	if err := unix.IoctlSetPointerInt(int(m.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		m.Close()
		return nil, nil, fmt.Errorf("unlock pty: %w", err)
	}

	n, err := unix.IoctlGetUint32(int(m.Fd()), unix.TIOCGPTN)
	if err != nil {
		m.Close()
		return nil, nil, fmt.Errorf("get pty number: %w", err)
	}

	slaveName := "/dev/pts/" + strconv.FormatUint(uint64(n), 10)
	s, err := os.OpenFile(slaveName, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		m.Close()
		return nil, nil, fmt.Errorf("open %s: %w", slaveName, err)
	}

	return m, s, nil
}

// syncTermSize propagates the host terminal's current size (read from
// stdin's fd) onto the PTY master, so the child sees the real window
// dimensions.
func syncTermSize(hostFd int, master *os.File) error {
	ws, err := unix.IoctlGetWinsize(hostFd, unix.TIOCGWINSZ)
	if err != nil {
		return err
	}
	return unix.IoctlSetWinsize(int(master.Fd()), unix.TIOCSWINSZ, ws)
}
