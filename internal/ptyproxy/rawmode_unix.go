//go:build unix

package ptyproxy

import (
	"golang.org/x/term"
)

// RawModeGuard owns the host terminal's line discipline for the
// lifetime of one PTY proxy session, mirroring the source's
// RawModeGuard: raw mode is entered once, restored to cooked exactly
// once on every exit path, and can be re-entered after a cooked-mode
// interlude (the challenge prompt).
type RawModeGuard struct {
	fd       int
	oldState *term.State
	raw      bool
}

// NewRawModeGuard puts fd into raw mode and returns a guard that can
// restore or re-enter it.
func NewRawModeGuard(fd int) (*RawModeGuard, error) {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &RawModeGuard{fd: fd, oldState: oldState, raw: true}, nil
}

// RestoreCooked returns the terminal to its original (cooked) mode. Safe
// to call multiple times; a no-op once already cooked.
func (g *RawModeGuard) RestoreCooked() error {
	if !g.raw {
		return nil
	}
	if err := term.Restore(g.fd, g.oldState); err != nil {
		return err
	}
	g.raw = false
	return nil
}

// ReEnterRaw puts the terminal back into raw mode after a cooked-mode
// interlude (e.g. a challenge prompt).
func (g *RawModeGuard) ReEnterRaw() error {
	if g.raw {
		return nil
	}
	if _, err := term.MakeRaw(g.fd); err != nil {
		return err
	}
	g.raw = true
	return nil
}

// Close restores cooked mode; intended for use with defer as the final
// exit-path guarantee, mirroring the source's Drop impl.
func (g *RawModeGuard) Close() error {
	return g.RestoreCooked()
}
