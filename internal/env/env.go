// Package env virtualizes every interaction the core has with the outside
// world — environment variables, the current directory, the filesystem,
// and subprocesses — behind one narrow interface so the rest of the
// pipeline can be exercised against an in-memory fake.
package env

import "time"

// Environment is the capability set the pipeline is allowed to use to
// observe the outside world. Nothing in internal/rulecontext,
// internal/blastradius, internal/projectpolicy, or internal/ruleengine
// is permitted to call os/exec or os directly; everything goes through
// this interface.
type Environment interface {
	// Var returns the value of an environment variable, or ("", false) if unset.
	Var(name string) (string, bool)

	// Cwd returns the current working directory.
	Cwd() (string, error)

	// PathExists reports whether path refers to an existing file or directory.
	PathExists(path string) bool

	// HomeDir returns the user's home directory, or ("", false) if it cannot
	// be determined.
	HomeDir() (string, bool)

	// RunCommand runs name with args and a timeout, returning trimmed stdout.
	// It returns ("", false) on non-zero exit, timeout, spawn failure, or any
	// I/O error — callers treat absence as "unknown" and fall back to safer
	// defaults, never as a reason to fail the pipeline.
	RunCommand(name string, args []string, timeout time.Duration) (string, bool)

	// ReadFile returns the contents of path.
	ReadFile(path string) (string, error)

	// FindUpward walks upward from startDir looking for a file named
	// filename, returning the first full path found, or ("", false).
	FindUpward(startDir, filename string) (string, bool)
}
