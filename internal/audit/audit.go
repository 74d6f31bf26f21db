// Package audit writes append-only JSON Lines audit events, one per
// decided command, redacting sensitive substrings before they ever hit
// disk: a rotate-then-redact-then-marshal-then-append logger, with an
// Outcome enum that includes Cancelled for a challenge interrupted
// mid-prompt.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kaplanelad/shellfirm-go/internal/redact"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
)

// defaultMaxLogBytes is the file size at which the log is rotated.
const defaultMaxLogBytes = 10 * 1024 * 1024

// Outcome is the terminal disposition of one analyzed command.
type Outcome string

const (
	OutcomeAllowed   Outcome = "Allowed"
	OutcomeDenied    Outcome = "Denied"
	OutcomeSkipped   Outcome = "Skipped"
	OutcomeCancelled Outcome = "Cancelled"
)

// Event is one audit log record.
type Event struct {
	EventID            string         `json:"event_id"`
	Timestamp          string         `json:"timestamp"`
	Command            string         `json:"command"`
	MatchedIDs         []string       `json:"matched_ids"`
	ChallengeType      string         `json:"challenge_type"`
	Outcome            Outcome        `json:"outcome"`
	ContextLabels      []string       `json:"context_labels"`
	Severity           rules.Severity `json:"severity"`
	AgentName          string         `json:"agent_name,omitempty"`
	AgentSessionID     string         `json:"agent_session_id,omitempty"`
	BlastRadiusScope   string         `json:"blast_radius_scope,omitempty"`
	BlastRadiusDetail  string         `json:"blast_radius_detail,omitempty"`
}

// NowTimestamp returns the current instant formatted as ISO-8601 UTC,
// the format the audit log commits to.
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Logger appends Events to one JSON-Lines file, rotating it once it
// exceeds defaultMaxLogBytes.
type Logger struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// New opens (creating if absent) the audit log at path for append.
func New(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &Logger{path: path, file: file}, nil
}

// rotateIfNeeded renames the current file to <path>.1 (dropping any
// existing one) and opens a fresh file, once the current one reaches
// defaultMaxLogBytes. Must be called with l.mu held.
func (l *Logger) rotateIfNeeded() error {
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat audit log: %w", err)
	}
	if info.Size() < defaultMaxLogBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close audit log before rotation: %w", err)
	}

	rotated := l.path + ".1"
	_ = os.Remove(rotated)
	if err := os.Rename(l.path, rotated); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open fresh audit log after rotation: %w", err)
	}
	l.file = f
	return nil
}

// Log redacts event.Command, marshals it, and appends it as one JSON
// line. A failure here is never fatal to the caller's pipeline: audit
// errors are logged at warn and swallowed.
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "shellfirm: warning: audit log rotation failed: %v\n", err)
	}

	event.Command = redact.Redact(event.Command)

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

// Close releases the underlying file handle.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
