// Package audit is the append-only NDJSON audit log every write-path
// operation reports through: one event per line, advisory-locked across
// concurrent processes sharing the same log file.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ibdtool/ibdtool/internal/ibderrors"
)

// Kind identifies one of the five audit event shapes.
type Kind string

const (
	KindSessionStart  Kind = "session_start"
	KindPageWrite     Kind = "page_write"
	KindFileWrite     Kind = "file_write"
	KindBackupCreated Kind = "backup_created"
	KindSessionEnd    Kind = "session_end"
)

// Event is one NDJSON line. Fields unused by a given Kind are omitted
// from the marshaled JSON.
type Event struct {
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`

	Args      []string `json:"args,omitempty"`
	File      string   `json:"file,omitempty"`
	Page      *int     `json:"page,omitempty"`
	Algorithm string   `json:"algorithm,omitempty"`
	Path      string   `json:"path,omitempty"`
}

// Logger appends NDJSON events to a shared file, holding an advisory
// flock for the duration of each append so multiple ibdtool processes
// (or goroutines sharing one Logger) never interleave partial lines.
type Logger struct {
	mu        sync.Mutex
	f         *os.File
	sessionID string
}

// Open opens (creating if necessary) the audit log at path for
// appending, and generates one session ID that is stamped on every
// event this Logger emits.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, ibderrors.IOWrap(err, "opening audit log %q", path)
	}
	return &Logger{f: f, sessionID: uuid.NewString()}, nil
}

// SessionID returns this Logger's session identifier, stamped on every
// event it writes.
func (l *Logger) SessionID() string { return l.sessionID }

// Close releases the underlying file handle.
func (l *Logger) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

// append serializes ev to one NDJSON line and writes it under an
// advisory exclusive lock spanning the write, so the log stays
// append-only even with multiple processes writing concurrently.
func (l *Logger) append(ev Event) error {
	ev.SessionID = l.sessionID
	line, err := json.Marshal(ev)
	if err != nil {
		return ibderrors.ParseWrap(err, "marshaling audit event %s", ev.Kind)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_EX); err != nil {
		return ibderrors.IOWrap(err, "locking audit log")
	}
	defer syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)

	if _, err := l.f.Write(line); err != nil {
		return ibderrors.IOWrap(err, "writing audit event %s", ev.Kind)
	}
	return l.f.Sync()
}

// SessionStart emits a session_start event carrying the invoking
// command-line arguments.
func (l *Logger) SessionStart(args []string) error {
	return l.append(Event{Kind: KindSessionStart, Timestamp: now(), Args: args})
}

// PageWrite emits a page_write event for one repaired/rewritten page.
func (l *Logger) PageWrite(file string, page int, algorithm string) error {
	p := page
	return l.append(Event{Kind: KindPageWrite, Timestamp: now(), File: file, Page: &p, Algorithm: algorithm})
}

// FileWrite emits a file_write event for an entirely new output file
// (defrag, rebuild).
func (l *Logger) FileWrite(path string) error {
	return l.append(Event{Kind: KindFileWrite, Timestamp: now(), Path: path})
}

// BackupCreated emits a backup_created event for a .bak copy.
func (l *Logger) BackupCreated(path string) error {
	return l.append(Event{Kind: KindBackupCreated, Timestamp: now(), Path: path})
}

// SessionEnd emits the closing session_end event.
func (l *Logger) SessionEnd() error {
	return l.append(Event{Kind: KindSessionEnd, Timestamp: now()})
}

// now is a seam so tests can observe deterministic timestamps if ever
// needed; production always uses wall-clock time.
var now = time.Now
