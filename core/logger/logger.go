// Package logger is the newline-delimited JSON event log for shell
// sessions.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"
)

// Event names recorded in the log.
const (
	EventSessionStart    = "session_start"
	EventSessionEnd      = "session_end"
	EventLogin           = "login"
	EventCommand         = "command"
	EventBuiltin         = "builtin"
	EventBackgroundStart = "background_start"
	EventBackgroundDone  = "background_done"
	EventModeChange      = "mode_change"
)

// Entry is one logged event. Exactly one of the payload fields matching
// Event is set.
type Entry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`
	Event           string `json:"event"`

	Login      *LoginEvent      `json:"login,omitempty"`
	Command    *CommandEvent    `json:"command,omitempty"`
	Builtin    *BuiltinEvent    `json:"builtin,omitempty"`
	Background *BackgroundEvent `json:"background,omitempty"`
	Mode       *ModeEvent       `json:"mode,omitempty"`
}

// LoginEvent records who opened a remote session.
type LoginEvent struct {
	User       string `json:"user"`
	RemoteAddr string `json:"remote_addr"`
}

// CommandEvent records a dispatched external command.
type CommandEvent struct {
	Argv       []string `json:"argv"`
	InputFile  string   `json:"input_file,omitempty"`
	OutputFile string   `json:"output_file,omitempty"`
	Background bool     `json:"background,omitempty"`
	Pid        int      `json:"pid,omitempty"`
}

// BuiltinEvent records a dispatched builtin.
type BuiltinEvent struct {
	Name string   `json:"name"`
	Argv []string `json:"argv"`
}

// BackgroundEvent records a background job starting or finishing.
type BackgroundEvent struct {
	Pid    int    `json:"pid"`
	Status string `json:"status,omitempty"`
}

// ModeEvent records a foreground-only mode flip.
type ModeEvent struct {
	ForegroundOnly bool `json:"foreground_only"`
}

// LogRecorder is a callback that stores entries in an external
// datastore.
type LogRecorder func(e *Entry) error

// Logger captures shell interaction events.
type Logger struct {
	Record LogRecorder
}

// NewJSONLinesLogRecorder creates a Logger that exports entries in
// newline-delimited JSON object format. Writes are serialized: entries
// may be recorded from the signal-watching goroutines as well as the
// main loop.
func NewJSONLinesLogRecorder(w io.Writer) *Logger {
	var mu sync.Mutex
	return &Logger{
		Record: func(e *Entry) error {
			entry, err := json.Marshal(e)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewSession creates a logger with an attached random session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{logger: l, sessionID: fmt.Sprintf("%d", rand.Uint64())}
}

// SessionLogger stamps entries with a shared session ID and timestamp.
// A nil SessionLogger discards everything, so callers never need to
// check whether logging is configured.
type SessionLogger struct {
	logger    *Logger
	sessionID string
}

// SessionID returns the identifier stamped on this session's entries.
func (l *SessionLogger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Record stamps and stores the entry.
func (l *SessionLogger) Record(e *Entry) error {
	if l == nil {
		return nil
	}
	e.TimestampMicros = time.Now().UnixMicro()
	e.SessionID = l.sessionID
	return l.logger.Record(e)
}

// ReadJSONLinesLog parses a newline-delimited JSON log, invoking handler
// for every entry.
func ReadJSONLinesLog(r io.Reader, handler func(e *Entry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			return err
		}
		handler(&entry)
	}
	return nil
}
