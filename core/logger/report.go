package logger

import "encoding/json"

// Report holds statistics about the logged events. Feed it entries with
// Update, then marshal it for display.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Login      LoginReport      `json:"login_report"`
	Command    CommandReport    `json:"command_report"`
	Builtin    BuiltinReport    `json:"builtin_report"`
	Background BackgroundReport `json:"background_report"`
	Session    SessionReport    `json:"session_report"`
}

func (r *Report) Update(e *Entry) {
	r.LogEntries++

	switch e.Event {
	case EventLogin:
		r.Login.update(e.Login)
	case EventCommand:
		r.Command.update(e.Command)
	case EventBuiltin:
		r.Builtin.update(e.Builtin)
	case EventBackgroundStart, EventBackgroundDone:
		r.Background.update(e.Event, e.Background)
	case EventSessionStart, EventSessionEnd, EventModeChange:
		r.Session.update(e.Event)
	default:
		r.InvalidEntries.Increment(e.Event)
	}
}

type LoginReport struct {
	// List of usernames and their counts.
	Usernames StrCounter `json:"usernames"`
	// List of client addresses and their counts.
	RemoteAddrs StrCounter `json:"remote_addrs"`
}

func (r *LoginReport) update(l *LoginEvent) {
	if l == nil {
		return
	}
	r.Usernames.Increment(l.User)
	r.RemoteAddrs.Increment(l.RemoteAddr)
}

type CommandReport struct {
	// Name of the spawned command
	CommandNames StrCounter `json:"command_names"`
	// Commands that ran detached.
	BackgroundCount int `json:"background_count"`
	// Commands with at least one redirection.
	RedirectionCount int `json:"redirection_count"`
}

func (r *CommandReport) update(c *CommandEvent) {
	if c == nil {
		return
	}
	if len(c.Argv) > 0 {
		r.CommandNames.Increment(c.Argv[0])
	}
	if c.Background {
		r.BackgroundCount++
	}
	if c.InputFile != "" || c.OutputFile != "" {
		r.RedirectionCount++
	}
}

type BuiltinReport struct {
	BuiltinNames StrCounter `json:"builtin_names"`
}

func (r *BuiltinReport) update(b *BuiltinEvent) {
	if b == nil {
		return
	}
	r.BuiltinNames.Increment(b.Name)
}

type BackgroundReport struct {
	Started  int `json:"started"`
	Finished int `json:"finished"`
	// How finished jobs ended, keyed by the reported status line.
	Statuses StrCounter `json:"statuses"`
}

func (r *BackgroundReport) update(event string, b *BackgroundEvent) {
	switch event {
	case EventBackgroundStart:
		r.Started++
	case EventBackgroundDone:
		r.Finished++
		if b != nil {
			r.Statuses.Increment(b.Status)
		}
	}
}

type SessionReport struct {
	Started     int `json:"started"`
	Ended       int `json:"ended"`
	ModeChanges int `json:"mode_changes"`
}

func (r *SessionReport) update(event string) {
	switch event {
	case EventSessionStart:
		r.Started++
	case EventSessionEnd:
		r.Ended++
	case EventModeChange:
		r.ModeChanges++
	}
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count reports how often the key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements a custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}
