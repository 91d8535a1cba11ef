// Package jobs tracks outstanding background children in a
// fixed-capacity table and reports their completion.
package jobs

import (
	"errors"
	"fmt"
	"io"

	"smallsh.dev/smallsh/core/proc"
)

// ErrTableFull is returned by Register when every slot is occupied.
var ErrTableFull = errors.New("background job table is full")

// Process is the view of a spawned child the table needs. *proc.Job
// implements it.
type Process interface {
	Pid() int
	Poll() (proc.Status, bool)
	Kill() error
}

// Table is a fixed-capacity registry of live background processes. Each
// occupied slot holds exactly one unreaped child; slots are reclaimed
// only when ReapAll observes termination. The table is not safe for
// concurrent use: only the shell's main loop touches it.
type Table struct {
	slots []Process
	count int
}

// NewTable creates a table with the given number of slots.
func NewTable(capacity int) *Table {
	return &Table{slots: make([]Process, capacity)}
}

// Register inserts the process into the first free slot.
func (t *Table) Register(p Process) error {
	for i, slot := range t.slots {
		if slot == nil {
			t.slots[i] = p
			t.count++
			return nil
		}
	}
	return ErrTableFull
}

// Count returns the number of occupied slots.
func (t *Table) Count() int { return t.count }

// Cap returns the table capacity.
func (t *Table) Cap() int { return len(t.slots) }

// Full reports whether Register would fail.
func (t *Table) Full() bool { return t.count == len(t.slots) }

// Completion describes one reaped background process.
type Completion struct {
	Pid    int
	Status proc.Status
}

// ReapAll checks every tracked process without blocking, reports the
// ones that terminated to w, and frees their slots. The reaped entries
// are returned for callers that record them elsewhere.
func (t *Table) ReapAll(w io.Writer) []Completion {
	var completions []Completion
	for i, p := range t.slots {
		if p == nil {
			continue
		}
		status, done := p.Poll()
		if !done {
			continue
		}
		if status.Signaled {
			fmt.Fprintf(w, "Background pid %d is done: Terminated by signal %d\n", p.Pid(), status.Signal)
		} else {
			fmt.Fprintf(w, "Background pid %d is done: Exit value %d\n", p.Pid(), status.Code)
		}
		completions = append(completions, Completion{Pid: p.Pid(), Status: status})
		t.slots[i] = nil
		t.count--
	}
	return completions
}

// KillAll signals every tracked process to terminate. It does not wait
// for confirmation and does not free slots; it is only used while the
// shell is shutting down.
func (t *Table) KillAll() {
	for _, p := range t.slots {
		if p != nil {
			_ = p.Kill()
		}
	}
}
