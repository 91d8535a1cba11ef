package core

import (
	"io"
	"sync/atomic"
)

// Notices announced when the mode flips. They carry their own leading
// newline because a toggle can land mid-line.
const (
	enterForegroundOnlyNotice = "\nEntering foreground-only mode (& is now ignored)\n"
	exitForegroundOnlyNotice  = "\nExiting foreground-only mode\n"
)

// ModeController owns the shell-wide foreground-only flag. Toggle runs
// from asynchronous contexts, so it is restricted to the atomic flip and
// one direct write of a precomputed notice; everything else reads the
// flag through ForegroundOnly.
type ModeController struct {
	foregroundOnly atomic.Bool
	out            io.Writer
	enter          []byte
	exit           []byte
}

// NewModeController creates a controller that announces mode changes on
// out. The initial mode allows background execution.
func NewModeController(out io.Writer) *ModeController {
	return &ModeController{
		out:   out,
		enter: []byte(enterForegroundOnlyNotice),
		exit:  []byte(exitForegroundOnlyNotice),
	}
}

// ForegroundOnly reports whether background requests are currently
// downgraded to foreground execution.
func (m *ModeController) ForegroundOnly() bool {
	return m.foregroundOnly.Load()
}

// Toggle flips the mode and announces the new state.
func (m *ModeController) Toggle() {
	for {
		old := m.foregroundOnly.Load()
		if !m.foregroundOnly.CompareAndSwap(old, !old) {
			continue
		}
		if old {
			m.out.Write(m.exit)
		} else {
			m.out.Write(m.enter)
		}
		return
	}
}
