//go:build unix

package core

import (
	"os"
	"os/signal"
	"syscall"
)

// installSignalHandlers wires terminal signals for an interactive
// session and returns a function that unwires them.
//
// SIGINT is caught and discarded rather than ignored: a caught handler
// reverts to the default disposition across exec, while SIG_IGN would be
// inherited, so this keeps the shell alive and foreground children
// interruptible. Background children are insulated separately by their
// own process group.
//
// SIGTSTP toggles foreground-only mode instead of suspending the shell.
func (s *Shell) installSignalHandlers() (restore func()) {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		for range interrupts {
		}
	}()

	suspends := make(chan os.Signal, 1)
	signal.Notify(suspends, syscall.SIGTSTP)
	go func() {
		for range suspends {
			s.toggleMode()
		}
	}()

	return func() {
		signal.Stop(interrupts)
		signal.Stop(suspends)
		close(interrupts)
		close(suspends)
	}
}
