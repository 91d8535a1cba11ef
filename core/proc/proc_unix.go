//go:build unix

package proc

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
)

// sysProcAttr builds the attributes for a spawned child. Background
// children get their own process group so a terminal-delivered SIGINT
// never reaches them; foreground children stay in the shell's group.
func sysProcAttr(background bool) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: background}
}

func decodeWaitStatus(state *os.ProcessState) Status {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return Status{Signal: int(ws.Signal()), Signaled: true}
		}
		return Status{Code: ws.ExitStatus()}
	}
	return Status{Code: state.ExitCode()}
}

// killGroup forcibly terminates pid's process group, then pid itself.
// ESRCH is tolerated: the target may already be gone, and foreground
// children never lead a group of their own.
func killGroup(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		err = nil
	}
	if kerr := syscall.Kill(pid, syscall.SIGKILL); kerr != nil && !errors.Is(kerr, syscall.ESRCH) {
		if err == nil {
			err = kerr
		}
	}
	return err
}

func classifyStartError(name string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.ENOMEM, syscall.EMFILE, syscall.ENFILE:
			return &fatalError{err}
		}
	}

	cause := err
	var execErr *exec.Error
	var pathErr *fs.PathError
	switch {
	case errors.As(err, &execErr):
		cause = execErr.Err
		if errors.Is(cause, exec.ErrNotFound) {
			cause = syscall.ENOENT
		}
	case errors.As(err, &pathErr):
		cause = pathErr.Err
	}
	return &StartError{Name: name, Err: cause}
}
