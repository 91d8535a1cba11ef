// Package proc spawns child processes for parsed commands: it applies
// input/output redirection, detaches background children into their own
// process group, and decodes wait statuses.
package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/afero"

	"smallsh.dev/smallsh/core/cmdline"
)

// OpenError reports a redirection target that could not be opened. The
// command is never started when one occurs.
type OpenError struct {
	Path string
	Mode string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open %s for %s", e.Path, e.Mode)
}

func (e *OpenError) Unwrap() error { return e.Err }

// StartError reports a program that could not be run: not found, not
// executable, or otherwise failing before the program image started.
type StartError struct {
	Name string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// fatalError marks process-creation failures the shell cannot recover
// from, such as hitting the process or descriptor limits.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return fmt.Sprintf("cannot create process: %v", e.err)
}

func (e *fatalError) Unwrap() error { return e.err }

// IsFatal reports whether err is a process-creation failure that should
// end the shell rather than the single command.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// Spawner starts child processes. The zero value is not usable: FS and
// the stdio writers must be set.
type Spawner struct {
	FS     afero.Fs
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// DevNull overrides the null device path, mainly for tests.
	DevNull string
}

func (s *Spawner) devNull() string {
	if s.DevNull != "" {
		return s.DevNull
	}
	return os.DevNull
}

// Job is a started child process. Exactly one of Wait or Poll should be
// used to consume its completion; both are single-caller.
type Job struct {
	pid    int
	done   chan Status
	status Status
	ended  bool
}

// Pid returns the child's process ID.
func (j *Job) Pid() int { return j.pid }

// Wait blocks until the child terminates and returns its status.
func (j *Job) Wait() Status {
	if !j.ended {
		j.status = <-j.done
		j.ended = true
	}
	return j.status
}

// Poll reports the child's status if it has terminated. It never blocks.
func (j *Job) Poll() (Status, bool) {
	if j.ended {
		return j.status, true
	}
	select {
	case status := <-j.done:
		j.status = status
		j.ended = true
		return status, true
	default:
		return Status{}, false
	}
}

// Kill sends SIGKILL to the child's process group and then to the child
// itself. Already-dead processes are not an error.
func (j *Job) Kill() error {
	return killGroup(j.pid)
}

// Start launches one child for the command. A background child gets its
// own process group and null-device stdio for any stream without an
// explicit redirection; a foreground child shares the spawner's stdio
// and process group so the terminal's interrupt reaches it.
//
// Redirection failures return *OpenError before anything is spawned.
// Failures to run the program return *StartError, except for
// process-creation failures, which are fatal (see IsFatal).
func (s *Spawner) Start(command *cmdline.Command, background bool) (*Job, error) {
	cmd := exec.Command(command.Argv[0], command.Argv[1:]...)
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	cmd.SysProcAttr = sysProcAttr(background)

	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	inputPath := command.InputFile
	if inputPath == "" && background {
		inputPath = s.devNull()
	}
	if inputPath != "" {
		file, err := s.FS.Open(inputPath)
		if err != nil {
			closeAll()
			return nil, &OpenError{Path: inputPath, Mode: "input", Err: err}
		}
		closers = append(closers, file)
		cmd.Stdin = file
	}

	outputPath := command.OutputFile
	if outputPath == "" && background {
		outputPath = s.devNull()
	}
	if outputPath != "" {
		file, err := s.FS.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			closeAll()
			return nil, &OpenError{Path: outputPath, Mode: "output", Err: err}
		}
		closers = append(closers, file)
		cmd.Stdout = file
	}

	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, classifyStartError(command.Argv[0], err)
	}

	job := &Job{pid: cmd.Process.Pid, done: make(chan Status, 1)}
	go func() {
		err := cmd.Wait()
		closeAll()
		job.done <- waitResult(cmd.ProcessState, err)
	}()
	return job, nil
}

func waitResult(state *os.ProcessState, err error) Status {
	if state != nil {
		return decodeWaitStatus(state)
	}
	if err != nil {
		return Exited(1)
	}
	return Exited(0)
}
