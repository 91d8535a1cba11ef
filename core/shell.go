// Package core implements the interactive shell: the prompt loop,
// builtin dispatch, child process execution, background job tracking,
// and the foreground-only mode toggle.
package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/spf13/afero"

	"smallsh.dev/smallsh/core/cmdline"
	"smallsh.dev/smallsh/core/config"
	"smallsh.dev/smallsh/core/jobs"
	"smallsh.dev/smallsh/core/logger"
	"smallsh.dev/smallsh/core/proc"
)

// Options wires a Shell to its streams and terminal. Zero values fall
// back to the calling process's stdio and a dumb terminal.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	IsTerminal func() bool
	GetWidth   func() int
	MakeRaw    func() error
	ExitRaw    func() error

	Log *logger.SessionLogger
}

func (o *Options) fillDefaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.IsTerminal == nil {
		o.IsTerminal = func() bool { return false }
	}
	if o.GetWidth == nil {
		o.GetWidth = func() int { return 80 }
	}
}

// Shell is one interactive session. It is driven from a single
// goroutine; only the mode controller is touched asynchronously.
type Shell struct {
	cfg      *config.Configuration
	Readline *readline.Instance
	mode     *ModeController
	jobs     *jobs.Table
	spawner  *proc.Spawner
	log      *logger.SessionLogger

	pid        int
	stdout     io.Writer
	stderr     io.Writer
	lastStatus proc.Status
	exiting    bool
}

// NewShell builds a session from the configuration and options. Close
// releases the line editor when the session is over.
func NewShell(configuration *config.Configuration, opts Options) (*Shell, error) {
	opts.fillDefaults()

	shell := &Shell{
		cfg:    configuration,
		log:    opts.Log,
		pid:    os.Getpid(),
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}
	shell.mode = NewModeController(opts.Stdout)
	shell.jobs = jobs.NewTable(configuration.MaxBackgroundJobs)
	shell.spawner = &proc.Spawner{
		FS:     afero.NewOsFs(),
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	}

	rlConfig := &readline.Config{
		Prompt:         configuration.Prompt,
		HistoryFile:    configuration.ResolvePath(configuration.HistoryFile),
		Stdin:          readline.NewCancelableStdin(opts.Stdin),
		Stdout:         opts.Stdout,
		Stderr:         opts.Stderr,
		FuncGetWidth:   opts.GetWidth,
		FuncIsTerminal: opts.IsTerminal,

		// In raw mode the kernel never turns Ctrl-Z into SIGTSTP, so
		// the keystroke is intercepted here and routed to the same
		// toggle as an externally delivered signal.
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == readline.CharCtrlZ {
				shell.toggleMode()
				return 0, false
			}
			return r, true
		},
	}
	if opts.MakeRaw != nil {
		rlConfig.FuncMakeRaw = opts.MakeRaw
	}
	if opts.ExitRaw != nil {
		rlConfig.FuncExitRaw = opts.ExitRaw
	}
	if err := rlConfig.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		return nil, err
	}
	shell.Readline = rl

	return shell, nil
}

// LastStatus reports how the most recent foreground command finished.
// Before any foreground command has run it is a normal exit with code
// zero.
func (s *Shell) LastStatus() proc.Status {
	return s.lastStatus
}

// ForegroundOnly reports whether background requests are currently
// downgraded.
func (s *Shell) ForegroundOnly() bool {
	return s.mode.ForegroundOnly()
}

// Run executes the read-dispatch loop until `exit` or end of input.
// Completed background jobs are reaped before every prompt. The
// returned error is nil on a normal shutdown; a non-nil error means
// process creation itself failed and the shell cannot continue.
func (s *Shell) Run() error {
	restore := s.installSignalHandlers()
	defer restore()

	s.log.Record(&logger.Entry{Event: logger.EventSessionStart})

	var fatal error
	for fatal == nil && !s.exiting {
		s.reap()

		s.Readline.SetPrompt(s.cfg.Prompt)
		line, err := s.Readline.Readline()
		switch {
		case err == io.EOF:
			s.exiting = true
		case err == readline.ErrInterrupt:
			// Swallowed: the interrupt only restarts the prompt.
		case err != nil:
			fmt.Fprintf(s.stderr, "smallsh: %v\n", err)
			s.exiting = true
		default:
			fatal = s.dispatch(line)
		}
	}

	s.jobs.KillAll()
	s.log.Record(&logger.Entry{Event: logger.EventSessionEnd})
	return fatal
}

// Close releases the line editor.
func (s *Shell) Close() error {
	return s.Readline.Close()
}

func (s *Shell) reap() {
	for _, completion := range s.jobs.ReapAll(s.stdout) {
		s.log.Record(&logger.Entry{
			Event: logger.EventBackgroundDone,
			Background: &logger.BackgroundEvent{
				Pid:    completion.Pid,
				Status: completion.Status.String(),
			},
		})
	}
}

func (s *Shell) toggleMode() {
	s.mode.Toggle()
	s.log.Record(&logger.Entry{
		Event: logger.EventModeChange,
		Mode:  &logger.ModeEvent{ForegroundOnly: s.mode.ForegroundOnly()},
	})
}

// dispatch handles one input line. The returned error is nil unless the
// shell hit a fatal process-creation failure.
func (s *Shell) dispatch(line string) error {
	if len(line) > s.cfg.MaxLineLength {
		fmt.Fprintf(s.stderr, "smallsh: input line exceeds %d bytes\n", s.cfg.MaxLineLength)
		return nil
	}
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	tokens := cmdline.Fields(line)
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) > s.cfg.MaxArgs {
		fmt.Fprintf(s.stderr, "smallsh: too many arguments (max %d)\n", s.cfg.MaxArgs)
		return nil
	}
	for i, token := range tokens {
		tokens[i] = cmdline.ExpandPID(token, s.pid)
	}

	command, err := cmdline.Parse(tokens)
	if err != nil {
		fmt.Fprintf(s.stderr, "smallsh: %v\n", err)
		return nil
	}
	if len(command.Argv) == 0 {
		fmt.Fprintln(s.stderr, "smallsh: missing command")
		return nil
	}

	if builtin, ok := AllBuiltins[command.Argv[0]]; ok {
		s.log.Record(&logger.Entry{
			Event:   logger.EventBuiltin,
			Builtin: &logger.BuiltinEvent{Name: command.Argv[0], Argv: command.Argv},
		})
		builtin.Main(s, command.Argv)
		return nil
	}

	return s.spawn(command)
}

func (s *Shell) spawn(command *cmdline.Command) error {
	background := command.Background && !s.mode.ForegroundOnly()

	if background && s.jobs.Full() {
		fmt.Fprintf(s.stderr, "smallsh: %v (capacity %d)\n", jobs.ErrTableFull, s.jobs.Cap())
		return nil
	}

	job, err := s.spawner.Start(command, background)
	if err != nil {
		if proc.IsFatal(err) {
			fmt.Fprintf(s.stderr, "smallsh: %v\n", err)
			return err
		}
		fmt.Fprintf(s.stderr, "%v\n", err)
		if !background {
			s.lastStatus = startFailureStatus(err)
		}
		return nil
	}

	s.log.Record(&logger.Entry{
		Event: logger.EventCommand,
		Command: &logger.CommandEvent{
			Argv:       command.Argv,
			InputFile:  command.InputFile,
			OutputFile: command.OutputFile,
			Background: background,
			Pid:        job.Pid(),
		},
	})

	if background {
		if err := s.jobs.Register(job); err != nil {
			// Unreachable: capacity is checked before spawning.
			fmt.Fprintf(s.stderr, "smallsh: %v\n", err)
			_ = job.Kill()
			return nil
		}
		fmt.Fprintf(s.stdout, "Background PID is %d\n", job.Pid())
		s.log.Record(&logger.Entry{
			Event:      logger.EventBackgroundStart,
			Background: &logger.BackgroundEvent{Pid: job.Pid()},
		})
		return nil
	}

	status := job.Wait()
	s.lastStatus = status
	if status.Signaled {
		fmt.Fprintf(s.stdout, "%s\n", status)
	}
	return nil
}

// startFailureStatus maps a non-fatal spawn failure onto the status a
// failed child would have reported: redirection problems and program
// resolution problems stay distinguishable.
func startFailureStatus(err error) proc.Status {
	var openErr *proc.OpenError
	if errors.As(err, &openErr) {
		return proc.Exited(proc.RedirectionFailureCode)
	}
	return proc.Exited(proc.ResolutionFailureCode)
}
