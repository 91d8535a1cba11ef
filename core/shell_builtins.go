package core

import (
	"fmt"
	"os"
)

// EnvHome names the environment variable a bare `cd` falls back to.
const EnvHome = "HOME"

// AllBuiltins holds a list of all registered shell builtins. Builtins
// run inside the shell process; nothing is spawned for them.
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// Cd is the cd shell builtin. It changes the shell's own working
// directory to the first argument, or to $HOME when none is given.
// Extra arguments are ignored.
func Cd(s *Shell, args []string) int {
	dir := os.Getenv(EnvHome)
	if len(args) > 1 {
		dir = args[1]
	}
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(s.stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// Status reports how the most recent foreground command finished.
// Before any foreground command has run it reports a normal exit with
// code zero. Builtins themselves never change the reported status.
func Status(s *Shell, args []string) int {
	fmt.Fprintf(s.stdout, "%s\n", s.lastStatus)
	return 0
}

// Exit quits the shell. The main loop kills every tracked background
// job on the way out.
func Exit(s *Shell, args []string) int {
	s.exiting = true
	return 0
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["status"] = ShellBuiltinFunc(Status)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
