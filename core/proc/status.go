package proc

import "fmt"

// Exit codes recorded for a command that fails before it runs.
const (
	RedirectionFailureCode = 1
	ResolutionFailureCode  = 127
)

// Status describes how a child process finished: a normal exit with a
// code, or termination by a signal.
type Status struct {
	Code     int
	Signal   int
	Signaled bool
}

// Exited returns a Status for a normal exit with the given code.
func Exited(code int) Status {
	return Status{Code: code}
}

func (s Status) String() string {
	if s.Signaled {
		return fmt.Sprintf("terminated by signal %d", s.Signal)
	}
	return fmt.Sprintf("exit value %d", s.Code)
}
