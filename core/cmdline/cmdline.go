// Package cmdline turns raw input lines into executable command
// descriptions: whitespace tokenizing, PID expansion, and extraction of
// the redirection and background markers.
package cmdline

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator tokens recognized by Parse. They are only special as
// standalone tokens, never inside a word.
const (
	RedirectInput  = "<"
	RedirectOutput = ">"
	BackgroundMark = "&"
)

// Command describes one parsed input line. Argv never contains the
// operator tokens; those are extracted by Parse.
type Command struct {
	Argv       []string
	InputFile  string
	OutputFile string
	Background bool
}

// Fields splits a line into whitespace-delimited tokens. The grammar has
// no quoting or escaping.
func Fields(line string) []string {
	return strings.Fields(line)
}

// ExpandPID replaces every "$$" in the token with the decimal pid.
// Expansion never crosses token boundaries and a lone trailing "$" is
// left untouched.
func ExpandPID(token string, pid int) string {
	return strings.ReplaceAll(token, "$$", strconv.Itoa(pid))
}

// Parse classifies tokens into a Command. A "<" or ">" consumes the
// following token as its file path; a "&" in final position requests
// background execution, anywhere else it is an ordinary argument.
//
// The exec vector is everything before the first operator token. Later
// positional arguments that follow an operator are dropped, matching the
// historical behavior of this grammar.
func Parse(tokens []string) (*Command, error) {
	command := &Command{}

	argvEnd := len(tokens)
	markOperator := func(i int) {
		if i < argvEnd {
			argvEnd = i
		}
	}

	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case RedirectInput:
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("syntax error: %q requires a path", RedirectInput)
			}
			command.InputFile = tokens[i+1]
			markOperator(i)
			i++
		case RedirectOutput:
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("syntax error: %q requires a path", RedirectOutput)
			}
			command.OutputFile = tokens[i+1]
			markOperator(i)
			i++
		case BackgroundMark:
			if i == len(tokens)-1 {
				command.Background = true
				markOperator(i)
			}
		}
	}

	command.Argv = append([]string(nil), tokens[:argvEnd]...)
	return command, nil
}
