package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"smallsh.dev/smallsh/core/logger"
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"log"},
	Short:   "Explore recorded shell event logs.",
}

// catCommand prints a log in a readable single-line-per-event form.
var catCommand = &cobra.Command{
	Use:   "cat FILE",
	Short: "Print an event log in a readable form.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fd, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()

		return renderLog(cmd.OutOrStdout(), fd)
	},
}

// reportCommand summarizes a log as YAML counters.
var reportCommand = &cobra.Command{
	Use:   "report FILE",
	Short: "Show a report of events.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fd, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()

		var report logger.Report
		if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return nil
	},
}

var (
	timeColor    = color.New(color.FgHiBlack)
	sessionColor = color.New(color.FgCyan)

	eventColors = map[string]*color.Color{
		logger.EventSessionStart:    color.New(color.FgGreen),
		logger.EventSessionEnd:      color.New(color.FgGreen),
		logger.EventLogin:           color.New(color.FgHiGreen),
		logger.EventCommand:         color.New(color.FgYellow),
		logger.EventBuiltin:         color.New(color.FgHiYellow),
		logger.EventBackgroundStart: color.New(color.FgMagenta),
		logger.EventBackgroundDone:  color.New(color.FgMagenta),
		logger.EventModeChange:      color.New(color.FgBlue),
	}
	unknownEventColor = color.New(color.FgRed)
)

func eventColor(event string) *color.Color {
	if c, ok := eventColors[event]; ok {
		return c
	}
	return unknownEventColor
}

func renderLog(w io.Writer, r io.Reader) error {
	return logger.ReadJSONLinesLog(r, func(e *logger.Entry) {
		stamp := time.UnixMicro(e.TimestampMicros).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, "%s %s %s%s\n",
			timeColor.Sprint(stamp),
			sessionColor.Sprintf("[%s]", e.SessionID),
			eventColor(e.Event).Sprint(e.Event),
			entryDetails(e))
	})
}

// entryDetails reconstructs a human-readable suffix from whichever
// payload the entry carries.
func entryDetails(e *logger.Entry) string {
	switch {
	case e.Login != nil:
		return fmt.Sprintf(" %s@%s", e.Login.User, e.Login.RemoteAddr)
	case e.Command != nil:
		var b strings.Builder
		fmt.Fprintf(&b, " %s", strings.Join(e.Command.Argv, " "))
		if e.Command.InputFile != "" {
			fmt.Fprintf(&b, " < %s", e.Command.InputFile)
		}
		if e.Command.OutputFile != "" {
			fmt.Fprintf(&b, " > %s", e.Command.OutputFile)
		}
		if e.Command.Background {
			b.WriteString(" &")
		}
		fmt.Fprintf(&b, " (pid %d)", e.Command.Pid)
		return b.String()
	case e.Builtin != nil:
		return " " + strings.Join(e.Builtin.Argv, " ")
	case e.Background != nil:
		if e.Background.Status != "" {
			return fmt.Sprintf(" pid %d: %s", e.Background.Pid, e.Background.Status)
		}
		return fmt.Sprintf(" pid %d", e.Background.Pid)
	case e.Mode != nil:
		return fmt.Sprintf(" foreground_only=%t", e.Mode.ForegroundOnly)
	default:
		return ""
	}
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(catCommand)
	logsCmd.AddCommand(reportCommand)
}
