package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"smallsh.dev/smallsh/core"
	"smallsh.dev/smallsh/core/config"
	"smallsh.dev/smallsh/core/logger"
)

var cfgPath string

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(afero.NewOsFs(), cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands:
// it runs the interactive shell on the calling terminal.
var rootCmd = &cobra.Command{
	Use:   "smallsh",
	Short: "A small job-control shell",
	Long: `An interactive shell with input/output redirection, background
execution with a fixed-size job table, and a foreground-only mode
toggled by Ctrl-Z.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		opts := terminalOptions()
		if logPath := configuration.ResolvePath(configuration.LogPath); logPath != "" {
			fd, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
			if err != nil {
				return err
			}
			defer fd.Close()
			opts.Log = logger.NewJSONLinesLogRecorder(fd).NewSession()
		}

		shell, err := core.NewShell(configuration, opts)
		if err != nil {
			return err
		}
		defer shell.Close()

		return shell.Run()
	},
}

// terminalOptions wires the shell to the process's controlling terminal.
// Raw mode is skipped when stdin isn't one, so piped input still works.
func terminalOptions() core.Options {
	stdinFd := int(os.Stdin.Fd())

	var savedState *term.State
	return core.Options{
		IsTerminal: func() bool { return term.IsTerminal(stdinFd) },
		GetWidth: func() int {
			if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				return width
			}
			return 80
		},
		MakeRaw: func() error {
			if !term.IsTerminal(stdinFd) {
				return nil
			}
			state, err := term.MakeRaw(stdinFd)
			if err != nil {
				return err
			}
			savedState = state
			return nil
		},
		ExitRaw: func() error {
			if savedState == nil {
				return nil
			}
			err := term.Restore(stdinFd, savedState)
			savedState = nil
			return err
		},
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config path (empty uses built-in defaults)")
}
