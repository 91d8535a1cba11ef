package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"smallsh.dev/smallsh/core"
)

// builtinsCmd lists the commands the shell runs without spawning a child.
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the shell's builtin commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var builtins []string

		for name := range core.AllBuiltins {
			builtins = append(builtins, name)
		}

		sort.Strings(builtins)

		for _, v := range builtins {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
