package cmd

import (
	"log"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"smallsh.dev/smallsh/core/config"
)

// initCmd writes a fresh configuration directory.
var initCmd = &cobra.Command{
	Use:   "init [DIR]",
	Short: "Initialize a configuration directory.",
	Long: `Write the default config.yaml and a generated SSH host key into DIR,
or the current directory. Files that already exist are kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		logger := log.New(cmd.ErrOrStderr(), "", 0)
		return config.Initialize(afero.NewOsFs(), dir, logger)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
