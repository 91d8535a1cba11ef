package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"smallsh.dev/smallsh/core"
	"smallsh.dev/smallsh/core/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shell to authorized SSH clients.",
	Long: `Listen for SSH connections and run an interactive shell for each
client whose key is in the configured authorized_keys file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Stdin.Close()
		cmd.SilenceUsage = true

		if cfgPath == "" {
			return errors.New("serve requires a configuration directory, run `smallsh init` to create one")
		}

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		var logDest = cmd.ErrOrStderr()
		if logPath := configuration.ResolvePath(configuration.LogPath); logPath != "" {
			fd, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
			if err != nil {
				return err
			}
			defer fd.Close()
			logDest = fd
		}
		eventLog := logger.NewJSONLinesLogRecorder(logDest)

		server, err := core.NewServer(configuration, afero.NewOsFs(), eventLog)
		if err != nil {
			return err
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				log.Fatal(err)
			}
		}()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		sig := <-sigs
		log.Printf("Got signal %q, terminating...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server shutdown failed: %s", err)
		}
		log.Print("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
