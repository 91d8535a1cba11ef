package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"github.com/gliderlabs/ssh"
	"github.com/juju/ratelimit"
	"github.com/spf13/afero"
	gossh "golang.org/x/crypto/ssh"

	"smallsh.dev/smallsh/core/config"
	"smallsh.dev/smallsh/core/logger"
)

// Server exposes the interactive shell to authorized users over SSH.
// Each session re-executes the shell binary under a fresh pseudo
// terminal, so remote commands get the same terminal semantics as
// local ones: line editing, interrupt delivery, and the mode toggle.
type Server struct {
	configuration *config.Configuration
	logger        *logger.Logger
	authorized    []ssh.PublicKey
	sessions      *ratelimit.Bucket
	sshServer     *ssh.Server
}

// NewServer builds a Server from an initialized configuration
// directory. The host key and authorized_keys file are read through fs.
// eventLog must not be nil; every accepted login is recorded to it.
func NewServer(configuration *config.Configuration, fs afero.Fs, eventLog *logger.Logger) (*Server, error) {
	keyPem, err := afero.ReadFile(fs, configuration.ResolvePath(configuration.Serve.HostKeyPath))
	if err != nil {
		return nil, fmt.Errorf("reading host key: %w", err)
	}
	signer, err := gossh.ParsePrivateKey(keyPem)
	if err != nil {
		return nil, fmt.Errorf("parsing host key: %w", err)
	}

	authorized, err := loadAuthorizedKeys(fs, configuration.ResolvePath(configuration.Serve.AuthorizedKeysPath))
	if err != nil {
		return nil, err
	}

	server := &Server{
		configuration: configuration,
		logger:        eventLog,
		authorized:    authorized,
	}
	if n := configuration.Serve.MaxSessionsPerMinute; n > 0 {
		server.sessions = ratelimit.NewBucket(time.Minute/time.Duration(n), int64(n))
	}

	server.sshServer = &ssh.Server{
		Addr:    configuration.Serve.Addr,
		Handler: server.handleSession,
		PublicKeyHandler: func(ctx ssh.Context, key ssh.PublicKey) bool {
			return server.keyAuthorized(key)
		},
	}
	server.sshServer.AddHostKey(signer)

	return server, nil
}

// loadAuthorizedKeys parses an OpenSSH authorized_keys file. Comment
// and blank lines are skipped; a file without any usable key is an
// error so a misconfigured server fails at startup instead of quietly
// rejecting everyone.
func loadAuthorizedKeys(fs afero.Fs, path string) ([]ssh.PublicKey, error) {
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading authorized keys: %w", err)
	}

	var keys []ssh.PublicKey
	rest := bytes.TrimSpace(contents)
	for len(rest) > 0 {
		key, _, _, next, err := gossh.ParseAuthorizedKey(rest)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		keys = append(keys, key)
		rest = bytes.TrimSpace(next)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no usable keys in %s", path)
	}
	return keys, nil
}

func (s *Server) keyAuthorized(key ssh.PublicKey) bool {
	for _, candidate := range s.authorized {
		if ssh.KeysEqual(key, candidate) {
			return true
		}
	}
	return false
}

func (s *Server) handleSession(sess ssh.Session) {
	if s.sessions != nil && s.sessions.TakeAvailable(1) == 0 {
		io.WriteString(sess.Stderr(), "smallsh: too many sessions, try again later\n")
		sess.Exit(1)
		return
	}

	sessionLog := s.logger.NewSession()
	sessionLog.Record(&logger.Entry{
		Event: logger.EventLogin,
		Login: &logger.LoginEvent{User: sess.User(), RemoteAddr: sess.RemoteAddr().String()},
	})

	ptyInfo, winch, isPty := sess.Pty()
	if !isPty {
		io.WriteString(sess.Stderr(), "smallsh: a PTY is required (try ssh -t)\n")
		sess.Exit(1)
		return
	}

	self, err := os.Executable()
	if err != nil {
		io.WriteString(sess.Stderr(), "smallsh: cannot locate the shell binary\n")
		sess.Exit(1)
		return
	}

	var args []string
	if dir := s.configuration.Dir(); dir != "" {
		args = append(args, "--config", dir)
	}
	cmd := exec.Command(self, args...)
	cmd.Env = append(os.Environ(), "TERM="+ptyInfo.Term)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(ptyInfo.Window.Height),
		Cols: uint16(ptyInfo.Window.Width),
	})
	if err != nil {
		fmt.Fprintf(sess.Stderr(), "smallsh: starting shell: %v\n", err)
		sess.Exit(1)
		return
	}

	// Forward window changes; the channel is closed when the session
	// ends.
	go func() {
		for window := range winch {
			pty.Setsize(ptmx, &pty.Winsize{
				Rows: uint16(window.Height),
				Cols: uint16(window.Width),
			})
		}
	}()

	go func() {
		io.Copy(ptmx, sess)
	}()
	io.Copy(sess, ptmx)

	// Closing the master hangs up the shell's terminal if the client
	// disconnected while it was still running.
	ptmx.Close()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		exitCode = 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if code := exitErr.ExitCode(); code >= 0 {
				exitCode = code
			}
		}
	}
	sess.Exit(exitCode)
}

// ListenAndServe accepts SSH sessions until Shutdown is called.
func (s *Server) ListenAndServe() error {
	log.Printf("Starting SSH server on %s", s.sshServer.Addr)
	return s.sshServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.sshServer.Shutdown(ctx)
}
