package core

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"smallsh.dev/smallsh/core/config"
	"smallsh.dev/smallsh/core/logger"
)

// newClientKey generates a fresh keypair and returns its signer plus
// the authorized_keys line for its public half.
func newClientKey(t *testing.T) (gossh.Signer, []byte) {
	t.Helper()
	keyPem, err := config.GenerateHostKey()
	require.NoError(t, err)
	signer, err := gossh.ParsePrivateKey(keyPem)
	require.NoError(t, err)
	return signer, gossh.MarshalAuthorizedKey(signer.PublicKey())
}

// serverFixture initializes a config directory with one authorized
// client key and returns the loaded configuration plus that key.
func serverFixture(t *testing.T) (afero.Fs, *config.Configuration, gossh.Signer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	quiet := log.New(io.Discard, "", 0)
	require.NoError(t, config.Initialize(fs, "/cfg", quiet))

	signer, authLine := newClientKey(t)
	require.NoError(t, afero.WriteFile(fs, filepath.Join("/cfg", config.AuthorizedKeysName), authLine, 0600))

	cfg, err := config.Load(fs, "/cfg")
	require.NoError(t, err)
	return fs, cfg, signer
}

func discardLog() *logger.Logger {
	return logger.NewJSONLinesLogRecorder(io.Discard)
}

func TestNewServer(t *testing.T) {
	fs, cfg, signer := serverFixture(t)

	server, err := NewServer(cfg, fs, discardLog())
	require.NoError(t, err)

	assert.True(t, server.keyAuthorized(signer.PublicKey()))

	stranger, _ := newClientKey(t)
	assert.False(t, server.keyAuthorized(stranger.PublicKey()))
}

func TestNewServerSessionLimit(t *testing.T) {
	fs, cfg, _ := serverFixture(t)

	cfg.Serve.MaxSessionsPerMinute = 2
	server, err := NewServer(cfg, fs, discardLog())
	require.NoError(t, err)
	require.NotNil(t, server.sessions)

	assert.EqualValues(t, 1, server.sessions.TakeAvailable(1))
	assert.EqualValues(t, 1, server.sessions.TakeAvailable(1))
	assert.EqualValues(t, 0, server.sessions.TakeAvailable(1), "bucket should be empty after two sessions")

	cfg.Serve.MaxSessionsPerMinute = 0
	unlimited, err := NewServer(cfg, fs, discardLog())
	require.NoError(t, err)
	assert.Nil(t, unlimited.sessions)
}

func TestNewServerMissingHostKey(t *testing.T) {
	fs, cfg, _ := serverFixture(t)
	require.NoError(t, fs.Remove(filepath.Join("/cfg", config.HostKeyName)))

	_, err := NewServer(cfg, fs, discardLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host key")
}

func TestNewServerCorruptHostKey(t *testing.T) {
	fs, cfg, _ := serverFixture(t)
	require.NoError(t, afero.WriteFile(fs, filepath.Join("/cfg", config.HostKeyName), []byte("not a key"), 0600))

	_, err := NewServer(cfg, fs, discardLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing host key")
}

func TestNewServerMissingAuthorizedKeys(t *testing.T) {
	fs, cfg, _ := serverFixture(t)
	require.NoError(t, fs.Remove(filepath.Join("/cfg", config.AuthorizedKeysName)))

	_, err := NewServer(cfg, fs, discardLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorized keys")
}

func TestLoadAuthorizedKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, first := newClientKey(t)
	_, second := newClientKey(t)

	contents := append([]byte("# people allowed in\n\n"), first...)
	contents = append(contents, '\n')
	contents = append(contents, second...)
	require.NoError(t, afero.WriteFile(fs, "/authorized_keys", contents, 0600))

	keys, err := loadAuthorizedKeys(fs, "/authorized_keys")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestLoadAuthorizedKeysRejectsGarbage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/authorized_keys", []byte("ssh-ed25519 not-base64 junk\n"), 0600))

	_, err := loadAuthorizedKeys(fs, "/authorized_keys")
	assert.Error(t, err)
}

func TestLoadAuthorizedKeysRejectsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/authorized_keys", []byte("\n\n"), 0600))

	_, err := loadAuthorizedKeys(fs, "/authorized_keys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable keys")
}
