package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
)

// Initialize writes a fresh configuration directory: the default
// config.yaml and a generated SSH host key. Existing files are kept.
func Initialize(fs afero.Fs, dir string, logger *log.Logger) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	if exists, _ := afero.Exists(fs, configPath); exists {
		logger.Printf("%s already exists, keeping it", configPath)
	} else {
		if err := afero.WriteFile(fs, configPath, defaultConfigData, 0644); err != nil {
			return err
		}
		logger.Printf("wrote %s", configPath)
	}

	keyPath := filepath.Join(dir, HostKeyName)
	if exists, _ := afero.Exists(fs, keyPath); exists {
		logger.Printf("%s already exists, keeping it", keyPath)
		return nil
	}
	keyPem, err := GenerateHostKey()
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, keyPath, keyPem, 0600); err != nil {
		return err
	}
	logger.Printf("wrote %s", keyPath)
	return nil
}

// GenerateHostKey creates an ed25519 private key, PEM-encoded in PKCS#8
// form so it can be parsed as an SSH signer.
func GenerateHostKey() ([]byte, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(private)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
