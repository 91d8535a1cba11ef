package config

import (
	_ "embed"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	// ConfigurationName is the file Load expects inside a config directory.
	ConfigurationName = "config.yaml"
	// HostKeyName is the SSH host key file written by Initialize.
	HostKeyName = "host_key"
	// AuthorizedKeysName is the access list consulted by the SSH front end.
	AuthorizedKeysName = "authorized_keys"
)

// Configuration holds the tunable behavior of the shell and its SSH
// front end. Paths are resolved relative to the directory the
// configuration was loaded from.
type Configuration struct {
	baseDir string

	Prompt            string `json:"prompt" validate:"required"`
	MaxLineLength     int    `json:"max_line_length" validate:"gt=0"`
	MaxArgs           int    `json:"max_args" validate:"gt=0"`
	MaxBackgroundJobs int    `json:"max_background_jobs" validate:"gt=0"`
	HistoryFile       string `json:"history_file"`
	LogPath           string `json:"log_path"`

	Serve Serve `json:"serve"`
}

// Serve configures the SSH front end.
type Serve struct {
	Addr                 string `json:"addr" validate:"required"`
	HostKeyPath          string `json:"host_key_path" validate:"required"`
	AuthorizedKeysPath   string `json:"authorized_keys_path" validate:"required"`
	MaxSessionsPerMinute int    `json:"max_sessions_per_minute" validate:"gte=0"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// Dir returns the directory the configuration was loaded from, or ""
// for the built-in default.
func (c *Configuration) Dir() string {
	return c.baseDir
}

// ResolvePath resolves path against the configuration's directory.
// Absolute paths and the built-in default pass through unchanged.
func (c *Configuration) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

// Default returns the built-in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
