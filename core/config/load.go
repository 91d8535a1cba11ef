package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load reads the configuration at path, which may name either a
// config.yaml file or the directory holding one. An empty path yields
// the built-in default. Fields missing from the file keep their default
// values; unknown fields are an error.
func Load(fs afero.Fs, path string) (*Configuration, error) {
	out := Default()
	if path == "" {
		return out, nil
	}

	if isDir, err := afero.IsDir(fs, path); err == nil && isDir {
		path = filepath.Join(path, ConfigurationName)
	}

	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(contents, out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	out.baseDir = filepath.Dir(path)

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return out, nil
}
