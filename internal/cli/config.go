package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = ".ducktest.yaml"

// Config holds defaults read from a config file. Command-line flags win.
type Config struct {
	Format string `yaml:"format,omitempty"`
	Color  string `yaml:"color,omitempty"`
	DB     string `yaml:"db,omitempty"`
	Filter string `yaml:"filter,omitempty"`
}

// LoadConfig reads a config file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config data.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// loadConfig resolves the config for opts. An explicit path must exist;
// the default file is optional.
func (opts *RootOptions) loadConfig() error {
	path := opts.ConfigPath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	opts.Config = cfg
	return nil
}

// applyConfig copies config values into opts for flags the user did not set.
func (opts *RootOptions) applyConfig(cmd *cobra.Command) {
	if opts.Config.Format != "" && !cmd.Flags().Changed("format") {
		opts.Format = opts.Config.Format
	}
	if opts.Config.Color != "" && !cmd.Flags().Changed("color") {
		opts.Color = opts.Config.Color
	}
}

// configured returns value unless the flag was left unset and the config
// provides a fallback.
func configured(cmd *cobra.Command, flag, value, fallback string) string {
	if fallback != "" && !cmd.Flags().Changed(flag) {
		return fallback
	}
	return value
}
