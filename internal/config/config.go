// internal/config/config.go
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the per-user configuration file looked up in the home
// directory.
const FileName = ".kaleido.yaml"

// Config holds the interactive-session settings. Every field has a working
// default; a missing config file is not an error.
type Config struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"`
	Optimize    bool   `yaml:"optimize"`
	EmitIR      bool   `yaml:"emit_ir"`
}

func Default() Config {
	return Config{
		Prompt:      "ready> ",
		HistoryFile: ".kaleido_history",
		Optimize:    true,
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// LoadDefault reads the per-user config from the home directory.
func LoadDefault() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		return Default()
	}
	cfg, err := Load(filepath.Join(home, FileName))
	if err != nil {
		return Default()
	}
	return cfg
}

// HistoryPath resolves the history file relative to the home directory
// unless it is already absolute.
func (c Config) HistoryPath() string {
	if filepath.IsAbs(c.HistoryFile) {
		return c.HistoryFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return c.HistoryFile
	}
	return filepath.Join(home, c.HistoryFile)
}
