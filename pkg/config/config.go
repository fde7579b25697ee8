// Package config loads stackcc.toml, the per-project settings shared by the
// stackcc commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name FindConfigFile looks for.
const FileName = "stackcc.toml"

// Config is the decoded stackcc.toml.
type Config struct {
	Compiler CompilerConfig `toml:"compiler"`
	Output   OutputConfig   `toml:"output"`
	VM       VMConfig       `toml:"vm"`
}

// CompilerConfig controls code generation.
type CompilerConfig struct {
	Entry string `toml:"entry"` // entry-point function name
	Prune bool   `toml:"prune"` // drop functions unreachable from the entry point
}

// OutputConfig controls where build products go.
type OutputConfig struct {
	Dir     string `toml:"dir"`
	Listing bool   `toml:"listing"` // also write the .sasm listing
}

// VMConfig bounds program execution.
type VMConfig struct {
	MaxSteps   int `toml:"max_steps"` // 0 for no limit
	StackLimit int `toml:"stack_limit"`
}

// DefaultConfig returns the settings used when no stackcc.toml exists.
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{Entry: "main", Prune: true},
		Output:   OutputConfig{Dir: "build"},
		VM:       VMConfig{StackLimit: 4096},
	}
}

// FindAndLoad looks for stackcc.toml in startDir and its parents and loads
// the first one found. It returns the defaults and an empty path when there
// is none.
func FindAndLoad(startDir string) (*Config, string, error) {
	path := FindConfigFile(startDir)
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// FindConfigFile walks up from startDir and returns the path of the first
// stackcc.toml, or "".
func FindConfigFile(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		dir = startDir
	}
	for {
		path := filepath.Join(dir, FileName)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load decodes the file at path over the defaults, so keys it leaves out
// keep their default values. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no command can honour.
func (c *Config) Validate() error {
	if c.Compiler.Entry == "" {
		return fmt.Errorf("compiler.entry must not be empty")
	}
	if c.VM.MaxSteps < 0 {
		return fmt.Errorf("vm.max_steps must not be negative")
	}
	if c.VM.StackLimit < 0 {
		return fmt.Errorf("vm.stack_limit must not be negative")
	}
	return nil
}

// ProjectRoot returns the directory holding the config file, or "" when the
// defaults are in use.
func ProjectRoot(configPath string) string {
	if configPath == "" {
		return ""
	}
	return filepath.Dir(configPath)
}

// OutputDir resolves Output.Dir against the project root. Without a config
// file it is resolved against fallback.
func (c *Config) OutputDir(configPath, fallback string) string {
	if filepath.IsAbs(c.Output.Dir) {
		return c.Output.Dir
	}
	root := ProjectRoot(configPath)
	if root == "" {
		root = fallback
	}
	return filepath.Join(root, c.Output.Dir)
}
