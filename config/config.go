// Package config loads spvgen.toml, which names the external SPIR-V tools and
// the default compile settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/spvgen/spirv"
)

// FileName is the configuration file searched for by Find.
const FileName = "spvgen.toml"

// Default tool names, resolved through PATH.
const (
	DefaultValidator = "spirv-val"
	DefaultOptimizer = "spirv-opt"
	DefaultCross     = "spirv-cross"
)

// Tools names the external SPIR-V tools.
type Tools struct {
	Validator string `toml:"validator"`
	Optimizer string `toml:"optimizer"`
	Cross     string `toml:"cross"`
}

// Compile holds default compile settings.
type Compile struct {
	Target      string    `toml:"target"`
	OptLevel    int       `toml:"opt_level"`
	DebugInfo   bool      `toml:"debug_info"`
	GLSLVersion int       `toml:"glsl_version"`
	GLSLES      bool      `toml:"glsl_es"`
	LocalSize   [3]uint32 `toml:"local_size"`
}

// Config is the decoded spvgen.toml.
type Config struct {
	Tools   Tools   `toml:"tools"`
	Compile Compile `toml:"compile"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Tools: Tools{
			Validator: DefaultValidator,
			Optimizer: DefaultOptimizer,
			Cross:     DefaultCross,
		},
		Compile: Compile{
			Target:      spirv.TargetFragment,
			DebugInfo:   true,
			GLSLVersion: 450,
			LocalSize:   [3]uint32{1, 1, 1},
		},
	}
}

// Find looks for spvgen.toml in startDir and its parents.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load reads path. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := checkUndecoded(meta); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration from TOML text.
func Parse(data string) (Config, error) {
	cfg := Defaults()
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := checkUndecoded(meta); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Discover loads the nearest spvgen.toml above startDir, or returns the
// defaults when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Defaults(), nil
	}
	return Load(path)
}

func checkUndecoded(meta toml.MetaData) error {
	keys := meta.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if !slices.Contains(spirv.Targets(), c.Compile.Target) {
		return fmt.Errorf("[compile].target %q is not one of %s",
			c.Compile.Target, strings.Join(spirv.Targets(), ", "))
	}
	if c.Compile.OptLevel < 0 || c.Compile.OptLevel > 3 {
		return fmt.Errorf("[compile].opt_level must be between 0 and 3, got %d", c.Compile.OptLevel)
	}
	if c.Compile.GLSLVersion < 100 {
		return fmt.Errorf("[compile].glsl_version %d is not a GLSL version", c.Compile.GLSLVersion)
	}
	for i, n := range c.Compile.LocalSize {
		if n == 0 {
			return fmt.Errorf("[compile].local_size[%d] must be positive", i)
		}
	}
	for name, tool := range map[string]string{
		"validator": c.Tools.Validator,
		"optimizer": c.Tools.Optimizer,
		"cross":     c.Tools.Cross,
	} {
		if strings.TrimSpace(tool) == "" {
			return fmt.Errorf("[tools].%s must not be empty", name)
		}
	}
	return nil
}
