// Package manifest handles membuf.toml engine configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/membuf/vm"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "membuf.toml"

// Manifest represents a membuf.toml configuration.
type Manifest struct {
	Engine Engine `toml:"engine"`
	Buffer Buffer `toml:"buffer"`
	Log    Log    `toml:"log"`
	Trace  Trace  `toml:"trace"`

	// Dir is the directory containing the membuf.toml file (set at load time).
	Dir string `toml:"-"`
}

// Engine configures the host VM.
type Engine struct {
	PlaceholderSize uint32 `toml:"placeholder-size"`
	StackSize       int    `toml:"stack-size"`
	// MaxCeiling caps the max size any script may request; 0 means no cap
	// beyond the buffer's own limit.
	MaxCeiling uint32 `toml:"max-ceiling"`
}

// Buffer configures newly constructed buffers.
type Buffer struct {
	ExpandIncrement uint32 `toml:"expand-increment"`
}

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Trace configures session recording.
type Trace struct {
	Output   string `toml:"output"`
	Compress bool   `toml:"compress"`
}

// Default returns the configuration used when no membuf.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	def := vm.DefaultConfig()
	if m.Engine.PlaceholderSize == 0 {
		m.Engine.PlaceholderSize = def.PlaceholderSize
	}
	if m.Engine.StackSize == 0 {
		m.Engine.StackSize = def.StackSize
	}
}

// Load parses a membuf.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration at path. Dir is set to the file's
// directory.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s in %s", undecoded[0], path)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if m.Engine.StackSize < 0 {
		return nil, fmt.Errorf("%s: engine.stack-size must not be negative", path)
	}
	if m.Engine.MaxCeiling > 0 && m.Engine.PlaceholderSize > m.Engine.MaxCeiling {
		return nil, fmt.Errorf("%s: engine.placeholder-size %d exceeds max-ceiling %d",
			path, m.Engine.PlaceholderSize, m.Engine.MaxCeiling)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a membuf.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// VMConfig converts the engine and buffer sections to a vm.Config.
func (m *Manifest) VMConfig() vm.Config {
	cfg := vm.DefaultConfig()
	if m.Engine.PlaceholderSize > 0 {
		cfg.PlaceholderSize = m.Engine.PlaceholderSize
	}
	if m.Engine.StackSize > 0 {
		cfg.StackSize = m.Engine.StackSize
	}
	cfg.MaxCeiling = m.Engine.MaxCeiling
	cfg.ExpandIncrement = m.Buffer.ExpandIncrement
	return cfg
}

// TracePath returns the trace output path resolved against Dir, or "" when
// tracing is not configured.
func (m *Manifest) TracePath() string {
	if m.Trace.Output == "" {
		return ""
	}
	if filepath.IsAbs(m.Trace.Output) || m.Dir == "" {
		return m.Trace.Output
	}
	return filepath.Join(m.Dir, m.Trace.Output)
}

// LogPath returns the log file path resolved against Dir, or nil to log to
// stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	p := m.Log.File
	if !filepath.IsAbs(p) && m.Dir != "" {
		p = filepath.Join(m.Dir, p)
	}
	return &p
}
