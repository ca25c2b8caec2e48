// Package config holds the toolkit's ambient configuration: default
// back-end selection, the C compiler used by backend/csource, and the
// optional mathserver listen address/secret/history store.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the decoded form of a mathexpr TOML configuration file.
type Config struct {
	// Backend is the name of the default back-end to request from
	// backend.Registry when none is specified on the command line.
	Backend string `toml:"backend"`

	// CCompiler is the compiler binary invoked by backend/csource.
	CCompiler string `toml:"c_compiler"`

	// CFlags are extra flags appended after backend/csource's own
	// -O2 -shared -fPIC.
	CFlags []string `toml:"c_flags"`

	// TempDir overrides os.TempDir() for backend/csource's scratch files.
	// Empty means use the OS default.
	TempDir string `toml:"temp_dir"`

	Server Server `toml:"server"`
}

// Server holds cmd/mathserver's listen configuration.
type Server struct {
	// ListenAddr is the address passed to http.ListenAndServe, e.g.
	// ":8080".
	ListenAddr string `toml:"listen_addr"`

	// Secret, if non-empty, turns on bearer-token auth for every endpoint
	// except /healthz.
	Secret string `toml:"secret"`

	// HistoryDB is the path to the modernc.org/sqlite-backed evaluation
	// history database. Empty disables history.
	HistoryDB string `toml:"history_db"`
}

const (
	// MinSecretSize is the minimum length, in bytes, of Server.Secret.
	MinSecretSize = 32

	defaultBackend   = "bytecode"
	defaultCCompiler = "cc"
)

// FillDefaults returns a copy of cfg with unset fields set to their
// defaults.
func (cfg Config) FillDefaults() Config {
	out := cfg
	if out.Backend == "" {
		out.Backend = defaultBackend
	}
	if out.CCompiler == "" {
		out.CCompiler = defaultCCompiler
	}
	return out
}

// Validate returns an error if cfg has invalid field values. A zero-valued
// Server.Secret is valid (auth disabled); a non-empty one must meet
// MinSecretSize.
func (cfg Config) Validate() error {
	if cfg.Backend == "" {
		return fmt.Errorf("backend: must not be empty")
	}
	if cfg.CCompiler == "" {
		return fmt.Errorf("c_compiler: must not be empty")
	}
	if cfg.Server.Secret != "" && len(cfg.Server.Secret) < MinSecretSize {
		return fmt.Errorf("server.secret: must be at least %d bytes, but is %d", MinSecretSize, len(cfg.Server.Secret))
	}
	return nil
}

// Load reads and decodes the TOML file at path, then fills defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg.FillDefaults(), nil
}
