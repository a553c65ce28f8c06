// Package config loads CLI configuration from defaults, the project
// config file, environment variables, and flags, in increasing
// precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	OutDir       string `koanf:"out_dir"`
	StatePath    string `koanf:"state_path"`
	Jobs         int    `koanf:"jobs"`
	Legacy       bool   `koanf:"legacy"`
	Strict       bool   `koanf:"strict"`
	Force        bool   `koanf:"force"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultStateFile = ".xcsp2cpo/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
