package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for babytalk, stored in
// ~/.babytalk/config.json. JSON files support single-line // comments; files
// ending in .yaml or .yml are read as YAML.
type Config struct {
	// DataDir holds the day files, the profile and the saved API key.
	DataDir string `json:"data_dir" yaml:"data_dir"`
	// Timezone is the IANA zone that decides which calendar day an entry
	// belongs to. Empty = the system's local zone.
	Timezone string `json:"timezone" yaml:"timezone"`
	// LogFile receives diagnostic output. Empty = stderr.
	LogFile string   `json:"log_file" yaml:"log_file"`
	AI      AIConfig `json:"ai" yaml:"ai"`
}

// AIConfig holds the completion and transcription service settings.
type AIConfig struct {
	BaseURL            string `json:"base_url" yaml:"base_url"`
	Model              string `json:"model" yaml:"model"`
	TranscriptionModel string `json:"transcription_model" yaml:"transcription_model"`
	TimeoutSeconds     int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	// APIKey is the lowest-precedence key source, below BABYTALK_API_KEY and
	// a key saved with 'babytalk key set'.
	APIKey string `json:"api_key" yaml:"api_key"`
}

const (
	DefaultBaseURL            = "https://api.openai.com/v1"
	DefaultModel              = "gpt-4o"
	DefaultTranscriptionModel = "whisper-1"
	DefaultTimeoutSeconds     = 60

	// EnvDataDir overrides data_dir.
	EnvDataDir = "BABYTALK_DATA_DIR"
)

// defaultConfig returns a Config pre-filled with defaults. home is used for
// the data directory.
func defaultConfig(home string) Config {
	return Config{
		DataDir: filepath.Join(home, ".babytalk"),
		AI: AIConfig{
			BaseURL:            DefaultBaseURL,
			Model:              DefaultModel,
			TranscriptionModel: DefaultTranscriptionModel,
			TimeoutSeconds:     DefaultTimeoutSeconds,
		},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// babytalk configuration – ~/.babytalk/config.json
//
// All settings are optional; empty values fall back to the defaults shown
// in the comments.
{
  // Directory for daily_log_<date>.json files and baby_profile.json.
  // Empty = ~/.babytalk. The BABYTALK_DATA_DIR environment variable wins.
  "data_dir": "",

  // IANA timezone that decides which day an entry belongs to, e.g. "Europe/Berlin".
  // Leave empty to use the system timezone.
  "timezone": "",

  // Append diagnostic logs to this file instead of stderr.
  "log_file": "",

  // ── AI assistant ─────────────────────────────────────────────────────────
  "ai": {
    // Any OpenAI-compatible endpoint.
    "base_url": "https://api.openai.com/v1",
    "model": "gpt-4o",
    "transcription_model": "whisper-1",
    "timeout_seconds": 60,

    // Prefer 'babytalk key set <key>' or BABYTALK_API_KEY over storing the key here.
    "api_key": ""
  }
}
`

// DefaultPath returns ~/.babytalk/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".babytalk", "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads the config at path (DefaultPath when empty), creating it with
// annotated defaults on first run, then applies environment overrides.
func Load(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("cannot determine home directory: %w", err)
	}
	if path == "" {
		if path, err = DefaultPath(); err != nil {
			return Config{}, err
		}
	}
	return load(path, home, os.Getenv)
}

func load(path, home string, getenv func(string) string) (Config, error) {
	defaults := defaultConfig(home)
	defaults.applyEnv(getenv)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path, defaultConfig(home)); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return defaults, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	} else {
		if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
			return defaults, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	}

	// Fill zero-value fields with built-in defaults so callers always get
	// a usable Config even if the user only partially fills in the file.
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = DefaultBaseURL
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = DefaultModel
	}
	if cfg.AI.TranscriptionModel == "" {
		cfg.AI.TranscriptionModel = DefaultTranscriptionModel
	}
	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = DefaultTimeoutSeconds
	}
	cfg.DataDir = expandHome(cfg.DataDir, home)
	cfg.LogFile = expandHome(cfg.LogFile, home)
	cfg.applyEnv(getenv)

	if _, err := cfg.Location(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvDataDir)); v != "" {
		c.DataDir = v
	}
}

// Location resolves Timezone. Empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Timeout returns the AI request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

// writeDefault creates the config directory and writes the default config:
// the annotated template for JSON, or the marshalled defaults for YAML.
func writeDefault(path string, defaults Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data := []byte(configTemplate)
	if isYAML(path) {
		var err error
		if data, err = yaml.Marshal(defaults); err != nil {
			return fmt.Errorf("marshalling default config: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
