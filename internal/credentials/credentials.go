// Package credentials resolves the API key used for the completion and
// transcription services.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// EnvKey is the environment variable that takes precedence over every
// other key source.
const EnvKey = "BABYTALK_API_KEY"

// defaultKey is the built-in fallback. Release builds may set it with
// -ldflags "-X github.com/Tiliavir/babytalk/internal/credentials.defaultKey=...".
var defaultKey = ""

// ErrNoKey is returned by the token source when no layer yields a key.
var ErrNoKey = errors.New("no API key configured")

// Source names the layer a key was resolved from.
type Source string

const (
	SourceNone    Source = ""
	SourceEnv     Source = "environment"
	SourceCustom  Source = "saved key"
	SourceConfig  Source = "config file"
	SourceBuiltIn Source = "built-in"
)

// Resolver looks the key up in order: environment, saved custom key,
// config file, built-in default. The first non-empty value wins.
type Resolver struct {
	dataDir   string
	configKey string
	getenv    func(string) string
}

// NewResolver returns a resolver that keeps its saved key under
// <dataDir>/auth and falls back to configKey.
func NewResolver(dataDir, configKey string) *Resolver {
	return &Resolver{
		dataDir:   dataDir,
		configKey: strings.TrimSpace(configKey),
		getenv:    os.Getenv,
	}
}

// savedKey is the on-disk format of the custom key file.
type savedKey struct {
	APIKey  string    `json:"api_key"`
	SavedAt time.Time `json:"saved_at"`
}

func (r *Resolver) keyFilePath() string {
	return filepath.Join(r.dataDir, "auth", "api_key.json")
}

// Resolve returns the first non-empty key, or "" when none is configured.
func (r *Resolver) Resolve() string {
	key, _ := r.resolve()
	return key
}

// ResolvedSource reports which layer Resolve would use.
func (r *Resolver) ResolvedSource() Source {
	_, src := r.resolve()
	return src
}

func (r *Resolver) resolve() (string, Source) {
	if v := strings.TrimSpace(r.getenv(EnvKey)); v != "" {
		return v, SourceEnv
	}
	if v, err := r.loadCustomKey(); err == nil && v != "" {
		return v, SourceCustom
	}
	if r.configKey != "" {
		return r.configKey, SourceConfig
	}
	if defaultKey != "" {
		return defaultKey, SourceBuiltIn
	}
	return "", SourceNone
}

// HasCustomKey reports whether a saved custom key exists.
func (r *Resolver) HasCustomKey() bool {
	v, err := r.loadCustomKey()
	return err == nil && v != ""
}

// loadCustomKey reads the saved key file. A missing file yields "", nil.
func (r *Resolver) loadCustomKey() (string, error) {
	path := r.keyFilePath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading key file: %w", err)
	}
	var sk savedKey
	if err := json.Unmarshal(data, &sk); err != nil {
		return "", fmt.Errorf("corrupt key file (delete %s or run 'babytalk key set'): %w", path, err)
	}
	return strings.TrimSpace(sk.APIKey), nil
}

// SaveCustomKey persists key with mode 0600 via a temp file and rename.
func (r *Resolver) SaveCustomKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key must not be empty")
	}
	path := r.keyFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(savedKey{APIKey: key, SavedAt: time.Now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling key: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving key file: %w", err)
	}
	return nil
}

// ClearCustomKey removes the saved key. Clearing when none is saved is not
// an error.
func (r *Resolver) ClearCustomKey() error {
	if err := os.Remove(r.keyFilePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing key file: %w", err)
	}
	return nil
}

// TokenSource exposes the resolved key as a bearer token. The key is
// looked up again on every call so a saved or cleared key takes effect
// without rebuilding clients.
func (r *Resolver) TokenSource() oauth2.TokenSource {
	return keyTokenSource{r: r}
}

type keyTokenSource struct {
	r *Resolver
}

func (s keyTokenSource) Token() (*oauth2.Token, error) {
	key := s.r.Resolve()
	if key == "" {
		return nil, ErrNoKey
	}
	return &oauth2.Token{AccessToken: key, TokenType: "Bearer"}, nil
}

// Mask shortens a key for display: "sk-a…wxyz".
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "…" + key[len(key)-4:]
}
