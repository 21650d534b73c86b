package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestResolver(t *testing.T, configKey string, env map[string]string) *Resolver {
	t.Helper()
	r := NewResolver(t.TempDir(), configKey)
	r.getenv = func(k string) string { return env[k] }
	return r
}

func TestResolveOrder(t *testing.T) {
	r := newTestResolver(t, "from-config", map[string]string{EnvKey: "from-env"})
	if err := r.SaveCustomKey("from-file"); err != nil {
		t.Fatal(err)
	}
	if got := r.Resolve(); got != "from-env" {
		t.Errorf("with env: got %q", got)
	}

	r.getenv = func(string) string { return "" }
	if got := r.Resolve(); got != "from-file" {
		t.Errorf("with saved key: got %q", got)
	}
	if r.ResolvedSource() != SourceCustom {
		t.Errorf("source = %q", r.ResolvedSource())
	}

	if err := r.ClearCustomKey(); err != nil {
		t.Fatal(err)
	}
	if got := r.Resolve(); got != "from-config" {
		t.Errorf("with config only: got %q", got)
	}
}

func TestResolveEmpty(t *testing.T) {
	r := newTestResolver(t, "", nil)
	if got := r.Resolve(); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if _, err := r.TokenSource().Token(); !errors.Is(err, ErrNoKey) {
		t.Errorf("Token err = %v, want ErrNoKey", err)
	}
}

func TestSaveCustomKeyFileMode(t *testing.T) {
	r := newTestResolver(t, "", nil)
	if err := r.SaveCustomKey("  sk-test-123456  "); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(r.dataDir, "auth", "api_key.json"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}
	if !r.HasCustomKey() {
		t.Error("HasCustomKey = false after save")
	}
	tok, err := r.TokenSource().Token()
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "sk-test-123456" || tok.TokenType != "Bearer" {
		t.Errorf("token = %+v", tok)
	}
}

func TestSaveCustomKeyRejectsEmpty(t *testing.T) {
	r := newTestResolver(t, "", nil)
	if err := r.SaveCustomKey("   "); err == nil {
		t.Error("expected error for blank key")
	}
}

func TestClearWithoutSavedKey(t *testing.T) {
	r := newTestResolver(t, "", nil)
	if err := r.ClearCustomKey(); err != nil {
		t.Errorf("ClearCustomKey: %v", err)
	}
}

func TestCorruptKeyFileFallsThrough(t *testing.T) {
	r := newTestResolver(t, "cfg", nil)
	path := filepath.Join(r.dataDir, "auth", "api_key.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := r.Resolve(); got != "cfg" {
		t.Errorf("got %q, want cfg", got)
	}
}

func TestMask(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"short":           "*****",
		"sk-abcdefghwxyz": "sk-a…wxyz",
	}
	for in, want := range tests {
		if got := Mask(in); got != want {
			t.Errorf("Mask(%q) = %q, want %q", in, got, want)
		}
	}
}
