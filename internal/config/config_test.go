package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func noEnv(string) string { return "" }

func TestLoadWritesTemplateOnFirstRun(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, ".babytalk", "config.json")

	cfg, err := load(path, home, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != filepath.Join(home, ".babytalk") {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.AI.Model != DefaultModel || cfg.AI.TimeoutSeconds != 60 {
		t.Errorf("AI = %+v", cfg.AI)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("template not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "// babytalk configuration") {
		t.Errorf("unexpected template:\n%s", data)
	}

	// The written template must load back to the same defaults.
	again, err := load(path, home, noEnv)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again != cfg {
		t.Errorf("reloaded %+v, want %+v", again, cfg)
	}
}

func TestStripLineComments(t *testing.T) {
	in := []byte("// header\n{\n  // inner\n  \"a\": 1\n}\n")
	got := string(stripLineComments(in))
	if strings.Contains(got, "//") {
		t.Errorf("comments not stripped: %q", got)
	}
	if !strings.Contains(got, `"a": 1`) {
		t.Errorf("content lost: %q", got)
	}
}

func TestLoadJSONPartialFillsDefaults(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "cfg.json")
	content := `// mine
{
  "data_dir": "~/baby-data",
  "timezone": "Europe/Berlin",
  "ai": { "model": "gpt-4o-mini" }
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := load(path, home, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != filepath.Join(home, "baby-data") {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.AI.Model != "gpt-4o-mini" || cfg.AI.BaseURL != DefaultBaseURL || cfg.AI.TranscriptionModel != DefaultTranscriptionModel {
		t.Errorf("AI = %+v", cfg.AI)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("Location = %v, %v", loc, err)
	}
	if cfg.Timeout() != 60*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout())
	}
}

func TestLoadYAML(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yaml")
	content := "data_dir: /srv/babytalk\nlog_file: ~/babytalk.log\nai:\n  timeout_seconds: 15\n  api_key: sk-yaml\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := load(path, home, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/srv/babytalk" || cfg.LogFile != filepath.Join(home, "babytalk.log") {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.AI.TimeoutSeconds != 15 || cfg.AI.APIKey != "sk-yaml" || cfg.AI.Model != DefaultModel {
		t.Errorf("AI = %+v", cfg.AI)
	}
}

func TestLoadYAMLFirstRun(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yml")
	if _, err := load(path, home, noEnv); err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg, err := load(path, home, noEnv)
	if err != nil {
		t.Fatalf("reload written yaml: %v", err)
	}
	if cfg.AI.BaseURL != DefaultBaseURL {
		t.Errorf("AI = %+v", cfg.AI)
	}
}

func TestEnvOverridesDataDir(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.json")
	if err := os.WriteFile(path, []byte(`{"data_dir": "/from/file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	env := func(k string) string {
		if k == EnvDataDir {
			return "/from/env"
		}
		return ""
	}
	cfg, err := load(path, home, env)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "/from/env" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoadErrors(t *testing.T) {
	home := t.TempDir()
	tests := map[string]string{
		"bad.json":   `{"data_dir": `,
		"bad.yaml":   "ai: [unclosed",
		"badtz.json": `{"timezone": "Mars/Olympus"}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(home, name)
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := load(path, home, noEnv); err == nil {
				t.Error("expected error")
			}
		})
	}
}
