package cmd

import (
	"strings"
	"testing"

	"github.com/Tiliavir/babytalk/internal/credentials"
)

func TestKeyStatus(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(credentials.EnvKey, "")

	r := credentials.NewResolver(dir, "")
	if got := keyStatus(r); !strings.HasPrefix(got, "No API key configured.") {
		t.Errorf("without key: %q", got)
	}

	if err := r.SaveCustomKey("sk-saved-0123456789"); err != nil {
		t.Fatal(err)
	}
	got := keyStatus(r)
	if !strings.Contains(got, "from the saved key") || strings.Contains(got, "takes precedence") {
		t.Errorf("saved key in use: %q", got)
	}

	t.Setenv(credentials.EnvKey, "sk-env-abcdefghijkl")
	got = keyStatus(r)
	if !strings.Contains(got, "from the environment") {
		t.Errorf("env key should win: %q", got)
	}
	if !strings.Contains(got, "A saved key exists but the environment takes precedence.") {
		t.Errorf("shadowed saved key not reported: %q", got)
	}
}
