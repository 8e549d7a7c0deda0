package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("NOTEBOX_CONFIG_PATH", "/custom/notebox.toml")
		t.Setenv("NOTEBOX_HOME", "/custom/notebox")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/notebox.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/notebox.toml")
		}
		if defaults["base_dir"] != "/custom/notebox" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/notebox")
		}
		if defaults["log_dir"] != "/custom/notebox/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/notebox/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("NOTEBOX_CONFIG_PATH", "")
		t.Setenv("NOTEBOX_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "notebox.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "notebox")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults["log_dir"] != wantLog {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], wantLog)
		}
	})
}
