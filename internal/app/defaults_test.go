package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("FDB_CONFIG_PATH", "/custom/fdb.yaml")
		t.Setenv("FDB_HOME", "/custom/fdb")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/fdb.yaml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/fdb.yaml")
		}
		if defaults["base_dir"] != "/custom/fdb" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/fdb")
		}
		if defaults["log_dir"] != "/custom/fdb/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/fdb/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("FDB_CONFIG_PATH", "")
		t.Setenv("FDB_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "fdb.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "fdb")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}
		if defaults["log_dir"] != filepath.Join(wantBase, "log") {
			t.Errorf("log_dir = %q", defaults["log_dir"])
		}
	})
}
