package keystore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AutoLockTimeout != 30*time.Second {
		t.Fatalf("default auto-lock should be 30s, got %v", cfg.AutoLockTimeout)
	}
	if cfg.KeySeedPath == "" || cfg.RecoveryPath == "" || cfg.StorePrefix == "" {
		t.Fatalf("incomplete defaults: %+v", cfg)
	}
	if cfg.KeySeedPath == cfg.RecoveryPath {
		t.Fatal("key-seed and recovery paths must be disjoint")
	}
}

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "keystore:\n  autoLockTimeout: 90s\n  storePrefix: vault/\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AutoLockTimeout != 90*time.Second {
		t.Fatalf("timeout not merged: %v", cfg.AutoLockTimeout)
	}
	if cfg.StorePrefix != "vault/" {
		t.Fatalf("prefix not merged: %q", cfg.StorePrefix)
	}
	// Untouched fields keep their defaults.
	if cfg.KeySeedPath != DefaultConfig().KeySeedPath {
		t.Fatalf("key-seed path should stay default, got %q", cfg.KeySeedPath)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("IDEN3_KEYSTORE_AUTOLOCK", "2m")
	t.Setenv("IDEN3_KEYSTORE_PREFIX", "env/")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AutoLockTimeout != 2*time.Minute {
		t.Fatalf("env timeout not applied: %v", cfg.AutoLockTimeout)
	}
	if cfg.StorePrefix != "env/" {
		t.Fatalf("env prefix not applied: %q", cfg.StorePrefix)
	}
}

func TestLoadConfigRejectsBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("keystore: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}
