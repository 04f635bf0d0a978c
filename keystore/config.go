package keystore

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries the store's policy knobs. The derivation paths and the
// auto-lock timeout are policy, not protocol: defaults match the reference
// deployment but hosts may override them per store.
type Config struct {
	// AutoLockTimeout is how long the store stays unlocked after the last
	// Unlock call.
	AutoLockTimeout time.Duration `yaml:"autoLockTimeout"`
	// KeySeedPath is the coin-level path the key seed is derived at from
	// the master seed.
	KeySeedPath string `yaml:"keySeedPath"`
	// RecoveryPath is the disjoint path the recovery keypair is derived
	// at, directly from the master seed.
	RecoveryPath string `yaml:"recoveryPath"`
	// StorePrefix namespaces every persisted entry of this store.
	StorePrefix string `yaml:"storePrefix"`
	// KDFSalt is the fixed salt for passphrase stretching. Fixed per
	// store so repeated unlocks derive the same ephemeral key.
	KDFSalt string `yaml:"kdfSalt"`
	// UnlockRate/UnlockBurst bound the passphrase-guessing rate.
	UnlockRate  float64 `yaml:"unlockRate"`
	UnlockBurst int     `yaml:"unlockBurst"`
}

func DefaultConfig() Config {
	return Config{
		AutoLockTimeout: 30 * time.Second,
		KeySeedPath:     "m/44'/60'/0'",
		RecoveryPath:    "m/44'/60'/1'/0/0",
		StorePrefix:     "kc/",
		KDFSalt:         "iden3js",
		UnlockRate:      1,
		UnlockBurst:     3,
	}
}

type fileConfig struct {
	Keystore Config `yaml:"keystore"`
}

// LoadConfig reads a yaml config file, merges it over the defaults and
// applies environment overrides. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("keystore: read config: %w", err)
			}
		} else {
			var parsed fileConfig
			if err := yaml.Unmarshal(data, &parsed); err != nil {
				return Config{}, fmt.Errorf("keystore: parse config: %w", err)
			}
			merge(&cfg, parsed.Keystore)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func merge(dst *Config, src Config) {
	if src.AutoLockTimeout != 0 {
		dst.AutoLockTimeout = src.AutoLockTimeout
	}
	if src.KeySeedPath != "" {
		dst.KeySeedPath = src.KeySeedPath
	}
	if src.RecoveryPath != "" {
		dst.RecoveryPath = src.RecoveryPath
	}
	if src.StorePrefix != "" {
		dst.StorePrefix = src.StorePrefix
	}
	if src.KDFSalt != "" {
		dst.KDFSalt = src.KDFSalt
	}
	if src.UnlockRate != 0 {
		dst.UnlockRate = src.UnlockRate
	}
	if src.UnlockBurst != 0 {
		dst.UnlockBurst = src.UnlockBurst
	}
}

func applyEnvOverrides(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv("IDEN3_KEYSTORE_AUTOLOCK")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.AutoLockTimeout = d
		}
	}
	if raw := strings.TrimSpace(os.Getenv("IDEN3_KEYSTORE_PREFIX")); raw != "" {
		cfg.StorePrefix = raw
	}
}
