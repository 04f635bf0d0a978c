package keystore

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kanthgithub/iden3js/db"
	"github.com/kanthgithub/iden3js/kcrypto"
)

const testMasterSeed = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newTestStore(t *testing.T) (*Store, *clock.Mock, *db.Memory) {
	t.Helper()
	cfg := DefaultConfig()
	// Throttling is exercised by its own test; keep it out of the way here.
	cfg.UnlockRate = 1000
	cfg.UnlockBurst = 1000
	return newTestStoreWithConfig(t, cfg)
}

func newTestStoreWithConfig(t *testing.T, cfg Config) (*Store, *clock.Mock, *db.Memory) {
	t.Helper()
	mem := db.NewMemory()
	mock := clock.NewMock()
	s := newStoreWithClock(mem, kcrypto.NewEthProvider(), cfg, mock)
	s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return s, mock, mem
}

func newTestStoreWithStorage(t *testing.T, storage db.Storage) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.UnlockRate = 1000
	cfg.UnlockBurst = 1000
	s := newStoreWithClock(storage, kcrypto.NewEthProvider(), cfg, clock.NewMock())
	s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return s
}

func TestUnlockLockVisibility(t *testing.T) {
	s, _, _ := newTestStore(t)
	if s.IsUnlocked() {
		t.Fatal("new store must start locked")
	}
	if err := s.Unlock("pass"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if !s.IsUnlocked() {
		t.Fatal("store should be unlocked")
	}
	if err := s.Lock(); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if s.IsUnlocked() {
		t.Fatal("store should be locked")
	}
	if err := s.Lock(); !errors.Is(err, ErrLocked) {
		t.Fatalf("locking a locked store should fail, got %v", err)
	}
}

func TestAutoLock(t *testing.T) {
	s, mock, _ := newTestStore(t)
	if err := s.Unlock("pass"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	mock.Add(29 * time.Second)
	if !s.IsUnlocked() {
		t.Fatal("store locked before the timeout elapsed")
	}
	mock.Add(2 * time.Second)
	if s.IsUnlocked() {
		t.Fatal("store should auto-lock once the timeout elapses")
	}
}

func TestUnlockResetsAutoLockTimer(t *testing.T) {
	s, mock, _ := newTestStore(t)
	if err := s.Unlock("pass"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	mock.Add(20 * time.Second)
	if err := s.Unlock("pass"); err != nil {
		t.Fatalf("re-unlock failed: %v", err)
	}
	mock.Add(20 * time.Second)
	if !s.IsUnlocked() {
		t.Fatal("re-unlock should restart the timer")
	}
	mock.Add(11 * time.Second)
	if s.IsUnlocked() {
		t.Fatal("store should auto-lock after the restarted timeout")
	}
}

func TestStaleAutoLockCallbackIgnored(t *testing.T) {
	s, mock, _ := newTestStore(t)
	if err := s.Unlock("first"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	stale := s.lockGen
	if err := s.Unlock("second"); err != nil {
		t.Fatalf("re-unlock failed: %v", err)
	}
	// A timer whose callback was already dispatched when Stop missed it
	// still runs; it must leave the fresh session alone.
	s.onAutoLock(stale)
	if !s.IsUnlocked() {
		t.Fatal("stale timer callback locked the freshly unlocked store")
	}
	// The live timer still owns the session.
	mock.Add(31 * time.Second)
	if s.IsUnlocked() {
		t.Fatal("current timer should still auto-lock")
	}
}

func TestNewZeroConfigUsesDefaults(t *testing.T) {
	s := New(db.NewMemory(), kcrypto.NewEthProvider(), Config{})
	s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if s.cfg != DefaultConfig() {
		t.Fatalf("zero config not normalized: %+v", s.cfg)
	}
	if err := s.Unlock("pass"); err != nil {
		t.Fatalf("unlock on a zero-config store failed: %v", err)
	}
	if !s.IsUnlocked() {
		t.Fatal("store should be unlocked")
	}
}

func TestExplicitLockCancelsTimer(t *testing.T) {
	s, mock, _ := newTestStore(t)
	if err := s.Unlock("pass"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if err := s.Lock(); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if err := s.Unlock("pass"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	// The first timer was cancelled; only the fresh 30s window applies.
	mock.Add(29 * time.Second)
	if !s.IsUnlocked() {
		t.Fatal("cancelled timer must not lock the fresh session")
	}
}

func TestUnlockThrottle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UnlockRate = 0.001
	cfg.UnlockBurst = 1
	s, _, _ := newTestStoreWithConfig(t, cfg)
	if err := s.Unlock("pass"); err != nil {
		t.Fatalf("first unlock failed: %v", err)
	}
	if err := s.Unlock("pass"); !errors.Is(err, ErrUnlockThrottled) {
		t.Fatalf("expected ErrUnlockThrottled, got %v", err)
	}
}

func TestLockedOperationsFail(t *testing.T) {
	s, _, _ := newTestStore(t)
	ops := map[string]func() error{
		"SetMasterSeed":           func() error { return s.SetMasterSeed(testMasterSeed) },
		"GetMasterSeed":           func() error { _, err := s.GetMasterSeed(); return err },
		"GenerateKeySeed":         func() error { return s.GenerateKeySeed(testMasterSeed) },
		"GetKeySeed":              func() error { _, _, err := s.GetKeySeed(); return err },
		"IncreaseKeyPath":         func() error { return s.IncreaseKeyPath() },
		"CreateKeys":              func() error { _, err := s.CreateKeys(); return err },
		"GenerateSingleKey":       func() error { _, err := s.GenerateSingleKey(0, 0); return err },
		"GenerateKeyRand":         func() error { _, err := s.GenerateKeyRand(); return err },
		"ImportKey":               func() error { _, err := s.ImportKey("00"); return err },
		"GenerateRecoveryAddress": func() error { _, err := s.GenerateRecoveryAddress(testMasterSeed); return err },
		"Sign":                    func() error { _, err := s.Sign("0x00", nil); return err },
		"Export":                  func() error { _, err := s.Export(); return err },
		"Import":                  func() error { return s.Import("blob") },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrLocked) {
			t.Fatalf("%s while locked: expected ErrLocked, got %v", name, err)
		}
	}
}

func TestRegisterMetrics(t *testing.T) {
	s, _, _ := newTestStore(t)
	reg := prometheus.NewRegistry()
	if err := s.RegisterMetrics(reg); err != nil {
		t.Fatalf("register metrics failed: %v", err)
	}
	if err := s.RegisterMetrics(reg); err == nil {
		t.Fatal("double registration should fail")
	}
}
