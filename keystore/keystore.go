// Package keystore implements the secret-management core of the identity
// toolkit: a passphrase-gated, hierarchically-derived, encrypted key vault
// over a pluggable key/value store.
//
// All key material is persisted encrypted under an ephemeral key stretched
// from the user passphrase at Unlock time. The ephemeral key lives only in
// memory and is discarded on Lock or when the auto-lock timer fires.
package keystore

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/kanthgithub/iden3js/db"
	"github.com/kanthgithub/iden3js/internal/privlog"
	"github.com/kanthgithub/iden3js/kcrypto"
)

const (
	masterSeedKey  = "masterseed"
	keySeedKey     = "keyseed"
	keysPrefix     = "keys/"
	recoveryPrefix = "recovery/"
)

// Store is the secret store. It serves one caller context at a time; the
// auto-lock timer is the only asynchronous actor and serializes with key
// operations through the store mutex.
type Store struct {
	cfg     Config
	prim    kcrypto.Provider
	storage db.Storage
	log     *slog.Logger
	metrics *storeMetrics
	clk     clock.Clock
	limiter *rate.Limiter

	mu           sync.Mutex
	unlocked     bool
	ephemeralKey []byte
	autoLock     *clock.Timer
	lockGen      uint64
}

// New builds a Store over storage, namespacing every entry under
// cfg.StorePrefix.
func New(storage db.Storage, prim kcrypto.Provider, cfg Config) *Store {
	return newStoreWithClock(storage, prim, cfg, clock.New())
}

func newStoreWithClock(storage db.Storage, prim kcrypto.Provider, cfg Config, clk clock.Clock) *Store {
	// Zero-value fields fall back to the defaults, mirroring the yaml merge.
	def := DefaultConfig()
	merge(&def, cfg)
	cfg = def
	return &Store{
		cfg:     cfg,
		prim:    prim,
		storage: db.WithPrefix(storage, cfg.StorePrefix),
		log:     DefaultLogger(),
		metrics: newStoreMetrics(),
		clk:     clk,
		limiter: rate.NewLimiter(rate.Limit(cfg.UnlockRate), cfg.UnlockBurst),
	}
}

// SetLogger replaces the store logger. The handler is wrapped so secrets
// never reach the sink even if a call site logs them by mistake.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	s.log = slog.New(privlog.WrapHandler(logger.Handler()))
}

// DefaultLogger returns a sanitizing JSON logger on stdout.
func DefaultLogger() *slog.Logger {
	return slog.New(privlog.WrapHandler(slog.NewJSONHandler(os.Stdout, nil)))
}

// Unlock stretches the passphrase into the ephemeral encryption key and
// opens the store for AutoLockTimeout. Calling it while already unlocked
// replaces the key and restarts the timer.
func (s *Store) Unlock(passphrase string) error {
	if !s.limiter.AllowN(s.clk.Now(), 1) {
		return ErrUnlockThrottled
	}
	// Stretching is slow on purpose; keep it outside the mutex.
	key := s.prim.PassphraseToKey(passphrase, s.cfg.KDFSalt)

	s.mu.Lock()
	defer s.mu.Unlock()
	kcrypto.ZeroBytes(s.ephemeralKey)
	s.ephemeralKey = key
	s.unlocked = true
	if s.autoLock != nil {
		s.autoLock.Stop()
	}
	// Stop misses a timer whose callback is already dispatched; the
	// generation check in onAutoLock keeps such a stale callback from
	// wiping the fresh session.
	s.lockGen++
	gen := s.lockGen
	s.autoLock = s.clk.AfterFunc(s.cfg.AutoLockTimeout, func() { s.onAutoLock(gen) })
	s.metrics.unlocks.Inc()
	s.log.Debug("keystore unlocked", "timeout", s.cfg.AutoLockTimeout.String())
	return nil
}

// Lock discards the ephemeral key and cancels the auto-lock timer. It
// reports ErrLocked if the store is already locked.
func (s *Store) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked {
		return ErrLocked
	}
	if s.autoLock != nil {
		s.autoLock.Stop()
		s.autoLock = nil
	}
	s.dropKeyLocked()
	s.log.Debug("keystore locked")
	return nil
}

// IsUnlocked reports whether key-touching operations may proceed.
func (s *Store) IsUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked
}

func (s *Store) onAutoLock(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked || gen != s.lockGen {
		return
	}
	s.autoLock = nil
	s.dropKeyLocked()
	s.metrics.autoLocks.Inc()
	s.log.Debug("keystore auto-locked")
}

func (s *Store) dropKeyLocked() {
	kcrypto.ZeroBytes(s.ephemeralKey)
	s.ephemeralKey = nil
	s.unlocked = false
}

// sessionKey returns a copy of the ephemeral key, or ErrLocked. Operations
// work on the copy so an auto-lock firing mid-operation cannot pull the key
// out from under them.
func (s *Store) sessionKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked {
		return nil, ErrLocked
	}
	return append([]byte(nil), s.ephemeralKey...), nil
}

func (s *Store) persist(key, value string) error {
	if err := s.storage.Insert(key, value); err != nil {
		return fmt.Errorf("keystore: persist %s: %w", key, err)
	}
	return nil
}
