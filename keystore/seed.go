package keystore

import (
	"errors"
	"fmt"

	"github.com/kanthgithub/iden3js/db"
)

// GenerateMasterSeed creates a fresh random master seed and persists it
// encrypted. Fails with ErrSeedExists if one is already stored.
func (s *Store) GenerateMasterSeed() error {
	mnemonic, err := s.prim.GenerateMnemonic()
	if err != nil {
		return fmt.Errorf("keystore: generate mnemonic: %w", err)
	}
	return s.SetMasterSeed(mnemonic)
}

// SetMasterSeed stores the given mnemonic as the master seed. The seed is
// created once; use ReplaceMasterSeed for an explicit re-seed.
func (s *Store) SetMasterSeed(mnemonic string) error {
	key, err := s.sessionKey()
	if err != nil {
		return err
	}
	if !s.prim.ValidateMnemonic(mnemonic) {
		return ErrInvalidMnemonic
	}
	_, err = s.storage.Get(masterSeedKey)
	switch {
	case err == nil:
		return ErrSeedExists
	case errors.Is(err, db.ErrKeyNotFound):
	default:
		return fmt.Errorf("keystore: load %s: %w", masterSeedKey, err)
	}
	return s.writeMasterSeed(key, mnemonic)
}

// ReplaceMasterSeed overwrites the master seed. Derived records are left in
// place; callers re-seeding a store normally wipe it first.
func (s *Store) ReplaceMasterSeed(mnemonic string) error {
	key, err := s.sessionKey()
	if err != nil {
		return err
	}
	if !s.prim.ValidateMnemonic(mnemonic) {
		return ErrInvalidMnemonic
	}
	return s.writeMasterSeed(key, mnemonic)
}

// GetMasterSeed decrypts and returns the master seed mnemonic.
func (s *Store) GetMasterSeed() (string, error) {
	key, err := s.sessionKey()
	if err != nil {
		return "", err
	}
	return s.getEncrypted(key, masterSeedKey)
}

func (s *Store) writeMasterSeed(key []byte, mnemonic string) error {
	enc, err := s.prim.Encrypt(key, []byte(mnemonic))
	if err != nil {
		return fmt.Errorf("keystore: encrypt master seed: %w", err)
	}
	if err := s.persist(masterSeedKey, enc); err != nil {
		return err
	}
	s.log.Info("master seed stored")
	return nil
}

// getEncrypted loads and decrypts one stored value, mapping an absent key
// to ErrNotFound and a failed decrypt to ErrDecryptionFailed.
func (s *Store) getEncrypted(key []byte, storageKey string) (string, error) {
	raw, err := s.storage.Get(storageKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keystore: load %s: %w", storageKey, err)
	}
	plain, err := s.prim.Decrypt(key, raw)
	if err != nil {
		s.metrics.decryptFailures.Inc()
		return "", fmt.Errorf("%w: %s", ErrDecryptionFailed, storageKey)
	}
	return string(plain), nil
}
