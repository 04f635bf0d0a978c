package keystore

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/kanthgithub/iden3js/kcrypto"
)

// GenerateRecoveryAddress derives one keypair at the recovery path directly
// from the master seed and persists it under the recovery namespace. The
// store keeps at most one recovery keypair; a second call fails with
// ErrRecoveryExists.
func (s *Store) GenerateRecoveryAddress(masterSeed string) (string, error) {
	key, err := s.sessionKey()
	if err != nil {
		return "", err
	}
	if !s.prim.ValidateMnemonic(masterSeed) {
		return "", ErrInvalidMnemonic
	}
	existing, err := s.storage.ListKeys(recoveryPrefix)
	if err != nil {
		return "", fmt.Errorf("keystore: list recovery entries: %w", err)
	}
	if len(existing) > 0 {
		return "", ErrRecoveryExists
	}

	seed, err := s.prim.MnemonicToSeed(masterSeed)
	if err != nil {
		return "", ErrInvalidMnemonic
	}
	defer kcrypto.ZeroBytes(seed)
	kp, err := s.prim.DeriveChild(seed, s.cfg.RecoveryPath)
	if err != nil {
		return "", fmt.Errorf("keystore: derive recovery key: %w", err)
	}
	defer kcrypto.ZeroBytes(kp.PrivateKey)

	addr, err := s.prim.AddressFromPublicKey(kp.PublicKey)
	if err != nil {
		return "", err
	}
	enc, err := s.prim.Encrypt(key, []byte(hex.EncodeToString(kp.PrivateKey)))
	if err != nil {
		return "", fmt.Errorf("keystore: encrypt recovery key: %w", err)
	}
	if err := s.persist(recoveryPrefix+normalizeAddr(addr), enc); err != nil {
		return "", err
	}
	s.log.Info("recovery key stored", "address", addr)
	return addr, nil
}

// GetRecoveryAddress returns the stored recovery address, checksummed the
// same way GenerateRecoveryAddress rendered it, or ErrNotFound. Listing
// order is pinned by sorting so the result is stable even against legacy
// stores holding more than one entry.
func (s *Store) GetRecoveryAddress() (string, error) {
	keys, err := s.storage.ListKeys(recoveryPrefix)
	if err != nil {
		return "", fmt.Errorf("keystore: list recovery entries: %w", err)
	}
	if len(keys) == 0 {
		return "", ErrNotFound
	}
	sort.Strings(keys)
	return s.prim.CanonicalAddress(strings.TrimPrefix(keys[0], recoveryPrefix))
}
