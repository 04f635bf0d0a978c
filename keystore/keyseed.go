package keystore

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kanthgithub/iden3js/db"
	"github.com/kanthgithub/iden3js/kcrypto"
)

// keySeedRecord is the persisted layout of the key seed and its path
// counter; both fields are ciphertext.
type keySeedRecord struct {
	KeySeed     string `json:"keySeedEncrypted"`
	PathKeySeed string `json:"pathKeySeedEncrypted"`
}

// The counter is a 4-byte big-endian value rendered as hex before
// encryption.
func encodeCounter(n uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return hex.EncodeToString(b[:])
}

func decodeCounter(s string) (uint32, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 4 {
		return 0, fmt.Errorf("keystore: corrupt path counter %q", s)
	}
	return binary.BigEndian.Uint32(raw), nil
}

// GenerateKeySeed derives the key seed from the master seed at the
// configured coin-level path, re-encodes it as a mnemonic and persists it
// with the path counter reset to zero, replacing any prior record.
func (s *Store) GenerateKeySeed(masterSeed string) error {
	key, err := s.sessionKey()
	if err != nil {
		return err
	}
	if !s.prim.ValidateMnemonic(masterSeed) {
		return ErrInvalidMnemonic
	}
	keySeed, err := s.deriveKeySeed(masterSeed)
	if err != nil {
		return err
	}
	return s.writeKeySeed(key, keySeed, 0)
}

func (s *Store) deriveKeySeed(masterSeed string) (string, error) {
	seed, err := s.prim.MnemonicToSeed(masterSeed)
	if err != nil {
		return "", ErrInvalidMnemonic
	}
	defer kcrypto.ZeroBytes(seed)
	kp, err := s.prim.DeriveChild(seed, s.cfg.KeySeedPath)
	if err != nil {
		return "", fmt.Errorf("keystore: derive key seed: %w", err)
	}
	defer kcrypto.ZeroBytes(kp.PrivateKey)
	entropy := s.prim.EntropyFromPrivateKey(kp.PrivateKey)
	defer kcrypto.ZeroBytes(entropy)
	mnemonic, err := s.prim.MnemonicFromEntropy(entropy)
	if err != nil {
		return "", fmt.Errorf("keystore: encode key seed: %w", err)
	}
	return mnemonic, nil
}

// GetKeySeed returns the decrypted key seed mnemonic and the current path
// counter, or ErrNotFound when no record has been generated yet.
func (s *Store) GetKeySeed() (string, uint32, error) {
	key, err := s.sessionKey()
	if err != nil {
		return "", 0, err
	}
	return s.readKeySeed(key)
}

// IncreaseKeyPath bumps the path counter by exactly one. Callers invoke it
// once per logical profile creation.
func (s *Store) IncreaseKeyPath() error {
	key, err := s.sessionKey()
	if err != nil {
		return err
	}
	keySeed, counter, err := s.readKeySeed(key)
	if err != nil {
		return err
	}
	return s.writeKeySeed(key, keySeed, counter+1)
}

func (s *Store) readKeySeed(key []byte) (string, uint32, error) {
	raw, err := s.storage.Get(keySeedKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("keystore: load %s: %w", keySeedKey, err)
	}
	var rec keySeedRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return "", 0, fmt.Errorf("keystore: corrupt key seed record: %w", err)
	}
	seed, err := s.prim.Decrypt(key, rec.KeySeed)
	if err != nil {
		s.metrics.decryptFailures.Inc()
		return "", 0, fmt.Errorf("%w: key seed", ErrDecryptionFailed)
	}
	counterHex, err := s.prim.Decrypt(key, rec.PathKeySeed)
	if err != nil {
		s.metrics.decryptFailures.Inc()
		return "", 0, fmt.Errorf("%w: path counter", ErrDecryptionFailed)
	}
	counter, err := decodeCounter(string(counterHex))
	if err != nil {
		return "", 0, err
	}
	return string(seed), counter, nil
}

func (s *Store) writeKeySeed(key []byte, keySeed string, counter uint32) error {
	encSeed, err := s.prim.Encrypt(key, []byte(keySeed))
	if err != nil {
		return fmt.Errorf("keystore: encrypt key seed: %w", err)
	}
	encCounter, err := s.prim.Encrypt(key, []byte(encodeCounter(counter)))
	if err != nil {
		return fmt.Errorf("keystore: encrypt path counter: %w", err)
	}
	raw, err := json.Marshal(keySeedRecord{KeySeed: encSeed, PathKeySeed: encCounter})
	if err != nil {
		return fmt.Errorf("keystore: encode key seed record: %w", err)
	}
	return s.persist(keySeedKey, string(raw))
}
