package keystore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kanthgithub/iden3js/kcrypto"
)

// profileKeyCount is how many child keys one identity profile carries:
// operational, revocation and reenable keys.
const profileKeyCount = 3

// randKeyPath is the derivation path for keys generated from throwaway
// randomness outside the main hierarchy.
const randKeyPath = "m/44'/60'/0'/0/0"

// Profile identifies the keys generated for one identity profile.
type Profile struct {
	// Index is the path-counter value the profile was derived at.
	Index uint32
	// Addresses are the EIP-55 addresses of the derived keys, keyIndex
	// order preserved.
	Addresses []string
	// PublicKey is the uncompressed public key hex of the keyIndex-0 key,
	// which is additionally stored under this identifier.
	PublicKey string
}

// CreateKeys derives one full identity profile at the current path counter:
// three child keys persisted under their addresses, the first also under
// its raw public key, then bumps the counter once. On any persistence
// failure the inserted keys are rolled back and the counter is untouched.
func (s *Store) CreateKeys() (*Profile, error) {
	key, err := s.sessionKey()
	if err != nil {
		return nil, err
	}
	keySeed, counter, err := s.readKeySeed(key)
	if errors.Is(err, ErrNotFound) {
		keySeed, counter, err = s.bootstrapKeySeed(key)
	}
	if err != nil {
		return nil, err
	}

	seed, err := s.prim.MnemonicToSeed(keySeed)
	if err != nil {
		return nil, fmt.Errorf("keystore: corrupt key seed: %w", err)
	}
	defer kcrypto.ZeroBytes(seed)

	profile := &Profile{Index: counter}
	var inserted []string
	rollback := func() {
		for _, k := range inserted {
			if derr := s.storage.Delete(k); derr != nil {
				s.log.Warn("rollback delete failed", "entry", k, "err", derr.Error())
			}
		}
	}

	for i := uint32(0); i < profileKeyCount; i++ {
		kp, err := s.prim.DeriveChild(seed, fmt.Sprintf("m/%d/%d", counter, i))
		if err != nil {
			rollback()
			return nil, fmt.Errorf("keystore: derive profile %d key %d: %w", counter, i, err)
		}
		addr, err := s.prim.AddressFromPublicKey(kp.PublicKey)
		if err != nil {
			kcrypto.ZeroBytes(kp.PrivateKey)
			rollback()
			return nil, err
		}
		enc, err := s.prim.Encrypt(key, []byte(hex.EncodeToString(kp.PrivateKey)))
		kcrypto.ZeroBytes(kp.PrivateKey)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("keystore: encrypt profile key: %w", err)
		}
		addrEntry := keysPrefix + normalizeAddr(addr)
		if err := s.persist(addrEntry, enc); err != nil {
			rollback()
			return nil, err
		}
		inserted = append(inserted, addrEntry)
		if i == 0 {
			pubID := hex.EncodeToString(kp.PublicKey)
			pubEntry := keysPrefix + pubID
			if err := s.persist(pubEntry, enc); err != nil {
				rollback()
				return nil, err
			}
			inserted = append(inserted, pubEntry)
			profile.PublicKey = pubID
		}
		profile.Addresses = append(profile.Addresses, addr)
	}

	if err := s.writeKeySeed(key, keySeed, counter+1); err != nil {
		rollback()
		return nil, err
	}
	s.log.Info("identity profile created", "profile", counter)
	return profile, nil
}

// bootstrapKeySeed lazily generates the key seed record from the stored
// master seed the first time CreateKeys runs.
func (s *Store) bootstrapKeySeed(key []byte) (string, uint32, error) {
	master, err := s.getEncrypted(key, masterSeedKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", 0, fmt.Errorf("%w: master seed", ErrNotFound)
		}
		return "", 0, err
	}
	keySeed, err := s.deriveKeySeed(master)
	if err != nil {
		return "", 0, err
	}
	if err := s.writeKeySeed(key, keySeed, 0); err != nil {
		return "", 0, err
	}
	return keySeed, 0, nil
}

// GenerateSingleKey derives and persists one key at the caller-supplied
// profile/key coordinates without touching the path counter.
func (s *Store) GenerateSingleKey(profileIndex, keyIndex uint32) (string, error) {
	key, err := s.sessionKey()
	if err != nil {
		return "", err
	}
	keySeed, _, err := s.readKeySeed(key)
	if err != nil {
		return "", err
	}
	seed, err := s.prim.MnemonicToSeed(keySeed)
	if err != nil {
		return "", fmt.Errorf("keystore: corrupt key seed: %w", err)
	}
	defer kcrypto.ZeroBytes(seed)
	kp, err := s.prim.DeriveChild(seed, fmt.Sprintf("m/%d/%d", profileIndex, keyIndex))
	if err != nil {
		return "", fmt.Errorf("keystore: derive key (%d,%d): %w", profileIndex, keyIndex, err)
	}
	defer kcrypto.ZeroBytes(kp.PrivateKey)
	return s.storeKeyPair(key, kp)
}

// GenerateKeyRand derives and persists one key from fresh randomness,
// outside the hierarchy rooted at the master seed.
func (s *Store) GenerateKeyRand() (string, error) {
	key, err := s.sessionKey()
	if err != nil {
		return "", err
	}
	mnemonic, err := s.prim.GenerateMnemonic()
	if err != nil {
		return "", fmt.Errorf("keystore: generate entropy: %w", err)
	}
	seed, err := s.prim.MnemonicToSeed(mnemonic)
	if err != nil {
		return "", err
	}
	defer kcrypto.ZeroBytes(seed)
	kp, err := s.prim.DeriveChild(seed, randKeyPath)
	if err != nil {
		return "", fmt.Errorf("keystore: derive random key: %w", err)
	}
	defer kcrypto.ZeroBytes(kp.PrivateKey)
	return s.storeKeyPair(key, kp)
}

// ImportKey brings an externally-generated private key under the store's
// encryption and returns its address.
func (s *Store) ImportKey(privateKeyHex string) (string, error) {
	key, err := s.sessionKey()
	if err != nil {
		return "", err
	}
	clean := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	priv, err := hex.DecodeString(clean)
	if err != nil || len(priv) != 32 {
		return "", fmt.Errorf("keystore: invalid private key hex")
	}
	defer kcrypto.ZeroBytes(priv)
	pub, err := s.prim.PublicKeyFromPrivate(priv)
	if err != nil {
		return "", err
	}
	addr, err := s.prim.AddressFromPublicKey(pub)
	if err != nil {
		return "", err
	}
	enc, err := s.prim.Encrypt(key, []byte(clean))
	if err != nil {
		return "", fmt.Errorf("keystore: encrypt imported key: %w", err)
	}
	if err := s.persist(keysPrefix+normalizeAddr(addr), enc); err != nil {
		return "", err
	}
	s.log.Info("key imported", "address", addr)
	return addr, nil
}

// ListKeys returns every stored key identifier (address hex, plus the raw
// public-key hex alias of each profile's first key), sorted.
func (s *Store) ListKeys() ([]string, error) {
	keys, err := s.storage.ListKeys(keysPrefix)
	if err != nil {
		return nil, fmt.Errorf("keystore: list keys: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, keysPrefix))
	}
	sort.Strings(out)
	return out, nil
}

// DeleteKey removes the entry stored under address. No key material is
// read, so the store may be locked.
func (s *Store) DeleteKey(address string) error {
	if err := s.storage.Delete(keysPrefix + normalizeAddr(address)); err != nil {
		return fmt.Errorf("keystore: delete %s: %w", address, err)
	}
	return nil
}

// DeleteAll wipes the whole store namespace, including seeds and recovery
// entries.
func (s *Store) DeleteAll() error {
	if err := s.storage.DeleteAll(); err != nil {
		return fmt.Errorf("keystore: delete all: %w", err)
	}
	return nil
}

func (s *Store) storeKeyPair(key []byte, kp kcrypto.KeyPair) (string, error) {
	addr, err := s.prim.AddressFromPublicKey(kp.PublicKey)
	if err != nil {
		return "", err
	}
	enc, err := s.prim.Encrypt(key, []byte(hex.EncodeToString(kp.PrivateKey)))
	if err != nil {
		return "", fmt.Errorf("keystore: encrypt key: %w", err)
	}
	if err := s.persist(keysPrefix+normalizeAddr(addr), enc); err != nil {
		return "", err
	}
	return addr, nil
}

// normalizeAddr canonicalizes an address for use as a storage key.
func normalizeAddr(addr string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(addr), "0x"))
}
