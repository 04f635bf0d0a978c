package keystore

import "errors"

var (
	// ErrLocked guards every key-touching operation: the store must be
	// unlocked with the passphrase first.
	ErrLocked = errors.New("keystore: store is locked")

	ErrInvalidMnemonic = errors.New("keystore: invalid mnemonic")

	// ErrNotFound reports an absent record. It is never returned for an
	// unreachable backend; those failures wrap the storage error instead.
	ErrNotFound = errors.New("keystore: not found")

	// ErrDecryptionFailed reports a wrong ephemeral key or corrupt
	// ciphertext. Distinct from ErrNotFound so callers can re-prompt the
	// passphrase instead of treating the record as missing.
	ErrDecryptionFailed = errors.New("keystore: decryption failed")

	ErrMalformedBackup = errors.New("keystore: malformed backup payload")

	// ErrSeedExists rejects overwriting the master seed outside an
	// explicit re-seed.
	ErrSeedExists = errors.New("keystore: master seed already present")

	// ErrRecoveryExists rejects a second recovery keypair; the store
	// keeps at most one.
	ErrRecoveryExists = errors.New("keystore: recovery key already present")

	// ErrUnlockThrottled reports that unlock attempts arrive faster than
	// the configured rate allows.
	ErrUnlockThrottled = errors.New("keystore: too many unlock attempts")
)
