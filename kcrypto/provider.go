// Package kcrypto bundles the cryptographic primitives the keystore
// consumes: mnemonic handling, hierarchical child derivation, symmetric
// value encryption and recoverable secp256k1 signatures.
package kcrypto

import "errors"

var (
	ErrDecryptionFailed = errors.New("kcrypto: decryption failed")
	ErrInvalidKey       = errors.New("kcrypto: invalid key material")
)

// KeyPair holds one derived keypair. PrivateKey is the raw 32-byte scalar,
// PublicKey the 65-byte uncompressed SEC1 encoding.
type KeyPair struct {
	PrivateKey []byte
	PublicKey  []byte
}

// Signature is a recoverable ECDSA signature in Ethereum convention
// (V = 27 + recovery id).
type Signature struct {
	V byte
	R []byte
	S []byte
}

// Provider is the fixed primitive surface the keystore is written
// against. The default implementation is EthProvider; tests may substitute
// deterministic fakes.
type Provider interface {
	GenerateMnemonic() (string, error)
	ValidateMnemonic(mnemonic string) bool
	// MnemonicToSeed stretches a mnemonic into the binary seed that roots
	// hierarchical derivation.
	MnemonicToSeed(mnemonic string) ([]byte, error)
	// EntropyFromPrivateKey reinterprets a derived private key as mnemonic
	// entropy, so an intermediate seed can itself be mnemonic-encoded.
	EntropyFromPrivateKey(priv []byte) []byte
	MnemonicFromEntropy(entropy []byte) (string, error)

	// DeriveChild derives the keypair at path (e.g. "m/44'/60'/0'/0/1")
	// below the given root seed.
	DeriveChild(seed []byte, path string) (KeyPair, error)
	AddressFromPublicKey(pub []byte) (string, error)
	// CanonicalAddress re-renders a hex address, with or without the 0x
	// prefix, into the same checksummed form AddressFromPublicKey emits.
	CanonicalAddress(addr string) (string, error)
	// PublicKeyFromPrivate recomputes the uncompressed public key, used
	// when importing externally-generated private keys.
	PublicKeyFromPrivate(priv []byte) ([]byte, error)

	// PassphraseToKey stretches a passphrase into a 32-byte symmetric key.
	// The salt is fixed per store so repeated unlocks agree.
	PassphraseToKey(passphrase, salt string) []byte
	Encrypt(key, plaintext []byte) (string, error)
	// Decrypt reports ErrDecryptionFailed on a wrong key or corrupt input,
	// never garbage plaintext.
	Decrypt(key []byte, ciphertext string) ([]byte, error)

	Sign(hash, priv []byte) (Signature, error)
	// PersonalMessageHash hashes data under the length-prefixed personal
	// message convention, keeping message signatures distinct from
	// transaction signatures.
	PersonalMessageHash(data []byte) []byte
}
