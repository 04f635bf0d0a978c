package kcrypto

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	kdfTime    = uint32(2)
	kdfMemKB   = uint32(64 * 1024)
	kdfThreads = uint8(1)
)

// stretchKey derives a chacha20poly1305 key from a passphrase with argon2id.
func stretchKey(passphrase, salt string) []byte {
	return argon2.IDKey([]byte(passphrase), []byte(salt), kdfTime, kdfMemKB, kdfThreads, chacha20poly1305.KeySize)
}

// sealValue encrypts plaintext under key and encodes nonce||ciphertext as
// base64 so the result can live in a string-valued store.
func sealValue(key, plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", ErrInvalidKey
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func openValue(key []byte, ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return nil, ErrDecryptionFailed
	}
	nonce, sealed := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// ZeroBytes wipes b in place. Callers use it on transient plaintext keys.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
