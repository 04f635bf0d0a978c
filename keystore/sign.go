package keystore

import (
	"encoding/hex"
	"fmt"

	"github.com/kanthgithub/iden3js/kcrypto"
)

// SignatureEnvelope carries a message, its personal-message hash and the
// recoverable signature components, enough for a verifier to recover the
// signing address without the private key.
type SignatureEnvelope struct {
	Message     []byte `json:"message"`
	MessageHash []byte `json:"messageHash"`
	V           byte   `json:"v"`
	R           []byte `json:"r"`
	S           []byte `json:"s"`
}

// SignatureHex renders the signature as 0x-prefixed r||s||v hex.
func (e *SignatureEnvelope) SignatureHex() string {
	raw := make([]byte, 0, 65)
	raw = append(raw, e.R...)
	raw = append(raw, e.S...)
	raw = append(raw, e.V)
	return "0x" + hex.EncodeToString(raw)
}

// RecoverAddress recovers the signing address from the envelope.
func (e *SignatureEnvelope) RecoverAddress() (string, error) {
	return kcrypto.RecoverAddress(e.MessageHash, kcrypto.Signature{V: e.V, R: e.R, S: e.S})
}

// Sign looks up the private key stored under address, hashes data with the
// personal-message convention and signs the hash. The lock check precedes
// any storage read.
func (s *Store) Sign(address string, data []byte) (*SignatureEnvelope, error) {
	key, err := s.sessionKey()
	if err != nil {
		return nil, err
	}
	privHex, err := s.getEncrypted(key, keysPrefix+normalizeAddr(address))
	if err != nil {
		return nil, err
	}
	priv, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, fmt.Errorf("keystore: corrupt stored key for %s", address)
	}
	defer kcrypto.ZeroBytes(priv)

	hash := s.prim.PersonalMessageHash(data)
	sig, err := s.prim.Sign(hash, priv)
	if err != nil {
		return nil, fmt.Errorf("keystore: sign: %w", err)
	}
	s.metrics.signatures.Inc()
	s.log.Debug("message signed", "address", address)
	return &SignatureEnvelope{
		Message:     append([]byte(nil), data...),
		MessageHash: hash,
		V:           sig.V,
		R:           sig.R,
		S:           sig.S,
	}, nil
}
