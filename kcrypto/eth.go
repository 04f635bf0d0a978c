package kcrypto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("kcrypto: invalid mnemonic")

const mnemonicEntropyBits = 128

// EthProvider implements Provider on the Ethereum stack: BIP-39 mnemonics,
// BIP-32 child derivation, Keccak-256 addresses and recoverable secp256k1
// signatures over the personal-message convention.
type EthProvider struct{}

func NewEthProvider() *EthProvider {
	return &EthProvider{}
}

func (p *EthProvider) GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

func (p *EthProvider) ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(mnemonic))
}

func (p *EthProvider) MnemonicToSeed(mnemonic string) ([]byte, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.NewSeed(mnemonic, ""), nil
}

func (p *EthProvider) EntropyFromPrivateKey(priv []byte) []byte {
	return append([]byte(nil), priv...)
}

func (p *EthProvider) MnemonicFromEntropy(entropy []byte) (string, error) {
	return bip39.NewMnemonic(entropy)
}

func (p *EthProvider) DeriveChild(seed []byte, path string) (KeyPair, error) {
	parsed, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return KeyPair{}, fmt.Errorf("kcrypto: parse path %q: %w", path, err)
	}
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return KeyPair{}, fmt.Errorf("kcrypto: master key: %w", err)
	}
	for _, n := range parsed {
		key, err = key.Derive(n)
		if err != nil {
			return KeyPair{}, fmt.Errorf("kcrypto: derive %q: %w", path, err)
		}
	}
	ecPriv, err := key.ECPrivKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("kcrypto: private key at %q: %w", path, err)
	}
	priv := ecPriv.ToECDSA()
	return KeyPair{
		PrivateKey: crypto.FromECDSA(priv),
		PublicKey:  crypto.FromECDSAPub(&priv.PublicKey),
	}, nil
}

func (p *EthProvider) AddressFromPublicKey(pub []byte) (string, error) {
	switch len(pub) {
	case 65:
		pk, err := crypto.UnmarshalPubkey(pub)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return crypto.PubkeyToAddress(*pk).Hex(), nil
	case 33:
		pk, err := crypto.DecompressPubkey(pub)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return crypto.PubkeyToAddress(*pk).Hex(), nil
	default:
		return "", fmt.Errorf("%w: public key length %d", ErrInvalidKey, len(pub))
	}
}

func (p *EthProvider) CanonicalAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: address %q", ErrInvalidKey, addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}

func (p *EthProvider) PublicKeyFromPrivate(priv []byte) ([]byte, error) {
	key, err := crypto.ToECDSA(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return crypto.FromECDSAPub(&key.PublicKey), nil
}

func (p *EthProvider) PassphraseToKey(passphrase, salt string) []byte {
	return stretchKey(passphrase, salt)
}

func (p *EthProvider) Encrypt(key, plaintext []byte) (string, error) {
	return sealValue(key, plaintext)
}

func (p *EthProvider) Decrypt(key []byte, ciphertext string) ([]byte, error) {
	return openValue(key, ciphertext)
}

func (p *EthProvider) Sign(hash, priv []byte) (Signature, error) {
	key, err := crypto.ToECDSA(priv)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return Signature{}, fmt.Errorf("kcrypto: sign: %w", err)
	}
	return Signature{
		R: append([]byte(nil), sig[:32]...),
		S: append([]byte(nil), sig[32:64]...),
		V: sig[64] + 27,
	}, nil
}

func (p *EthProvider) PersonalMessageHash(data []byte) []byte {
	return accounts.TextHash(data)
}

// RecoverAddress recovers the signing address from a personal-message hash
// and a Signature, letting verifiers check envelopes without key material.
func RecoverAddress(hash []byte, sig Signature) (string, error) {
	if len(sig.R) != 32 || len(sig.S) != 32 || sig.V < 27 {
		return "", fmt.Errorf("%w: malformed signature", ErrInvalidKey)
	}
	raw := make([]byte, 65)
	copy(raw[:32], sig.R)
	copy(raw[32:64], sig.S)
	raw[64] = sig.V - 27
	pk, err := crypto.SigToPub(hash, raw)
	if err != nil {
		return "", fmt.Errorf("kcrypto: recover: %w", err)
	}
	return crypto.PubkeyToAddress(*pk).Hex(), nil
}
