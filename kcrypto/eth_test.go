package kcrypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestMnemonicLifecycle(t *testing.T) {
	p := NewEthProvider()
	mnemonic, err := p.GenerateMnemonic()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !p.ValidateMnemonic(mnemonic) {
		t.Fatal("generated mnemonic must validate")
	}
	if p.ValidateMnemonic("definitely not a mnemonic") {
		t.Fatal("garbage must not validate")
	}
	if _, err := p.MnemonicToSeed("garbage words here"); err == nil {
		t.Fatal("expected error for invalid mnemonic")
	}
}

func TestDeriveChildDeterministic(t *testing.T) {
	p := NewEthProvider()
	seed, err := p.MnemonicToSeed(testMnemonic)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	a, err := p.DeriveChild(seed, "m/44'/60'/0'/0/0")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	b, err := p.DeriveChild(seed, "m/44'/60'/0'/0/0")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if !bytes.Equal(a.PrivateKey, b.PrivateKey) {
		t.Fatal("same path must derive the same private key")
	}
	c, err := p.DeriveChild(seed, "m/44'/60'/0'/0/1")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if bytes.Equal(a.PrivateKey, c.PrivateKey) {
		t.Fatal("sibling paths must derive distinct keys")
	}
}

func TestAddressShape(t *testing.T) {
	p := NewEthProvider()
	seed, err := p.MnemonicToSeed(testMnemonic)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	kp, err := p.DeriveChild(seed, "m/44'/60'/0'/0/0")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	addr, err := p.AddressFromPublicKey(kp.PublicKey)
	if err != nil {
		t.Fatalf("address failed: %v", err)
	}
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		t.Fatalf("unexpected address shape: %q", addr)
	}
	if _, err := p.AddressFromPublicKey([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated public key")
	}
	got, err := p.CanonicalAddress(strings.ToLower(addr))
	if err != nil {
		t.Fatalf("canonical address failed: %v", err)
	}
	if got != addr {
		t.Fatalf("lowercased address did not round-trip: %q vs %q", got, addr)
	}
}

func TestCanonicalAddress(t *testing.T) {
	p := NewEthProvider()
	// EIP-55 reference vector.
	const want = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	for _, in := range []string{
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED",
	} {
		got, err := p.CanonicalAddress(in)
		if err != nil {
			t.Fatalf("canonical address %q failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	}
	if _, err := p.CanonicalAddress("not-an-address"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestSignAndRecover(t *testing.T) {
	p := NewEthProvider()
	seed, err := p.MnemonicToSeed(testMnemonic)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	kp, err := p.DeriveChild(seed, "m/44'/60'/0'/0/0")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	addr, err := p.AddressFromPublicKey(kp.PublicKey)
	if err != nil {
		t.Fatalf("address failed: %v", err)
	}

	hash := p.PersonalMessageHash([]byte("hello"))
	if len(hash) != 32 {
		t.Fatalf("hash length %d", len(hash))
	}
	sig, err := p.Sign(hash, kp.PrivateKey)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if sig.V != 27 && sig.V != 28 {
		t.Fatalf("unexpected recovery id %d", sig.V)
	}
	recovered, err := RecoverAddress(hash, sig)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if recovered != addr {
		t.Fatalf("recovered %s, want %s", recovered, addr)
	}
}

func TestPublicKeyFromPrivate(t *testing.T) {
	p := NewEthProvider()
	seed, err := p.MnemonicToSeed(testMnemonic)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	kp, err := p.DeriveChild(seed, "m/44'/60'/0'/0/3")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	pub, err := p.PublicKeyFromPrivate(kp.PrivateKey)
	if err != nil {
		t.Fatalf("pub from priv failed: %v", err)
	}
	if !bytes.Equal(pub, kp.PublicKey) {
		t.Fatal("recomputed public key must match derived one")
	}
}

func TestKeySeedEncoding(t *testing.T) {
	p := NewEthProvider()
	seed, err := p.MnemonicToSeed(testMnemonic)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	kp, err := p.DeriveChild(seed, "m/44'/60'/0'")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	entropy := p.EntropyFromPrivateKey(kp.PrivateKey)
	mnemonic, err := p.MnemonicFromEntropy(entropy)
	if err != nil {
		t.Fatalf("mnemonic from entropy failed: %v", err)
	}
	if !p.ValidateMnemonic(mnemonic) {
		t.Fatal("key-seed mnemonic must validate")
	}
	again, err := p.MnemonicFromEntropy(p.EntropyFromPrivateKey(kp.PrivateKey))
	if err != nil || again != mnemonic {
		t.Fatal("key-seed encoding must be deterministic")
	}
}
