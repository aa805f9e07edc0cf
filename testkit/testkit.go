// Package testkit provides test-only cryptographic helpers: deterministic
// Ed25519 key generation from a human-readable label. It has no clock or
// ID generator helpers. None of
// this is suitable for production key management -- it exists so tests
// across the module can share one way of getting "the same key" twice.
package testkit

import (
	"crypto/ed25519"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/peacprotocol/peac-go/jws"
)

// deterministicSeedInfo binds the derived key material to this
// package's purpose, so a label used here can never collide with a key
// derived the same way for a different purpose.
const deterministicSeedInfo = "peac-go/testkit/ed25519-seed/v1"

// DeterministicSeed derives a 32-byte Ed25519 seed from label using
// HKDF-SHA256. The same label always yields the same seed; different
// labels are independent for all practical purposes.
func DeterministicSeed(label string) ([]byte, error) {
	kdf := hkdf.New(sha256.New, []byte(label), nil, []byte(deterministicSeedInfo))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(kdf, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// SigningKey returns the deterministic signing key for label, with
// keyID used as the JWS kid. Tests that need "the publisher's key" and
// "the same publisher's key again" should call this with the same
// label both times rather than generating and threading a key by hand.
func SigningKey(label, keyID string) (*jws.SigningKey, error) {
	seed, err := DeterministicSeed(label)
	if err != nil {
		return nil, err
	}
	return jws.NewSigningKeyFromSeed(seed, keyID)
}

// MustSigningKey is like SigningKey but panics on error. Use only in
// tests and fixture setup.
func MustSigningKey(label, keyID string) *jws.SigningKey {
	key, err := SigningKey(label, keyID)
	if err != nil {
		panic(err)
	}
	return key
}

// KeyPair returns the raw seed-derived Ed25519 key pair for label,
// for callers that need the bytes directly (e.g. to build a JWKS
// fixture) rather than a *jws.SigningKey.
func KeyPair(label string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	seed, err := DeterministicSeed(label)
	if err != nil {
		return nil, nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), priv, nil
}
