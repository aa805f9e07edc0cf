package jws

import (
	"crypto/ed25519"

	"github.com/peacprotocol/peac-go/cryptoerr"
)

// Ed25519PublicKey pairs a public key with the kid that resolved it.
type Ed25519PublicKey struct {
	Key ed25519.PublicKey
	KID string
}

// VerifyEd25519 verifies an Ed25519 signature over message. Key and
// signature lengths are checked before the constant-time verify call.
func VerifyEd25519(publicKey ed25519.PublicKey, message, signature []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return cryptoerr.New(cryptoerr.InvalidKeyLength, "invalid public key size")
	}
	if len(signature) != ed25519.SignatureSize {
		return cryptoerr.New(cryptoerr.InvalidSignature, "invalid signature size")
	}
	if !ed25519.Verify(publicKey, message, signature) {
		return cryptoerr.New(cryptoerr.InvalidSignature, "signature verification failed")
	}
	return nil
}

// VerifyJWS verifies a parsed JWS using Ed25519. Callers must run
// ValidateHeader first; VerifyJWS re-checks alg defensively but does not
// re-check typ.
func VerifyJWS(jws *ParsedJWS, publicKey ed25519.PublicKey) error {
	if jws.Header.Algorithm != Algorithm {
		return cryptoerr.New(cryptoerr.InvalidAlg, "unsupported algorithm: "+jws.Header.Algorithm)
	}
	return VerifyEd25519(publicKey, jws.SigningInput, jws.Signature)
}

// ParsePublicKeyFromBytes parses a raw 32-byte Ed25519 public key.
func ParsePublicKeyFromBytes(data []byte) (ed25519.PublicKey, error) {
	if len(data) != ed25519.PublicKeySize {
		return nil, cryptoerr.New(cryptoerr.InvalidKeyLength, "invalid public key size")
	}
	return ed25519.PublicKey(data), nil
}
