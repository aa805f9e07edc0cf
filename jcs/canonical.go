// Package jcs implements RFC 8785 JSON Canonicalization Scheme on top of
// gowebpki/jcs, plus the SHA-256 digest helper used throughout PEAC for
// receipt parity and evidence sealing.
package jcs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"

	gowebpki "github.com/gowebpki/jcs"

	"github.com/peacprotocol/peac-go/cryptoerr"
)

// forbiddenKind reports whether v's runtime type cannot be represented in
// JSON (func, chan, complex numbers) -- the Go analogues of JS's bigint,
// symbol and function values that RFC 8785 callers must reject.
func forbiddenKind(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// Canonicalize marshals v to JSON and rewrites it into RFC 8785 canonical
// form: sorted object keys, shortest round-trip numeric literals, no
// insignificant whitespace.
func Canonicalize(v any) ([]byte, error) {
	if forbiddenKind(v) {
		return nil, cryptoerr.New(cryptoerr.InvalidType, "value cannot be represented in JSON")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, cryptoerr.New(cryptoerr.InvalidType, err.Error())
	}
	return CanonicalizeJSON(raw)
}

// CanonicalizeJSON canonicalizes an already-serialized JSON document.
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	out, err := gowebpki.Transform(raw)
	if err != nil {
		return nil, cryptoerr.New(cryptoerr.InvalidType, err.Error())
	}
	return out, nil
}

// Hash returns the lowercase hex SHA-256 digest of Canonicalize(v).
func Hash(v any) (string, error) {
	canon, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return hashBytes(canon), nil
}

// HashJSON returns the lowercase hex SHA-256 digest of CanonicalizeJSON(raw).
func HashJSON(raw []byte) (string, error) {
	canon, err := CanonicalizeJSON(raw)
	if err != nil {
		return "", err
	}
	return hashBytes(canon), nil
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
