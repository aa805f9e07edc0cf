// Package jws provides compact JWS parsing, header-profile validation and
// Ed25519 sign/verify for PEAC receipts.
package jws

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/peacprotocol/peac-go/cryptoerr"
)

// ReceiptTyp is the one canonical wire value for the receipt JWS "typ"
// header. The source history carried two strings ("peac-receipt/0.1" and
// "peac.receipt/0.9"); this package fixes the former and rejects the
// latter rather than guessing which a caller meant.
const ReceiptTyp = "peac-receipt/0.1"

// Algorithm is the one supported JWS signing algorithm.
const Algorithm = "EdDSA"

// Header is the fixed PEAC JWS header. Field order matches the wire
// contract (typ, alg, kid) so that signed output is human-diffable;
// verifiers must accept any key order on the way in.
type Header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid"`
}

// ParsedJWS is a parsed (not yet verified) compact JWS.
type ParsedJWS struct {
	Header               Header
	HeaderRaw            []byte
	Payload              []byte
	Signature            []byte
	SigningInput         []byte
	CompactSerialization string
}

// Encode encodes data as base64url per RFC 4648 §5, without padding.
func Encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode decodes base64url data. It tolerates both padded and unpadded
// input: the wire form never carries padding, but callers that re-derive a
// segment from other sources may hand us a padded string.
func Decode(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

// Parse splits a compact JWS into its three segments and decodes the
// header, without validating the header profile or checking the
// signature.
func Parse(compact string) (*ParsedJWS, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return nil, cryptoerr.New(cryptoerr.InvalidJWSFormat, "expected 3 dot-separated parts")
	}

	headerBytes, err := Decode(parts[0])
	if err != nil {
		return nil, cryptoerr.New(cryptoerr.InvalidJWSFormat, "failed to decode header: "+err.Error())
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, cryptoerr.New(cryptoerr.InvalidJWSFormat, "failed to parse header: "+err.Error())
	}

	payload, err := Decode(parts[1])
	if err != nil {
		return nil, cryptoerr.New(cryptoerr.InvalidJWSFormat, "failed to decode payload: "+err.Error())
	}

	signature, err := Decode(parts[2])
	if err != nil {
		return nil, cryptoerr.New(cryptoerr.InvalidJWSFormat, "failed to decode signature: "+err.Error())
	}

	return &ParsedJWS{
		Header:               header,
		HeaderRaw:            headerBytes,
		Payload:               payload,
		Signature:             signature,
		SigningInput:          []byte(parts[0] + "." + parts[1]),
		CompactSerialization:  compact,
	}, nil
}

// ValidateHeader checks the header profile. Type and algorithm are checked
// before any signature verification happens (cheap rejection, reduces
// oracle surface): a request with a wrong typ or alg never reaches the
// Ed25519 primitive.
func ValidateHeader(header Header) error {
	if header.Type != ReceiptTyp {
		return cryptoerr.New(cryptoerr.InvalidTyp, "expected typ "+ReceiptTyp+", got "+header.Type)
	}
	if header.Algorithm != Algorithm {
		return cryptoerr.New(cryptoerr.InvalidAlg, "expected alg "+Algorithm+", got "+header.Algorithm)
	}
	if header.KeyID == "" {
		return cryptoerr.New(cryptoerr.InvalidJWSFormat, "missing key ID (kid) in header")
	}
	return nil
}
