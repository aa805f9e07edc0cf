// Package jwks provides JWKS fetching and key resolution for PEAC.
package jwks

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/peacprotocol/peac-go/safefetch"
)

// JWKS represents a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key.
type JWK struct {
	KeyType   string `json:"kty"`
	KeyID     string `json:"kid"`
	Algorithm string `json:"alg,omitempty"`
	Use       string `json:"use,omitempty"`
	Curve     string `json:"crv,omitempty"`

	// Ed25519/OKP keys
	X string `json:"x,omitempty"`

	// RSA keys (for future compatibility)
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// PEAC extension fields
	Status    string `json:"peac:status,omitempty"`
	ValidFrom string `json:"peac:valid_from,omitempty"`
}

// KeySet holds a set of public keys indexed by key ID.
type KeySet struct {
	keys      map[string]ed25519.PublicKey
	fetchedAt time.Time
	expiresAt time.Time
}

// NewKeySet creates a new empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{
		keys: make(map[string]ed25519.PublicKey),
	}
}

// Add adds a key to the set.
func (ks *KeySet) Add(kid string, key ed25519.PublicKey) {
	ks.keys[kid] = key
}

// Get retrieves a key by ID.
func (ks *KeySet) Get(kid string) (ed25519.PublicKey, bool) {
	key, ok := ks.keys[kid]
	return key, ok
}

// IsExpired returns true if the key set has expired.
func (ks *KeySet) IsExpired() bool {
	return time.Now().After(ks.expiresAt)
}

// FetchOptions configures JWKS fetching. The underlying transport is
// always the SSRF-hardened Safe Fetch engine; Engine lets a caller
// supply one pre-configured (e.g. with a shared audit queue), and
// Timeout/MaxSize tune the default engine when Engine is nil.
type FetchOptions struct {
	Engine *safefetch.Engine

	// Timeout for the fetch operation, used only when Engine is nil.
	Timeout time.Duration

	// MaxSize is the maximum response size in bytes, used only when
	// Engine is nil.
	MaxSize int64
}

// DefaultFetchOptions returns default fetch options: the standard JWKS
// policy (no redirects, 512 KiB cap) with a 10s total timeout.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Timeout: 10 * time.Second,
		MaxSize: safefetch.MaxJWKSResponseBytes,
	}
}

// Fetch fetches a JWKS from a URL through the Safe Fetch engine: the
// target is SSRF-guarded, DNS-pinned, and capped at the JWKS response
// size budget with redirects disabled by default.
func Fetch(ctx context.Context, url string, opts FetchOptions) (*JWKS, error) {
	engine := opts.Engine
	if engine == nil {
		fetchOpts := safefetch.JWKSOptions()
		if opts.Timeout > 0 {
			fetchOpts.TotalTimeout = opts.Timeout
		}
		if opts.MaxSize > 0 {
			fetchOpts.MaxResponseBytes = opts.MaxSize
		}
		engine = safefetch.New(fetchOpts)
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", "peac-go/0.9.25")

	res, err := engine.Fetch(ctx, "GET", url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var jwks JWKS
	if err := json.Unmarshal(res.Body, &jwks); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	return &jwks, nil
}

// ToKeySet converts a JWKS to a KeySet, extracting Ed25519 keys.
func (j *JWKS) ToKeySet() (*KeySet, error) {
	ks := NewKeySet()
	ks.fetchedAt = time.Now()
	ks.expiresAt = time.Now().Add(5 * time.Minute)

	for _, jwk := range j.Keys {
		if jwk.KeyType != "OKP" || jwk.Curve != "Ed25519" {
			continue
		}

		// Skip revoked keys
		if jwk.Status == "revoked" {
			continue
		}

		keyBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil {
			continue
		}

		if len(keyBytes) != ed25519.PublicKeySize {
			continue
		}

		ks.Add(jwk.KeyID, ed25519.PublicKey(keyBytes))
	}

	return ks, nil
}

// DiscoverJWKS discovers the JWKS URL from an issuer URL.
func DiscoverJWKS(issuer string) string {
	// Standard well-known path
	issuer = strings.TrimSuffix(issuer, "/")
	return issuer + "/.well-known/jwks.json"
}
