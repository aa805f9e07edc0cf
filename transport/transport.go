// Package transport decides how a signed PEAC receipt is attached to an
// outbound HTTP response: as a header, inlined in the response body, or
// referenced by a pointer header backed by an out-of-band digest.
package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Placement selects how the receipt is carried.
type Placement string

const (
	PlacementHeader  Placement = "header"
	PlacementBody    Placement = "body"
	PlacementPointer Placement = "pointer"
)

const (
	// HeaderName is the response header that carries the receipt JWS
	// directly, when it fits under MaxHeaderSize.
	HeaderName = "PEAC-Receipt"

	// PointerHeaderName carries a digest + URL instead of the JWS
	// itself, for callers whose transport can't afford a large header.
	PointerHeaderName = "PEAC-Receipt-Pointer"

	// DefaultMaxHeaderSize is the UTF-8 byte length above which the
	// header placement falls back to body.
	DefaultMaxHeaderSize = 4096

	// MaxPointerURLBytes bounds the pointer URL length.
	MaxPointerURLBytes = 2048
)

// Options configures Attach.
type Options struct {
	Placement     Placement
	MaxHeaderSize int
	PointerURL    string
}

// DefaultOptions returns the header placement with the default fallback
// threshold.
func DefaultOptions() Options {
	return Options{Placement: PlacementHeader, MaxHeaderSize: DefaultMaxHeaderSize}
}

// Envelope is the body-placement wire shape: the caller's original
// response data alongside the receipt that attests to it.
type Envelope struct {
	Data        json.RawMessage `json:"data"`
	PEACReceipt string          `json:"peac_receipt"`
}

// Attach places jws according to opts, writing headers directly onto w
// and returning the response body the caller should write (nil means
// "write your own body unchanged" -- only PlacementBody replaces it).
func Attach(w http.ResponseWriter, jws string, originalBody []byte, opts Options) ([]byte, error) {
	if opts.MaxHeaderSize == 0 {
		opts.MaxHeaderSize = DefaultMaxHeaderSize
	}

	switch opts.Placement {
	case PlacementHeader, "":
		if len([]byte(jws)) <= opts.MaxHeaderSize {
			w.Header().Set(HeaderName, jws)
			return nil, nil
		}
		return attachBody(w, jws, originalBody)

	case PlacementBody:
		return attachBody(w, jws, originalBody)

	case PlacementPointer:
		return nil, attachPointer(w, jws, opts.PointerURL)

	default:
		return nil, fmt.Errorf("transport: unknown placement %q", opts.Placement)
	}
}

func attachBody(w http.ResponseWriter, jws string, originalBody []byte) ([]byte, error) {
	if len(originalBody) == 0 {
		originalBody = []byte("null")
	}
	env := Envelope{Data: originalBody, PEACReceipt: jws}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("transport: encoding body envelope: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	return body, nil
}

func attachPointer(w http.ResponseWriter, jws, pointerURL string) error {
	if err := validatePointerURL(pointerURL); err != nil {
		return err
	}
	sum := sha256.Sum256([]byte(jws))
	digest := hex.EncodeToString(sum[:])
	w.Header().Set(PointerHeaderName, fmt.Sprintf("sha256=%q, url=%q", digest, pointerURL))
	return nil
}

func validatePointerURL(raw string) error {
	if len(raw) == 0 || len(raw) > MaxPointerURLBytes {
		return fmt.Errorf("transport: pointer url must be non-empty and at most %d bytes", MaxPointerURLBytes)
	}
	if strings.ContainsAny(raw, "\"\\") {
		return fmt.Errorf("transport: pointer url must not contain quote or backslash characters")
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("transport: pointer url must not contain control characters")
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("transport: pointer url does not parse: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("transport: pointer url must use https")
	}
	return nil
}
