package peac

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// PEACReceiptClaims represents the claims carried in a PEAC receipt JWS payload.
//
// Audience, unlike a generic JWT aud claim, is a single resource URL rather
// than an array: a PEAC receipt attests one agent's access to one resource,
// not a set.
type PEACReceiptClaims struct {
	Issuer    string `json:"iss"`
	Audience  string `json:"aud"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp,omitempty"`

	ReceiptID string `json:"rid"`
	Amount    int64  `json:"amt"`
	Currency  string `json:"cur"`

	Subject *Subject          `json:"subject,omitempty"`
	Payment PaymentEvidence   `json:"payment"`
	Ext     *ReceiptExtension `json:"ext,omitempty"`
}

// Subject identifies the agent or actor the receipt was issued for. It
// accepts either a bare URI string or a structured object on the wire;
// MarshalJSON/UnmarshalJSON normalize between the two.
type Subject struct {
	URI      string            `json:"uri,omitempty"`
	Type     string            `json:"type,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON emits a bare string when Subject carries only a URI, and a
// structured object otherwise. This keeps the common case (a plain https://
// identifier) wire-compatible with receipts issued before the struct form
// existed.
func (s Subject) MarshalJSON() ([]byte, error) {
	if s.Type == "" && len(s.Metadata) == 0 {
		return json.Marshal(s.URI)
	}
	type alias Subject
	return json.Marshal(alias(s))
}

// UnmarshalJSON accepts either a bare URI string or a structured object.
func (s *Subject) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		s.URI = asString
		s.Type = ""
		s.Metadata = nil
		return nil
	}
	type alias Subject
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	*s = Subject(a)
	return nil
}

// PaymentEvidence is the rail-agnostic payment block. Rail-specific fields
// live under Evidence; callers that need cross-rail parity should normalize
// through a CoreClaims projection instead of reading Evidence directly.
type PaymentEvidence struct {
	Rail           string          `json:"rail"`
	Reference      string          `json:"reference"`
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	Asset          string          `json:"asset,omitempty"`
	Env            string          `json:"env,omitempty"`
	Network        string          `json:"network,omitempty"`
	FacilitatorRef string          `json:"facilitator_ref,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Evidence       json.RawMessage `json:"evidence,omitempty"`
}

// ReceiptExtension carries non-normative, forward-compatible receipt data.
// Unknown keys under ext are preserved on round-trip via Raw but are never
// interpreted by verification.
type ReceiptExtension struct {
	Control *ControlBlock   `json:"control,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// MarshalJSON merges Control into whatever extra keys Raw carries, so a
// receipt issued with unknown ext fields round-trips them unchanged.
func (e ReceiptExtension) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	if len(e.Raw) > 0 {
		if err := json.Unmarshal(e.Raw, &out); err != nil {
			return nil, fmt.Errorf("ext: invalid raw extension: %w", err)
		}
	}
	if e.Control != nil {
		controlBytes, err := json.Marshal(e.Control)
		if err != nil {
			return nil, fmt.Errorf("ext: marshal control: %w", err)
		}
		out["control"] = controlBytes
	}
	return json.Marshal(out)
}

// UnmarshalJSON extracts the known "control" key and keeps the rest in Raw.
func (e *ReceiptExtension) UnmarshalJSON(data []byte) error {
	e.Raw = append([]byte(nil), data...)
	var known struct {
		Control *ControlBlock `json:"control,omitempty"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return fmt.Errorf("ext: %w", err)
	}
	e.Control = known.Control
	return nil
}

// ControlBlock attests the policy decision chain a request passed through
// before a receipt was issued. It is a restatement of facts the issuer
// observed, not a policy engine in its own right.
type ControlBlock struct {
	Chain      []ControlChainEntry `json:"chain,omitempty"`
	Decision   string              `json:"decision"`
	Combinator string              `json:"combinator,omitempty"`
}

// ControlChainEntry is a single hop in a policy attestation chain. Only
// Engine and Result survive cross-rail normalization; Reason and
// Timestamp are evidence for the non-core side of the receipt.
type ControlChainEntry struct {
	Engine    string `json:"engine"`
	Result    string `json:"result"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"ts,omitempty"`
}

// CoreClaims is the cross-rail projection of PEACReceiptClaims. Two
// receipts for semantically equivalent transactions across different
// payment rails must normalize to equal CoreClaims **except** for
// ReceiptID, IssuedAt, and Payment.Rail/Payment.Reference, which are
// expected to vary: a rid and iat are minted per issuance, and rail
// and reference are the adapter-specific identifiers the parity
// contract exists to look past.
type CoreClaims struct {
	Issuer    string             `json:"iss"`
	Audience  string             `json:"aud"`
	IssuedAt  int64              `json:"iat"`
	ReceiptID string             `json:"rid"`
	Amount    int64              `json:"amt"`
	Currency  string             `json:"cur"`
	SubjectID string             `json:"subject_id,omitempty"`
	Payment   CorePaymentClaims  `json:"payment"`
	Control   *CoreControlClaims `json:"control,omitempty"`
}

// CorePaymentClaims is the rail-independent subset of PaymentEvidence.
type CorePaymentClaims struct {
	Rail      string `json:"rail"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// CoreControlClaims is the rail-independent subset of ControlBlock: the
// chain's per-hop engine/result pairs and the overall decision, with
// free-form reasons and timestamps dropped.
type CoreControlClaims struct {
	Decision string                  `json:"decision"`
	Chain    []CoreControlChainEntry `json:"chain,omitempty"`
}

// CoreControlChainEntry is the rail-independent subset of a chain hop.
type CoreControlChainEntry struct {
	Engine string `json:"engine"`
	Result string `json:"result"`
}

// ToCoreClaims projects claims to their cross-rail comparable subset.
func (c *PEACReceiptClaims) ToCoreClaims() CoreClaims {
	core := CoreClaims{
		Issuer:    c.Issuer,
		Audience:  c.Audience,
		IssuedAt:  c.IssuedAt,
		ReceiptID: c.ReceiptID,
		Amount:    c.Amount,
		Currency:  c.Currency,
		Payment: CorePaymentClaims{
			Rail:      c.Payment.Rail,
			Reference: c.Payment.Reference,
			Amount:    c.Payment.Amount,
			Currency:  c.Payment.Currency,
		},
	}
	if c.Subject != nil {
		core.SubjectID = c.Subject.URI
	}
	if c.Ext != nil && c.Ext.Control != nil {
		control := &CoreControlClaims{Decision: c.Ext.Control.Decision}
		for _, entry := range c.Ext.Control.Chain {
			control.Chain = append(control.Chain, CoreControlChainEntry{
				Engine: entry.Engine,
				Result: entry.Result,
			})
		}
		core.Control = control
	}
	return core
}

// EqualIgnoringRailIdentity reports whether two core projections match
// on everything the parity contract requires to be rail-independent:
// every field except ReceiptID, IssuedAt, Payment.Rail and
// Payment.Reference.
func (c CoreClaims) EqualIgnoringRailIdentity(other CoreClaims) bool {
	c.ReceiptID, other.ReceiptID = "", ""
	c.IssuedAt, other.IssuedAt = 0, 0
	c.Payment.Rail, other.Payment.Rail = "", ""
	c.Payment.Reference, other.Payment.Reference = "", ""
	return reflect.DeepEqual(c, other)
}

// VerifyResult contains the result of receipt verification.
type VerifyResult struct {
	// Claims contains the verified receipt claims.
	Claims *PEACReceiptClaims

	// KeyID is the key ID used for verification.
	KeyID string

	// Algorithm is the algorithm used for signing.
	Algorithm string

	// Perf contains performance metrics.
	Perf *VerifyPerf
}

// VerifyPerf contains timing information for verification.
type VerifyPerf struct {
	VerifyMs    float64 `json:"verify_ms"`
	JWKSFetchMs float64 `json:"jwks_fetch_ms,omitempty"`
	SafeFetchMs float64 `json:"safe_fetch_ms,omitempty"`
}
