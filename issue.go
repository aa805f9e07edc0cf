// Package peac provides PEAC receipt issuance and verification for Go.
package peac

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/peacprotocol/peac-go/evidence"
	"github.com/peacprotocol/peac-go/jws"
)

// IssueOptions contains the parameters for issuing a PEAC receipt.
type IssueOptions struct {
	// Issuer URL (must start with https://)
	Issuer string

	// Audience/resource URL (must start with https://)
	Audience string

	// Amount in smallest currency unit (non-negative integer)
	Amount int64

	// ISO 4217 currency code (uppercase, 3 letters)
	Currency string

	// Payment rail identifier
	Rail string

	// Rail-specific payment reference
	Reference string

	// Asset transferred (defaults to Currency if not provided)
	Asset string

	// Environment ("live" or "test", defaults to "test")
	Env string

	// Network/rail identifier (optional)
	Network string

	// Facilitator reference (optional)
	FacilitatorRef string

	// Rail-specific evidence (JSON-safe, validated against DoS limits)
	Evidence any

	// Idempotency key (optional)
	IdempotencyKey string

	// Subject URI (optional, must start with https:// if provided)
	Subject string

	// Control is a policy attestation chain to embed under ext.control (optional).
	Control *ControlBlock

	// Expiry timestamp in Unix seconds (optional)
	Expiry int64

	// SigningKey for Ed25519 signing (required)
	SigningKey *jws.SigningKey

	// Clock for timestamp generation (optional, uses real clock if nil)
	Clock Clock

	// IDGenerator for receipt ID generation (optional, uses UUIDv7 if nil)
	IDGenerator ReceiptIDGenerator

	// EvidenceLimits for DoS protection (optional, uses defaults if zero)
	EvidenceLimits evidence.Limits
}

// IssueResult contains the result of issuing a receipt.
type IssueResult struct {
	// JWS compact serialization
	JWS string

	// Receipt ID (UUIDv7)
	ReceiptID string

	// Issued at timestamp (Unix seconds)
	IssuedAt int64
}

// IssueError represents an error during receipt issuance.
type IssueError struct {
	Code    string
	Message string
	Field   string
}

func (e *IssueError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for issuance.
const (
	ErrCodeInvalidIssuer     = "E_ISSUE_INVALID_ISSUER"
	ErrCodeInvalidAudience   = "E_ISSUE_INVALID_AUDIENCE"
	ErrCodeInvalidSubject    = "E_ISSUE_INVALID_SUBJECT"
	ErrCodeInvalidCurrency   = "E_ISSUE_INVALID_CURRENCY"
	ErrCodeInvalidAmount     = "E_ISSUE_INVALID_AMOUNT"
	ErrCodeInvalidExpiry     = "E_ISSUE_INVALID_EXPIRY"
	ErrCodeInvalidEnv        = "E_ISSUE_INVALID_ENV"
	ErrCodeInvalidRail       = "E_ISSUE_INVALID_RAIL"
	ErrCodeInvalidReference  = "E_ISSUE_INVALID_REFERENCE"
	ErrCodeInvalidEvidence   = "E_ISSUE_INVALID_EVIDENCE"
	ErrCodeMissingSigningKey = "E_ISSUE_MISSING_SIGNING_KEY"
	ErrCodeIDGeneration      = "E_ISSUE_ID_GENERATION"
	ErrCodeSigningFailed     = "E_ISSUE_SIGNING_FAILED"
)

// Canonical rail tokens accepted in IssueOptions.Rail. These are the
// same tokens the rails package's adapters normalize into; defined here
// (rather than imported from rails) so issue.go can validate against
// them without rails importing back into this package.
const (
	RailStripe = "stripe"
	RailX402   = "x402"
	RailACP    = "acp"
	RailRSL    = "rsl"
	RailTAP    = "tap"
)

var validRails = map[string]bool{
	RailStripe: true,
	RailX402:   true,
	RailACP:    true,
	RailRSL:    true,
	RailTAP:    true,
}

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// validateHTTPSURL validates that a URL is a valid https:// URL with a host
// and no userinfo.
func validateHTTPSURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("URL must use https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	if u.User != nil {
		return fmt.Errorf("URL must not contain userinfo")
	}
	return nil
}

// Issue creates a signed PEAC receipt.
//
// The function validates all inputs, generates a UUIDv7 receipt ID,
// and signs the claims with Ed25519.
//
// Invariants enforced:
//   - Issuer and Audience must be valid https:// URLs with a host
//   - Currency must be ISO 4217 uppercase (3 letters)
//   - Amount must be non-negative
//   - Env must be "live" or "test" (defaults to "test" if empty)
//   - Expiry (if set) must be non-negative; typically should be >= iat
//   - Evidence (if provided) must pass DoS validation
//   - SigningKey must be provided
func Issue(opts IssueOptions) (*IssueResult, error) {
	// Validate issuer URL
	if err := validateHTTPSURL(opts.Issuer); err != nil {
		return nil, &IssueError{
			Code:    ErrCodeInvalidIssuer,
			Message: fmt.Sprintf("invalid issuer: %v", err),
			Field:   "Issuer",
		}
	}

	// Validate audience URL
	if err := validateHTTPSURL(opts.Audience); err != nil {
		return nil, &IssueError{
			Code:    ErrCodeInvalidAudience,
			Message: fmt.Sprintf("invalid audience: %v", err),
			Field:   "Audience",
		}
	}

	// Validate subject URL (if provided)
	if opts.Subject != "" {
		if err := validateHTTPSURL(opts.Subject); err != nil {
			return nil, &IssueError{
				Code:    ErrCodeInvalidSubject,
				Message: fmt.Sprintf("invalid subject: %v", err),
				Field:   "Subject",
			}
		}
	}

	// Validate currency code
	if !currencyRegex.MatchString(opts.Currency) {
		return nil, &IssueError{
			Code:    ErrCodeInvalidCurrency,
			Message: "currency must be ISO 4217 uppercase (e.g., USD)",
			Field:   "Currency",
		}
	}

	// Validate amount
	if opts.Amount < 0 {
		return nil, &IssueError{
			Code:    ErrCodeInvalidAmount,
			Message: "amount must be non-negative",
			Field:   "Amount",
		}
	}

	// Validate expiry (if provided)
	if opts.Expiry != 0 && opts.Expiry < 0 {
		return nil, &IssueError{
			Code:    ErrCodeInvalidExpiry,
			Message: "expiry must be non-negative",
			Field:   "Expiry",
		}
	}

	// Validate env (must be "live" or "test", empty defaults to "test")
	if opts.Env != "" && opts.Env != "live" && opts.Env != "test" {
		return nil, &IssueError{
			Code:    ErrCodeInvalidEnv,
			Message: fmt.Sprintf("env must be \"live\" or \"test\", got %q", opts.Env),
			Field:   "Env",
		}
	}

	// Validate rail: must be a recognized rail token, not merely non-empty.
	if !validRails[opts.Rail] {
		return nil, &IssueError{
			Code:    ErrCodeInvalidRail,
			Message: fmt.Sprintf("rail must be one of stripe, x402, acp, rsl, tap, got %q", opts.Rail),
			Field:   "Rail",
		}
	}

	// Validate reference
	if opts.Reference == "" {
		return nil, &IssueError{
			Code:    ErrCodeInvalidReference,
			Message: "reference is required",
			Field:   "Reference",
		}
	}

	// Validate signing key
	if opts.SigningKey == nil {
		return nil, &IssueError{
			Code:    ErrCodeMissingSigningKey,
			Message: "signing key is required",
			Field:   "SigningKey",
		}
	}

	// Validate evidence (if provided)
	if opts.Evidence != nil {
		limits := opts.EvidenceLimits.WithDefaults()
		if err := evidence.ValidateValue(opts.Evidence, limits); err != nil {
			return nil, &IssueError{
				Code:    ErrCodeInvalidEvidence,
				Message: fmt.Sprintf("evidence validation failed: %v", err),
				Field:   "Evidence",
			}
		}
	}

	// Get clock (default to real clock)
	clock := opts.Clock
	if clock == nil {
		clock = DefaultClock()
	}

	// Get ID generator (default to UUIDv7)
	idGen := opts.IDGenerator
	if idGen == nil {
		idGen = DefaultIDGenerator()
	}

	// Generate receipt ID
	receiptID, err := idGen.NewReceiptID()
	if err != nil {
		return nil, &IssueError{
			Code:    ErrCodeIDGeneration,
			Message: fmt.Sprintf("failed to generate receipt ID: %v", err),
		}
	}

	// Get issued at timestamp
	issuedAt := clock.Now().Unix()

	// Set defaults
	asset := opts.Asset
	if asset == "" {
		asset = opts.Currency
	}
	env := opts.Env
	if env == "" {
		env = "test"
	}

	var evidenceRaw json.RawMessage
	if opts.Evidence != nil {
		evidenceRaw, err = json.Marshal(opts.Evidence)
		if err != nil {
			return nil, &IssueError{
				Code:    ErrCodeInvalidEvidence,
				Message: fmt.Sprintf("failed to marshal evidence: %v", err),
				Field:   "Evidence",
			}
		}
	}

	// Build claims
	claims := PEACReceiptClaims{
		Issuer:    opts.Issuer,
		Audience:  opts.Audience,
		IssuedAt:  issuedAt,
		ReceiptID: receiptID,
		Amount:    opts.Amount,
		Currency:  opts.Currency,
		Payment: PaymentEvidence{
			Rail:           opts.Rail,
			Reference:      opts.Reference,
			Amount:         opts.Amount,
			Currency:       opts.Currency,
			Asset:          asset,
			Env:            env,
			Evidence:       evidenceRaw,
			Network:        opts.Network,
			FacilitatorRef: opts.FacilitatorRef,
			IdempotencyKey: opts.IdempotencyKey,
		},
	}

	// Add optional fields
	if opts.Expiry != 0 {
		claims.ExpiresAt = opts.Expiry
	}
	if opts.Subject != "" {
		claims.Subject = &Subject{URI: opts.Subject}
	}
	if opts.Control != nil {
		claims.Ext = &ReceiptExtension{Control: opts.Control}
	}

	// Sign claims
	jwsString, err := opts.SigningKey.SignClaims(claims)
	if err != nil {
		return nil, &IssueError{
			Code:    ErrCodeSigningFailed,
			Message: fmt.Sprintf("failed to sign receipt: %v", err),
		}
	}

	return &IssueResult{
		JWS:       jwsString,
		ReceiptID: receiptID,
		IssuedAt:  issuedAt,
	}, nil
}

// IssueJWS is a convenience function that issues a receipt and returns just the JWS string.
func IssueJWS(opts IssueOptions) (string, error) {
	result, err := Issue(opts)
	if err != nil {
		return "", err
	}
	return result.JWS, nil
}

// MustIssue is like Issue but panics on error. Use only in tests.
func MustIssue(opts IssueOptions) *IssueResult {
	result, err := Issue(opts)
	if err != nil {
		panic(err)
	}
	return result
}

// DefaultIssueOptions returns IssueOptions with sensible defaults for testing.
// The returned options still require Issuer, Audience, and SigningKey to be set.
func DefaultIssueOptions() IssueOptions {
	return IssueOptions{
		Amount:    0,
		Currency:  "USD",
		Rail:      RailStripe,
		Reference: "test-ref",
		Env:       "test",
		Clock:     FixedClock{Time: time.Now()},
	}
}
