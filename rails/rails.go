// Package rails adapts rail-native settlement events (Stripe charges,
// x402 invoices, ACP authorizations, RSL licenses, TAP transfers) into
// the canonical payment block PEACReceiptClaims carries. Every adapter
// is responsible for three normalizations: currency to uppercase,
// amount to a smallest-unit integer, and a stable rail token + reference.
package rails

import (
	"fmt"
	"strings"

	"github.com/peacprotocol/peac-go"
)

// Canonical rail tokens. These are the values that land in
// PaymentEvidence.Rail; adapters must not invent their own spelling.
// They alias the root package's canonical set so issue.go's rail
// validation and these adapters can never drift apart.
const (
	RailStripe = peac.RailStripe
	RailX402   = peac.RailX402
	RailACP    = peac.RailACP
	RailRSL    = peac.RailRSL
	RailTAP    = peac.RailTAP
)

// StripeEvent is the subset of a Stripe charge/checkout-session object
// the adapter needs.
type StripeEvent struct {
	CheckoutSessionID string
	AmountTotal       int64  // already in the smallest currency unit, per Stripe convention
	Currency          string // Stripe lower-cases currency codes
}

// FromStripe normalizes a Stripe event into the canonical payment block.
func FromStripe(ev StripeEvent) (peac.PaymentEvidence, error) {
	if ev.CheckoutSessionID == "" {
		return peac.PaymentEvidence{}, fmt.Errorf("rails: stripe event missing checkout session id")
	}
	return peac.PaymentEvidence{
		Rail:      RailStripe,
		Reference: ev.CheckoutSessionID,
		Amount:    ev.AmountTotal,
		Currency:  strings.ToUpper(ev.Currency),
	}, nil
}

// X402Event is the subset of an x402 payment-required settlement the
// adapter needs.
type X402Event struct {
	InvoiceID string
	Amount    int64 // smallest-unit integer per the x402 settlement header
	Currency  string
	Network   string // e.g. "base", "polygon" -- the settling chain
}

// FromX402 normalizes an x402 event into the canonical payment block.
func FromX402(ev X402Event) (peac.PaymentEvidence, error) {
	if ev.InvoiceID == "" {
		return peac.PaymentEvidence{}, fmt.Errorf("rails: x402 event missing invoice id")
	}
	return peac.PaymentEvidence{
		Rail:      RailX402,
		Reference: ev.InvoiceID,
		Amount:    ev.Amount,
		Currency:  strings.ToUpper(ev.Currency),
		Network:   ev.Network,
	}, nil
}

// ACPEvent is the subset of an Agentic Commerce Protocol authorization
// the adapter needs.
type ACPEvent struct {
	AuthorizationID string
	Amount          int64
	Currency        string
	FacilitatorRef  string
}

// FromACP normalizes an ACP authorization into the canonical payment block.
func FromACP(ev ACPEvent) (peac.PaymentEvidence, error) {
	if ev.AuthorizationID == "" {
		return peac.PaymentEvidence{}, fmt.Errorf("rails: acp event missing authorization id")
	}
	return peac.PaymentEvidence{
		Rail:           RailACP,
		Reference:      ev.AuthorizationID,
		Amount:         ev.Amount,
		Currency:       strings.ToUpper(ev.Currency),
		FacilitatorRef: ev.FacilitatorRef,
	}, nil
}

// RSLEvent is the subset of an RSL (Really Simple Licensing) grant the
// adapter needs.
type RSLEvent struct {
	LicenseID string
	Amount    int64
	Currency  string
	Asset     string // the licensed content identifier
}

// FromRSL normalizes an RSL license grant into the canonical payment block.
func FromRSL(ev RSLEvent) (peac.PaymentEvidence, error) {
	if ev.LicenseID == "" {
		return peac.PaymentEvidence{}, fmt.Errorf("rails: rsl event missing license id")
	}
	return peac.PaymentEvidence{
		Rail:      RailRSL,
		Reference: ev.LicenseID,
		Amount:    ev.Amount,
		Currency:  strings.ToUpper(ev.Currency),
		Asset:     ev.Asset,
	}, nil
}

// TAPEvent is the subset of a Trust and Attribution Protocol transfer
// the adapter needs.
type TAPEvent struct {
	TransferID     string
	Amount         int64
	Currency       string
	IdempotencyKey string
}

// FromTAP normalizes a TAP transfer into the canonical payment block.
func FromTAP(ev TAPEvent) (peac.PaymentEvidence, error) {
	if ev.TransferID == "" {
		return peac.PaymentEvidence{}, fmt.Errorf("rails: tap event missing transfer id")
	}
	return peac.PaymentEvidence{
		Rail:           RailTAP,
		Reference:      ev.TransferID,
		Amount:         ev.Amount,
		Currency:       strings.ToUpper(ev.Currency),
		IdempotencyKey: ev.IdempotencyKey,
	}, nil
}
