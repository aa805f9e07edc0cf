package rails

import (
	"testing"

	peac "github.com/peacprotocol/peac-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStripe_NormalizesCurrencyAndFields(t *testing.T) {
	p, err := FromStripe(StripeEvent{
		CheckoutSessionID: "cs_test_stripe_123",
		AmountTotal:       9999,
		Currency:          "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, RailStripe, p.Rail)
	assert.Equal(t, "cs_test_stripe_123", p.Reference)
	assert.Equal(t, int64(9999), p.Amount)
	assert.Equal(t, "USD", p.Currency)
}

func TestFromStripe_RejectsMissingSessionID(t *testing.T) {
	_, err := FromStripe(StripeEvent{AmountTotal: 100, Currency: "usd"})
	require.Error(t, err)
}

func TestFromX402_NormalizesFields(t *testing.T) {
	p, err := FromX402(X402Event{
		InvoiceID: "inv_x402_123",
		Amount:    9999,
		Currency:  "USD",
		Network:   "base",
	})
	require.NoError(t, err)
	assert.Equal(t, RailX402, p.Rail)
	assert.Equal(t, "inv_x402_123", p.Reference)
	assert.Equal(t, "base", p.Network)
}

func TestFromACP_NormalizesFields(t *testing.T) {
	p, err := FromACP(ACPEvent{AuthorizationID: "auth_1", Amount: 500, Currency: "eur", FacilitatorRef: "fac_1"})
	require.NoError(t, err)
	assert.Equal(t, RailACP, p.Rail)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "fac_1", p.FacilitatorRef)
}

func TestFromRSL_NormalizesFields(t *testing.T) {
	p, err := FromRSL(RSLEvent{LicenseID: "lic_1", Amount: 100, Currency: "gbp", Asset: "article-42"})
	require.NoError(t, err)
	assert.Equal(t, RailRSL, p.Rail)
	assert.Equal(t, "article-42", p.Asset)
}

func TestFromTAP_NormalizesFields(t *testing.T) {
	p, err := FromTAP(TAPEvent{TransferID: "xfer_1", Amount: 100, Currency: "usd", IdempotencyKey: "idem_1"})
	require.NoError(t, err)
	assert.Equal(t, RailTAP, p.Rail)
	assert.Equal(t, "idem_1", p.IdempotencyKey)
}

// TestCrossRailParity proves the central rail-parity contract:
// two adapters handed semantically equivalent inputs produce receipts
// whose ToCoreClaims output differs only in rid, iat, payment.rail and
// payment.reference.
func TestCrossRailParity(t *testing.T) {
	stripePayment, err := FromStripe(StripeEvent{
		CheckoutSessionID: "cs_test_stripe_123",
		AmountTotal:       9999,
		Currency:          "usd",
	})
	require.NoError(t, err)

	x402Payment, err := FromX402(X402Event{
		InvoiceID: "inv_x402_123",
		Amount:    9999,
		Currency:  "USD",
	})
	require.NoError(t, err)

	base := func(payment peac.PaymentEvidence, rid string, iat int64) peac.CoreClaims {
		claims := &peac.PEACReceiptClaims{
			Issuer:    "https://publisher.example",
			Audience:  "https://agent.example",
			IssuedAt:  iat,
			ReceiptID: rid,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
			Subject:   &peac.Subject{URI: "https://agent.example/a1"},
			Payment:   payment,
		}
		return claims.ToCoreClaims()
	}

	stripeCore := base(stripePayment, "01890a5d-ac96-774b-bcce-b302099a8057", 1000)
	x402Core := base(x402Payment, "01890a5d-ac96-774b-bcce-b302099a80aa", 2000)

	assert.True(t, stripeCore.EqualIgnoringRailIdentity(x402Core))
	assert.NotEqual(t, stripeCore.Payment.Rail, x402Core.Payment.Rail)
	assert.NotEqual(t, stripeCore.Payment.Reference, x402Core.Payment.Reference)
	assert.NotEqual(t, stripeCore.ReceiptID, x402Core.ReceiptID)
	assert.NotEqual(t, stripeCore.IssuedAt, x402Core.IssuedAt)
}

func TestCrossRailParity_DifferentAmountsAreNotParity(t *testing.T) {
	stripePayment, err := FromStripe(StripeEvent{CheckoutSessionID: "cs_1", AmountTotal: 9999, Currency: "usd"})
	require.NoError(t, err)
	x402Payment, err := FromX402(X402Event{InvoiceID: "inv_1", Amount: 5000, Currency: "USD"})
	require.NoError(t, err)

	a := &peac.PEACReceiptClaims{Issuer: "https://publisher.example", Audience: "https://agent.example", ReceiptID: "r1", Amount: stripePayment.Amount, Currency: stripePayment.Currency, Payment: stripePayment}
	b := &peac.PEACReceiptClaims{Issuer: "https://publisher.example", Audience: "https://agent.example", ReceiptID: "r2", Amount: x402Payment.Amount, Currency: x402Payment.Currency, Payment: x402Payment}

	assert.False(t, a.ToCoreClaims().EqualIgnoringRailIdentity(b.ToCoreClaims()))
}
