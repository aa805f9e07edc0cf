package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	peac "github.com/peacprotocol/peac-go"
	"github.com/peacprotocol/peac-go/jws"
)

func issueCmd() *cobra.Command {
	var (
		issuer    string
		audience  string
		amount    int64
		currency  string
		rail      string
		reference string
		subject   string
		keyID     string
		seedHex   string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed PEAC receipt",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := hex.DecodeString(seedHex)
			if err != nil {
				return fmt.Errorf("--signing-key-seed must be hex: %w", err)
			}
			signingKey, err := jws.NewSigningKeyFromSeed(seed, keyID)
			if err != nil {
				return fmt.Errorf("building signing key: %w", err)
			}

			result, err := peac.Issue(peac.IssueOptions{
				Issuer:     issuer,
				Audience:   audience,
				Amount:     amount,
				Currency:   currency,
				Rail:       rail,
				Reference:  reference,
				Subject:    subject,
				SigningKey: signingKey,
			})
			if err != nil {
				logger.Error().Err(err).Msg("issue failed")
				return err
			}

			logger.Debug().
				Str("rid", result.ReceiptID).
				Int64("iat", result.IssuedAt).
				Msg("receipt issued")

			out, _ := json.MarshalIndent(map[string]any{
				"jws":        result.JWS,
				"receipt_id": result.ReceiptID,
				"issued_at":  result.IssuedAt,
			}, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "issuer URL (https://...)")
	cmd.Flags().StringVar(&audience, "audience", "", "audience URL (https://...)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "amount in smallest currency unit")
	cmd.Flags().StringVar(&currency, "currency", "USD", "ISO 4217 currency code")
	cmd.Flags().StringVar(&rail, "rail", "", "payment rail identifier")
	cmd.Flags().StringVar(&reference, "reference", "", "rail-specific payment reference")
	cmd.Flags().StringVar(&subject, "subject", "", "subject URI (optional)")
	cmd.Flags().StringVar(&keyID, "key-id", "", "key ID (kid) for the signing key")
	cmd.Flags().StringVar(&seedHex, "signing-key-seed", "", "hex-encoded 32-byte Ed25519 seed")

	cmd.MarkFlagRequired("issuer")
	cmd.MarkFlagRequired("audience")
	cmd.MarkFlagRequired("rail")
	cmd.MarkFlagRequired("reference")
	cmd.MarkFlagRequired("key-id")
	cmd.MarkFlagRequired("signing-key-seed")

	return cmd
}
