package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	peac "github.com/peacprotocol/peac-go"
)

func verifyCmd() *cobra.Command {
	var (
		issuer   string
		audience string
		jwksURL  string
		maxAge   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify <receipt-jws>",
		Short: "Verify a PEAC receipt against its publisher's JWKS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := peac.Verify(args[0], peac.VerifyOptions{
				Issuer:   issuer,
				Audience: audience,
				JWKSURL:  jwksURL,
				MaxAge:   maxAge,
			})
			if err != nil {
				logger.Error().Err(err).Msg("verify failed")
				return err
			}

			logger.Debug().
				Str("rid", result.Claims.ReceiptID).
				Str("kid", result.KeyID).
				Float64("verify_ms", result.Perf.VerifyMs).
				Msg("receipt verified")

			out, _ := json.MarshalIndent(result.Claims, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "expected issuer (required)")
	cmd.Flags().StringVar(&audience, "audience", "", "expected audience (required)")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "explicit JWKS URL (discovered from issuer if omitted)")
	cmd.Flags().DurationVar(&maxAge, "max-age", time.Hour, "maximum receipt age")

	cmd.MarkFlagRequired("issuer")
	cmd.MarkFlagRequired("audience")

	return cmd
}
