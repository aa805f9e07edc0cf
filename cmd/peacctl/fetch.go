package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac-go/safefetch"
)

func fetchCmd() *cobra.Command {
	var (
		method         string
		redirectPolicy string
		maxRedirects   int
		maxBytes       int64
	)

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a URL through the SSRF-hardened safe-fetch engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := safefetch.DefaultOptions()
			opts.RedirectPolicy = safefetch.RedirectPolicy(redirectPolicy)
			opts.MaxRedirects = maxRedirects
			if maxBytes > 0 {
				opts.MaxResponseBytes = maxBytes
			}

			engine := safefetch.New(opts)

			logger.Debug().Str("url", args[0]).Str("method", method).Msg("fetching")

			result, err := engine.Fetch(context.Background(), method, args[0], http.Header{})
			if err != nil {
				logger.Error().Err(err).Msg("fetch failed")
				return err
			}

			logger.Info().
				Int("status", result.StatusCode).
				Int("redirects", result.Redirects).
				Str("final_url", result.FinalURL).
				Msg("fetch complete")
			if result.Evidence != nil {
				logger.Debug().Str("evidence_digest", result.Evidence.EvidenceDigest).Msg("evidence sealed")
			}

			fmt.Println(string(result.Body))
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method (GET or HEAD)")
	cmd.Flags().StringVar(&redirectPolicy, "redirect-policy", string(safefetch.RedirectSameRegistrableDomain),
		"redirect policy: none, same-origin, same-registrable-domain, allowlist")
	cmd.Flags().IntVar(&maxRedirects, "max-redirects", safefetch.DefaultMaxRedirects, "maximum redirects to follow")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "response size budget in bytes (0 uses the engine default)")

	return cmd
}
