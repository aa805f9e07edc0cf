// Command peacctl issues and verifies PEAC receipts and exercises the
// safe-fetch engine from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var logger zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "peacctl",
	Short: "Issue, verify, and fetch PEAC receipts",
	Long: `peacctl is a command-line tool for the PEAC protocol: it issues signed
receipts, verifies them against a publisher's JWKS, fetches resources through
the SSRF-hardened safe-fetch engine, and canonicalizes JSON with JCS.`,
}

var verbose bool

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cobra.OnInitialize(func() {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			Level(level).
			With().Timestamp().Logger()
	})

	rootCmd.AddCommand(
		issueCmd(),
		verifyCmd(),
		fetchCmd(),
		jcsHashCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
