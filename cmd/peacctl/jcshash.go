package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac-go/jcs"
)

func jcsHashCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "jcs-hash",
		Short: "Canonicalize JSON per RFC 8785 and print its SHA-256 digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if inputPath == "" || inputPath == "-" {
				raw, err = io.ReadAll(os.Stdin)
			} else {
				raw, err = os.ReadFile(inputPath)
			}
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			digest, err := jcs.HashJSON(raw)
			if err != nil {
				logger.Error().Err(err).Msg("canonicalization failed")
				return err
			}

			fmt.Println(digest)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "input JSON file (reads stdin if omitted)")

	return cmd
}
