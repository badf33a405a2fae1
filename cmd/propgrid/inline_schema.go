package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lychee-technology/propgrid/internal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	inlineOut            string
	inlineKeepExtensions bool
)

// inlineSchemaCmd writes a JSON Schema with all $ref references resolved,
// the form the schema tree builder works on.
var inlineSchemaCmd = &cobra.Command{
	Use:   "inline-schema FILE",
	Short: "Inline $ref references and remove x-* keywords from a JSON Schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := internal.InlineSchemaFile(args[0], inlineKeepExtensions)
		if err != nil {
			return err
		}
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}

		if inlineOut == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return err
		}
		if err := os.MkdirAll(filepath.Dir(inlineOut), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(inlineOut, encoded, 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		zap.S().Infow("inlined schema written", "output", inlineOut)
		return nil
	},
}

func init() {
	inlineSchemaCmd.Flags().StringVar(&inlineOut, "out", "", "Path to write the inlined schema (defaults to stdout)")
	inlineSchemaCmd.Flags().BoolVar(&inlineKeepExtensions, "keep-extensions", false, "Keep x-* keywords such as x-order and x-hintTitle")
	rootCmd.AddCommand(inlineSchemaCmd)
}
