package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AOShei/pdf-viewer/pkg/loader"
)

var infoCmd = &cobra.Command{
	Use:   "info <path_or_url>",
	Short: "Print document metadata and page sizes as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		native := &loader.Native{Logger: logger}
		doc, err := native.Info(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load PDF: %w", err)
		}

		// Output as JSON with HTML escaping disabled for better readability
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
