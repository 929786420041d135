package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/AOShei/pdf-viewer/pkg/config"
	"github.com/AOShei/pdf-viewer/pkg/observability"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pdfview",
	Short: "Render PDF pages into a resizable viewport",
	Long: `pdfview loads a PDF, fits its pages to a viewport (cover, contain or a
fixed scale) with rotation and paging, and renders them to PNG or serves
them over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = observability.NewStdLogger(log.New(os.Stderr, "", log.LstdFlags), verbose)
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
