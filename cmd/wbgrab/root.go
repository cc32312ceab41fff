package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	var configFlag string
	var verboseFlag bool
	var outputFlag string
	var workersFlag int

	ctx := newCommandContext(&configFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:   "wbgrab <product-url>",
		Short: "Download video reviews from product pages",
		Long: `wbgrab renders a product page, finds its video reviews, and downloads
the first one as an MP4 file by fetching and reassembling the HLS stream.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runDownload(cmd, ctx, args[0], outputFlag, workersFlag)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging and per-segment reporting")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path (defaults to downloads/<product-id>/)")
	rootCmd.Flags().IntVar(&workersFlag, "workers", 0, "Override the segment download worker count")

	rootCmd.AddCommand(newDepsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
