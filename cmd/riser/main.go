// Command riser trains and evaluates signal-classification networks. The
// train subcommand runs the combined-batch training loop over duration-
// bucketed datasets; the evaluate subcommand reports test-set accuracy for
// a saved checkpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "riser",
	Short: "Train and evaluate signal-classification networks",
	Long: `riser trains convolutional, residual, temporal-convolutional and
convolutional-recurrent networks to classify time-series signals, combining
datasets of different signal durations within each training epoch.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
