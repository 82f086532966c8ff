package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Terminal client for the Difendimi case intake",
	Long:  "intake runs a legal case intake conversation in the terminal and inspects stored cases.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Log at debug level to stderr")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(requeueCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
