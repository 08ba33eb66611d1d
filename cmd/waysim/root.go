// The waysim command runs set-associative cache simulations from the command
// line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "waysim",
	Short: "Waysim simulates set-associative caches.",
	Long: `Waysim simulates a set-associative write-back cache in front of a ` +
		`fixed-latency memory, driven by randomized read and write traffic.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %s\n", err)
	}

	err = rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
