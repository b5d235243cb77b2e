package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xcellar/xcellar/internal/config"
)

// Build info - injected via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "xcellar",
	Short: "Xcellar marketplace and delivery platform",
	Long:  `Xcellar is the API server for the Xcellar marketplace, courier delivery and wallet platform.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize config
		_, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
