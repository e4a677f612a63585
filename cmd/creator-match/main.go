// cmd/creator-match/main.go
package main

import (
	"fmt"
	"os"

	"creator-match/internal/common/config"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the base command for the creator-match CLI
var rootCmd = &cobra.Command{
	Use:   "creator-match",
	Short: "Business/creator compatibility wizard",
	Long: `creator-match walks a business through describing its social presence and
a creator's, scores the pair and optionally emails the results.

Use 'creator-match run' for the terminal wizard or 'creator-match serve' to
host wizard sessions over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default: configs/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}
