package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ds-job-scraper/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "jobscraper",
	Short:        "jobscraper collects Data Scientist postings into a deduplicated archive.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the sources YAML config.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
