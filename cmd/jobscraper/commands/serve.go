package commands

import (
	"log"

	"github.com/spf13/cobra"

	"ds-job-scraper/internal/config"
	"ds-job-scraper/internal/dashboard"
	"ds-job-scraper/internal/httpclient"
	"ds-job-scraper/internal/metrics"
	"ds-job-scraper/internal/storage"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to dashboard.addr).")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--addr :8080]",
	Short: "Serves the archive and its stats over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		store, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			// the dashboard can still serve the local file or the fallback url
			log.Printf("[dashboard] ⚠️ Remote storage unavailable: %v", err)
		}
		if store != nil {
			defer store.Close()
		}

		keys := storage.Keys{Prefix: cfg.Storage.Prefix}
		am := metrics.NewArchiveMetrics()
		loader := dashboard.NewLoader(dashboard.LoaderOptions{
			Store:       store,
			Keys:        keys,
			LocalPath:   cfg.Archive.Path,
			FallbackURL: cfg.Dashboard.FallbackURL,
			Client: httpclient.New(httpclient.Options{
				Timeout: cfg.HTTP.Timeout.Duration,
				Retries: cfg.HTTP.Retries,
			}),
			TTL:     cfg.Dashboard.CacheTTL.Duration,
			Metrics: am,
		})

		addr := serveAddr
		if addr == "" {
			addr = cfg.Dashboard.Addr
		}
		return dashboard.NewServer(loader, store, keys, am).Run(ctx, addr)
	},
}
