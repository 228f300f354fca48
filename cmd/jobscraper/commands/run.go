package commands

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"ds-job-scraper/internal/config"
	"ds-job-scraper/internal/database"
	"ds-job-scraper/internal/httpclient"
	"ds-job-scraper/internal/metrics"
	"ds-job-scraper/internal/reporter"
	"ds-job-scraper/internal/runner"
	"ds-job-scraper/internal/scraper"
	"ds-job-scraper/internal/storage"
)

var asOf string

func init() {
	runCmd.Flags().StringVar(&asOf, "as-of", "", "Stamp every record with this date (YYYY-MM-DD) instead of now.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--as-of YYYY-MM-DD]",
	Short: "Runs every enabled source once and merges the results into the archive.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts runner.Options
		if asOf != "" {
			d, err := time.Parse("2006-01-02", asOf)
			if err != nil {
				return fmt.Errorf("invalid --as-of %q: %w", asOf, err)
			}
			opts.AsOf = &d
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log.Printf("🔧 Config loaded from %s (%d sources enabled)", configPath, len(cfg.EnabledSources()))

		return runOnce(cmd.Context(), cfg, opts)
	},
}

func runOnce(ctx context.Context, cfg *config.Config, opts runner.Options) error {
	client := httpclient.New(httpclient.Options{
		Timeout:       cfg.HTTP.Timeout.Duration,
		Retries:       cfg.HTTP.Retries,
		RatePerSecond: cfg.HTTP.RatePerSecond,
		UserAgent:     cfg.HTTP.UserAgent,
	})

	scrapers, err := scraper.Build(cfg, client)
	if err != nil {
		return err
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	var publisher *storage.Publisher
	if store != nil {
		defer store.Close()
		publisher = storage.NewPublisher(store, cfg.Storage.Prefix, cfg.Storage.Schedule)
	}

	var sinks []runner.Sink
	if cfg.DatabaseURL != "" {
		repo, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("⚠️ Database mirror disabled: %v", err)
		} else {
			defer repo.Close()
			if err := repo.EnsureSchema(ctx); err != nil {
				log.Printf("⚠️ Database mirror disabled: %v", err)
			} else {
				sinks = append(sinks, runner.DatabaseSink{Repo: repo})
			}
		}
	}

	var tg *reporter.TelegramReporter
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != 0 {
		tg, err = reporter.NewTelegramReporter(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			log.Printf("⚠️ Telegram summary disabled: %v", err)
		} else {
			sinks = append(sinks, runner.TelegramSink{Reporter: tg})
		}
	}

	if cfg.Metrics.PushgatewayURL != "" {
		sinks = append(sinks, runner.MetricsSink{
			Metrics:    metrics.NewRunMetrics(),
			GatewayURL: cfg.Metrics.PushgatewayURL,
			Job:        cfg.Metrics.Job,
		})
	}

	res, err := runner.New(cfg, scrapers, publisher, sinks...).Run(ctx, opts)
	if err != nil {
		if tg != nil {
			if sendErr := tg.SendError(err); sendErr != nil {
				log.Printf("⚠️ Failed to report error to Telegram: %v", sendErr)
			}
		}
		return err
	}

	log.Printf("📊 %d collected, %d new, archive now %d rows", len(res.Batch), len(res.New), len(res.Archive))
	return nil
}
