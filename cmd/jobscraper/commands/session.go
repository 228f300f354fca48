package commands

import (
	"fmt"
	"log"

	"github.com/playwright-community/playwright-go"
	"github.com/spf13/cobra"

	"ds-job-scraper/internal/browser"
	"ds-job-scraper/internal/config"
	"ds-job-scraper/internal/scraper/linkedin"
)

var (
	sessionOut     string
	sessionTimeout int
)

func init() {
	saveSessionCmd.Flags().StringVar(&sessionOut, "out", "", "Where to write the storage state (defaults to the linkedin source setting).")
	saveSessionCmd.Flags().IntVar(&sessionTimeout, "timeout", 300, "Seconds to wait for a manual login.")
	rootCmd.AddCommand(saveSessionCmd)
}

var saveSessionCmd = &cobra.Command{
	Use:   "save-session",
	Short: "Opens a browser to log into LinkedIn by hand and saves the session state.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := sessionOut
		if out == "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			for _, sc := range cfg.Sources {
				if sc.Type == config.TypeLinkedIn {
					out = sc.StorageStatePath
					break
				}
			}
		}
		if out == "" {
			return fmt.Errorf("no linkedin source configured, pass --out")
		}

		pm, err := browser.NewPlaywright(browser.LaunchOptions{Headless: false})
		if err != nil {
			return err
		}
		defer pm.Close()

		bctx, err := pm.NewContext(nil)
		if err != nil {
			return fmt.Errorf("create browser context: %w", err)
		}
		defer bctx.Close()

		page, err := bctx.NewPage()
		if err != nil {
			return fmt.Errorf("create page: %w", err)
		}
		if _, err := page.Goto(linkedin.DefaultBaseURL + "/login"); err != nil {
			return fmt.Errorf("open login page: %w", err)
		}

		log.Printf("🔐 Log in within the browser window, waiting up to %ds...", sessionTimeout)
		if _, err := page.WaitForSelector("#global-nav", playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(float64(sessionTimeout) * 1000),
		}); err != nil {
			return fmt.Errorf("login not detected: %w", err)
		}

		return browser.SaveStorageState(bctx, out)
	},
}
