package browser

import (
	"fmt"
	"log"

	"github.com/playwright-community/playwright-go"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type LaunchOptions struct {
	Headless  bool
	UserAgent string
	// Locale and timezone make the session look like a local visitor
	Locale     string
	TimezoneID string
}

type PlaywrightManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    LaunchOptions
}

// NewPlaywright starts the playwright driver and a Chromium instance
func NewPlaywright(opts LaunchOptions) (*PlaywrightManager, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Locale == "" {
		opts.Locale = "en-US"
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}
	log.Printf("🌐 Chromium launched (headless=%v)", opts.Headless)

	return &PlaywrightManager{pw: pw, browser: browser, opts: opts}, nil
}

// NewContext opens a browser context seeded from the session, if any
func (pm *PlaywrightManager) NewContext(session *Session) (playwright.BrowserContext, error) {
	ctxOpts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(pm.opts.UserAgent),
		Locale:    playwright.String(pm.opts.Locale),
		Viewport:  &playwright.Size{Width: 1366, Height: 900},
	}
	if pm.opts.TimezoneID != "" {
		ctxOpts.TimezoneId = playwright.String(pm.opts.TimezoneID)
	}
	if session != nil && session.StorageState {
		ctxOpts.StorageStatePath = playwright.String(session.Path)
	}

	bctx, err := pm.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(hideWebdriverScript)}); err != nil {
		log.Printf("⚠️ Could not install init script: %v", err)
	}

	if session != nil && len(session.Cookies) > 0 {
		if err := bctx.AddCookies(session.Cookies); err != nil {
			bctx.Close()
			return nil, fmt.Errorf("could not add cookies: %w", err)
		}
		log.Printf("🍪 Loaded %d cookies from %s", len(session.Cookies), session.Path)
	}
	return bctx, nil
}

func (pm *PlaywrightManager) Close() error {
	var firstErr error
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			firstErr = err
		}
	}
	if pm.pw != nil {
		if err := pm.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
