package browser

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ScreenshotDebugger captures full-page screenshots when a scrape goes wrong.
// A nil debugger does nothing.
type ScreenshotDebugger struct {
	outputDir string
}

func NewScreenshotDebugger(dir string) *ScreenshotDebugger {
	if dir == "" {
		dir = filepath.Join(".", "logs", "screenshots")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("⚠️ Screenshots disabled: %v", err)
		return nil
	}
	return &ScreenshotDebugger{outputDir: dir}
}

func (s *ScreenshotDebugger) CaptureAndLog(page playwright.Page, name, message string) {
	if s == nil || page == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", name, timestamp))
	log.Printf("📸 %s", message)

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		log.Printf("⚠️ Failed to capture screenshot: %v", err)
		return
	}
	log.Printf("   Screenshot saved: %s", path)
}
