package browser

import (
	"context"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

const hideWebdriverScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// RandomDelay waits for a random duration between min and max milliseconds,
// returning early if ctx is done
func RandomDelay(ctx context.Context, min, max int) {
	if max < min {
		max = min
	}
	d := time.Duration(rand.Intn(max-min+1)+min) * time.Millisecond
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// HumanScroll simulates human-like scrolling behavior
func HumanScroll(ctx context.Context, page playwright.Page) error {
	for i := 0; i < 3; i++ {
		if _, err := page.Evaluate("window.scrollBy(0, window.innerHeight / 2)"); err != nil {
			return err
		}
		RandomDelay(ctx, 300, 900)
	}
	// scroll back up a bit
	_, err := page.Evaluate("window.scrollBy(0, -200)")
	return err
}

// ScrollToBottom scrolls the container matching selector, or the window when
// the container is missing, to trigger lazy loading
func ScrollToBottom(page playwright.Page, selector string) error {
	container := page.Locator(selector).First()
	if n, _ := container.Count(); n > 0 {
		_, err := container.Evaluate("el => el.scrollTo(0, el.scrollHeight)", nil)
		return err
	}
	_, err := page.Evaluate("window.scrollTo(0, document.body.scrollHeight)")
	return err
}

// MouseJiggle simulates random mouse movements to prevent idle detection
func MouseJiggle(ctx context.Context, page playwright.Page) error {
	viewportSize := page.ViewportSize()
	if viewportSize == nil || viewportSize.Width == 0 || viewportSize.Height == 0 {
		return nil
	}
	for i := 0; i < 3; i++ {
		x := rand.Intn(viewportSize.Width)
		y := rand.Intn(viewportSize.Height)
		if err := page.Mouse().Move(float64(x), float64(y)); err != nil {
			return err
		}
		RandomDelay(ctx, 100, 300)
	}
	return nil
}
