package browser

import (
	"github.com/playwright-community/playwright-go"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Browser owns one headless Chromium instance and one browser context.
// Tabs are opened per scrape via NewPage and closed by the caller.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
}

// NewBrowser starts Playwright and launches headless Chromium. The
// returned Browser must be Closed when the service shuts down.
func NewBrowser() (*Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, err
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-gpu",
			"--no-sandbox",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, err
	}

	ctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(defaultUserAgent),
		Viewport:          &playwright.Size{Width: 1920, Height: 1080},
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, err
	}

	return &Browser{pw: pw, browser: b, ctx: ctx}, nil
}

// NewPage opens a fresh tab in the shared context.
func (b *Browser) NewPage() (playwright.Page, error) {
	return b.ctx.NewPage()
}

// Close tears down the context, the browser, and the Playwright driver.
func (b *Browser) Close() {
	if b.ctx != nil {
		b.ctx.Close()
	}
	if b.browser != nil {
		b.browser.Close()
	}
	if b.pw != nil {
		b.pw.Stop()
	}
}
