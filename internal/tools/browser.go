package tools

import (
	"context"
	"fmt"

	"github.com/ojashyadav101/lucy/internal/errkind"
	"github.com/playwright-community/playwright-go"
)

// BrowserTool drives a headless browser for tasks the gateway's web_fetch
// can't do: filling forms, clicking through multi-step flows, and reading
// rendered (JS-dependent) page state.
type BrowserTool struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewBrowserTool launches a headless Chromium instance. Call Close when the
// process shuts down.
func NewBrowserTool() (*BrowserTool, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, errkind.Wrap(errkind.IOError, "start playwright", err)
	}
	headless := true
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: &headless})
	if err != nil {
		pw.Stop()
		return nil, errkind.Wrap(errkind.IOError, "launch chromium", err)
	}
	return &BrowserTool{pw: pw, browser: browser}, nil
}

// Close releases the browser and playwright driver process.
func (b *BrowserTool) Close() error {
	if b.browser != nil {
		b.browser.Close()
	}
	if b.pw != nil {
		return b.pw.Stop()
	}
	return nil
}

func (b *BrowserTool) Name() string        { return "browser_agent" }
func (b *BrowserTool) Description() string { return "Navigate a web page, optionally click and type, and return its visible text." }
func (b *BrowserTool) ParameterSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{
		"url":      map[string]any{"type": "string"},
		"click":    map[string]any{"type": "string"},
		"type":     map[string]any{"type": "string"},
		"type_into": map[string]any{"type": "string"},
	}, "required": []string{"url"}}
}

// Invoke navigates to the requested URL, optionally clicks a selector and
// types text into another, then returns the page's visible text content.
func (b *BrowserTool) Invoke(ctx context.Context, params map[string]any) (string, error) {
	url := stringParam(params, "url")
	if url == "" {
		return "", errkind.New(errkind.InvalidParams, "url is required")
	}

	page, err := b.browser.NewPage()
	if err != nil {
		return "", errkind.Wrap(errkind.IOError, "open browser page", err)
	}
	defer page.Close()

	if _, err := page.Goto(url); err != nil {
		return "", errkind.Wrap(errkind.Retryable, "navigate to "+url, err)
	}

	if selector := stringParam(params, "click"); selector != "" {
		if err := page.Locator(selector).Click(); err != nil {
			return "", errkind.Wrap(errkind.InvalidParams, fmt.Sprintf("click %q", selector), err)
		}
	}
	if selector := stringParam(params, "type_into"); selector != "" {
		if text := stringParam(params, "type"); text != "" {
			if err := page.Locator(selector).Fill(text); err != nil {
				return "", errkind.Wrap(errkind.InvalidParams, fmt.Sprintf("type into %q", selector), err)
			}
		}
	}

	text, err := page.InnerText("body")
	if err != nil {
		return "", errkind.Wrap(errkind.IOError, "read page body", err)
	}
	return text, nil
}
