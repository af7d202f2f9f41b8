// Package contextfactory implements the Context Factory (spec.md §4.5): an
// opaque producer of a browser context plus a disposer, with two
// interchangeable variants — persistent (launches a local browser) and
// relay-backed (starts the CDP relay and connects back to it).
package contextfactory

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/vibetemplate/prompthub/internal/errs"
	"github.com/vibetemplate/prompthub/internal/logging"
)

// Context wraps the single browser context the Tab Controller drives
// (spec.md §3, "BrowserContext").
type Context struct {
	Browser playwright.Browser
	PW      *playwright.Playwright
	Pages   func() []playwright.Page
	NewPage func() (playwright.Page, error)
}

// Disposer releases everything a Factory allocated for one Context.
type Disposer func() error

// Factory is the capability the Tab Controller depends on. The controller
// never inspects which concrete variant it was given (spec.md §4.5).
type Factory interface {
	CreateContext() (*Context, Disposer, error)
}

func wrapBrowser(pw *playwright.Playwright, browser playwright.Browser) (*Context, error) {
	contexts := browser.Contexts()
	var bctx playwright.BrowserContext
	if len(contexts) > 0 {
		bctx = contexts[0]
	} else {
		var err error
		bctx, err = browser.NewContext()
		if err != nil {
			return nil, fmt.Errorf("%w: creating browser context: %v", errs.ErrBrowserUnavailable, err)
		}
	}

	return &Context{
		Browser: browser,
		PW:      pw,
		Pages: func() []playwright.Page {
			return bctx.Pages()
		},
		NewPage: func() (playwright.Page, error) {
			return bctx.NewPage()
		},
	}, nil
}

func connectOverCDP(pw *playwright.Playwright, cdpURL string, headers map[string]string) (playwright.Browser, error) {
	opts := playwright.BrowserTypeConnectOverCDPOptions{}
	if len(headers) > 0 {
		opts.Headers = headers
	}
	browser, err := pw.Chromium.ConnectOverCDP(cdpURL, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect over cdp at %s: %v", errs.ErrBrowserUnavailable, cdpURL, err)
	}
	return browser, nil
}

var log = logging.Named("context-factory")
