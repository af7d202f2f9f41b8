package contextfactory

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/vibetemplate/prompthub/internal/errs"
	"github.com/vibetemplate/prompthub/internal/relay"
)

// RelayBackedFactory starts its own internal/relay.Server on a loopback
// port, then connects a Playwright client back to that same relay's /cdp
// endpoint — resolving the cyclic relay/factory dependency noted in
// spec.md §9 by binding first and only then handing the endpoint URL to
// the connecting client.
type RelayBackedFactory struct {
	authHeaders map[string]string
}

// NewRelayBackedFactory builds a RelayBackedFactory. authHeaders, if
// non-empty, are sent on the outbound CDP connection to the relay (e.g. a
// bearer token); the relay does not check them.
func NewRelayBackedFactory(authHeaders map[string]string) *RelayBackedFactory {
	return &RelayBackedFactory{authHeaders: authHeaders}
}

// CreateContext implements spec.md §4.5's "Relay-backed" variant.
func (f *RelayBackedFactory) CreateContext() (*Context, Disposer, error) {
	server := relay.New()
	addr, stopRelay, err := server.Listen("127.0.0.1:0")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: starting relay: %v", errs.ErrBrowserUnavailable, err)
	}

	cdpURL := fmt.Sprintf("ws://%s/cdp", addr.String())

	pw, err := playwright.Run()
	if err != nil {
		_ = stopRelay()
		return nil, nil, fmt.Errorf("%w: starting playwright driver: %v", errs.ErrBrowserUnavailable, err)
	}

	browser, err := connectOverCDP(pw, cdpURL, f.authHeaders)
	if err != nil {
		_ = pw.Stop()
		_ = stopRelay()
		return nil, nil, err
	}

	ctx, err := wrapBrowser(pw, browser)
	if err != nil {
		_ = pw.Stop()
		_ = stopRelay()
		return nil, nil, err
	}

	dispose := func() error {
		_ = browser.Close()
		_ = pw.Stop()
		return stopRelay()
	}

	return ctx, dispose, nil
}
