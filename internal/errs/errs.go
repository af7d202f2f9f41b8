// Package errs defines the surface-stable error taxonomy every Tab
// Controller operation returns, per spec.md §7. Callers compare with
// errors.Is against these sentinels rather than matching on message text.
package errs

import "errors"

var (
	// ErrBrowserUnavailable: the browser context could not be created after
	// retries. Fatal to the calling operation.
	ErrBrowserUnavailable = errors.New("browser unavailable")

	// ErrTabNotFound: the tab id is not present in the controller's table.
	ErrTabNotFound = errors.New("tab not found")

	// ErrTabClosed: the tab's underlying page is closed. The controller
	// prunes the tab from its table before returning this error.
	ErrTabClosed = errors.New("tab closed")

	// ErrAdapterMissing: neither an explicit site id nor URL hostname
	// matching yields a registered adapter.
	ErrAdapterMissing = errors.New("no adapter for site")

	// ErrAdapterFailure: the adapter's typing/submit/wait sequence failed.
	// Always wrapped with the adapter's own message via %w.
	ErrAdapterFailure = errors.New("adapter failure")

	// ErrNavigationFailed: Page.Goto itself failed (not a best-effort wait).
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrInputNotFound: none of a selector profile's candidate input
	// selectors matched a visible, enabled element. Fatal per spec.md §4.3.
	ErrInputNotFound = errors.New("input not found")

	// ErrRelayProtocol: malformed frame or unexpected envelope on a relay
	// socket. Never surfaced to a CDP client directly — the offending
	// socket is closed instead (spec.md §7).
	ErrRelayProtocol = errors.New("relay protocol error")
)
