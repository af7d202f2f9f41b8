package tabs

import (
	"sync"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"
)

// Tab is the controller's record of one logical browser page (spec.md §3,
// "Tab"). Mutated only by the Controller.
type Tab struct {
	ID     string
	SiteID string

	Page playwright.Page

	mu     sync.RWMutex
	url    string
	title  string
	closed atomic.Bool
}

func newTab(id string, page playwright.Page) *Tab {
	t := &Tab{ID: id, Page: page}
	page.OnClose(func(playwright.Page) {
		t.closed.Store(true)
	})
	return t
}

// IsClosed reports whether the underlying page has closed, tracked via a
// Page.OnClose listener (mirrors the teacher's session.go pattern) rather
// than probing on every call.
func (t *Tab) IsClosed() bool {
	return t.closed.Load()
}

// URL returns the last-observed URL.
func (t *Tab) URL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.url
}

// Title returns the last-observed title.
func (t *Tab) Title() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.title
}

// refresh best-effort updates URL and title from the live page, recovering
// from a panic raised by the underlying binding against an already
// torn-down page.
func (t *Tab) refresh() {
	defer func() { _ = recover() }()

	if t.Page == nil {
		return
	}
	url := t.Page.URL()
	title, titleErr := t.Page.Title()

	t.mu.Lock()
	defer t.mu.Unlock()
	if url != "" {
		t.url = url
	}
	if titleErr == nil {
		t.title = title
	}
}

// Snapshot is the externally-visible, immutable view of a Tab returned by
// getTabs() (spec.md §4.2).
type Snapshot struct {
	ID     string
	SiteID string
	URL    string
	Title  string
}

func (t *Tab) snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{ID: t.ID, SiteID: t.SiteID, URL: t.url, Title: t.title}
}
