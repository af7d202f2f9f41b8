package tabs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/vibetemplate/prompthub/internal/contextfactory"
	"github.com/vibetemplate/prompthub/internal/errs"
)

// ensureContext implements steps 1-2 of spec.md §4.2's ensureTab algorithm:
// lazily initialize the browser context, deduplicating concurrent callers
// via singleflight, then probe it for liveness and recover from a single
// teardown by reinitializing once.
func (c *Controller) ensureContext(ctx context.Context) error {
	c.mu.Lock()
	live := c.browserCtx != nil && c.probeLiveLocked()
	c.mu.Unlock()
	if live {
		return nil
	}

	_, err, _ := c.initGroup.Do("context", func() (any, error) {
		c.mu.Lock()
		alreadyLive := c.browserCtx != nil && c.probeLiveLocked()
		c.mu.Unlock()
		if alreadyLive {
			return nil, nil
		}
		return nil, c.initContext()
	})
	return err
}

// probeLiveLocked lists pages on the current browser context, recovering
// from a panic raised against an already torn-down context. Caller holds
// c.mu.
func (c *Controller) probeLiveLocked() (ok bool) {
	if c.browserCtx == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	c.browserCtx.Pages()
	return true
}

func (c *Controller) initContext() error {
	c.mu.Lock()
	oldDispose := c.dispose
	c.mu.Unlock()
	if oldDispose != nil {
		_ = oldDispose()
	}

	browserCtx, dispose, err := c.factory.CreateContext()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBrowserUnavailable, err)
	}

	c.mu.Lock()
	c.browserCtx = browserCtx
	c.dispose = dispose
	c.tabs = make(map[string]*Tab)
	c.currentTabID = ""
	c.mu.Unlock()
	return nil
}

// ensureTab implements steps 3-7: reuse the current tab if it is still
// alive, else adopt a tracked-but-untracked-as-current live tab, else
// adopt an untracked live page found on the context, else open a fresh
// page. A "context closed" failure during page creation triggers exactly
// one retry after reinitializing the context.
func (c *Controller) ensureTab(ctx context.Context) (*Tab, error) {
	return c.ensureTabAttempt(ctx, false)
}

func (c *Controller) ensureTabAttempt(ctx context.Context, retried bool) (*Tab, error) {
	if err := c.ensureContext(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pruneClosedLocked()

	if t, ok := c.tabs[c.currentTabID]; ok && !t.IsClosed() {
		c.mu.Unlock()
		return t, nil
	}

	for id, t := range c.tabs {
		if !t.IsClosed() {
			c.currentTabID = id
			c.mu.Unlock()
			return t, nil
		}
	}

	browserCtx := c.browserCtx
	c.mu.Unlock()

	if adopted := c.adoptUntrackedPage(browserCtx); adopted != nil {
		return adopted, nil
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		if !retried && isContextClosedError(err) {
			c.mu.Lock()
			c.browserCtx = nil
			c.mu.Unlock()
			return c.ensureTabAttempt(ctx, true)
		}
		return nil, fmt.Errorf("%w: creating page: %v", errs.ErrBrowserUnavailable, err)
	}

	return c.trackNewPage(page), nil
}

// adoptUntrackedPage scans the live context for a page this Controller
// isn't already tracking and claims the first open one found.
func (c *Controller) adoptUntrackedPage(browserCtx *contextfactory.Context) *Tab {
	if browserCtx == nil {
		return nil
	}

	pages := browserCtx.Pages()

	c.mu.Lock()
	defer c.mu.Unlock()

	tracked := make(map[playwright.Page]bool, len(c.tabs))
	for _, t := range c.tabs {
		tracked[t.Page] = true
	}

	for _, p := range pages {
		if tracked[p] {
			continue
		}
		t := newTab(uuid.NewString(), p)
		if t.IsClosed() {
			continue
		}
		c.tabs[t.ID] = t
		c.currentTabID = t.ID
		return t
	}
	return nil
}

func (c *Controller) trackNewPage(page playwright.Page) *Tab {
	t := newTab(uuid.NewString(), page)

	c.mu.Lock()
	c.tabs[t.ID] = t
	c.currentTabID = t.ID
	c.mu.Unlock()

	return t
}

func isContextClosedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "closed")
}
