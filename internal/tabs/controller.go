// Package tabs implements the Tab Controller (spec.md §4.2): a façade
// owning a browser context and a collection of live tabs, reconciling
// intended state against pages that can close out-of-band.
package tabs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/vibetemplate/prompthub/internal/adapter"
	"github.com/vibetemplate/prompthub/internal/contextfactory"
	"github.com/vibetemplate/prompthub/internal/errs"
	"github.com/vibetemplate/prompthub/internal/humanize"
	"github.com/vibetemplate/prompthub/internal/logging"
	"github.com/vibetemplate/prompthub/internal/registry"
)

// sweepSchedule prunes the tab table independently of any inbound request,
// so a tab closed by the user in the browser (rather than via CloseTab)
// doesn't linger until the next getTabs() call.
const sweepSchedule = "@every 30s"

const (
	defaultOpTimeout  = 5 * time.Second
	navigationTimeout = 60 * time.Second
	rootSelectorWait  = 10 * time.Second
	settleDelay       = 500 * time.Millisecond
)

// Controller is the single-process owner of a BrowserContext and its Tab
// table (spec.md §3, "Ownership rules").
type Controller struct {
	factory  contextfactory.Factory
	registry *registry.Registry
	log      *slog.Logger

	mu           sync.Mutex
	browserCtx   *contextfactory.Context
	dispose      contextfactory.Disposer
	tabs         map[string]*Tab
	currentTabID string

	initGroup singleflight.Group
	sweeper   *cron.Cron
}

// New builds a Controller against the given context factory and adapter
// registry.
func New(factory contextfactory.Factory, reg *registry.Registry) *Controller {
	return &Controller{
		factory:  factory,
		registry: reg,
		log:      logging.Named("tab-controller"),
		tabs:     make(map[string]*Tab),
	}
}

// StartSweeper launches the periodic reconciliation sweep (spec.md §4.2,
// "periodic reconciliation") that prunes stale tabs even absent any
// inbound request. Safe to call at most once per Controller.
func (c *Controller) StartSweeper() {
	c.sweeper = cron.New()
	_, err := c.sweeper.AddFunc(sweepSchedule, func() {
		pruned := c.GetTabs()
		c.log.Debug("reconciliation sweep", "live_tabs", len(pruned))
	})
	if err != nil {
		c.log.Error("failed to schedule tab sweep", "error", err)
		return
	}
	c.sweeper.Start()
}

// --- public contract (spec.md §4.2) -------------------------------------

// OpenTab navigates a reconciled current tab to url, adopting or creating
// one as needed, and returns its id.
func (c *Controller) OpenTab(ctx context.Context, url string) (string, error) {
	tab, err := c.ensureTab(ctx)
	if err != nil {
		return "", err
	}

	if err := c.navigate(ctx, tab, url); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrNavigationFailed, err)
	}
	tab.refresh()

	return tab.ID, nil
}

// CloseTab closes the page and removes the tab from the table. A page that
// is already closed is not an error; an id no longer in the table (for
// example one already passed to CloseTab) returns ErrTabNotFound.
func (c *Controller) CloseTab(ctx context.Context, tabID string) error {
	if err := c.ensureContext(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	tab, ok := c.tabs[tabID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrTabNotFound, tabID)
	}

	if !tab.IsClosed() {
		_ = tab.Page.Close()
	}

	c.mu.Lock()
	delete(c.tabs, tabID)
	if c.currentTabID == tabID {
		c.currentTabID = ""
	}
	c.mu.Unlock()
	return nil
}

// ExecutePrompt resolves siteID (falling back to URL-based detection),
// then runs the adapter's typing/submit/wait sequence against tabID's page.
func (c *Controller) ExecutePrompt(ctx context.Context, tabID, siteID, prompt string) error {
	if err := c.ensureContext(ctx); err != nil {
		return err
	}

	tab, err := c.liveTab(tabID)
	if err != nil {
		return err
	}

	a, err := c.resolveAdapter(siteID, tab.Page.URL())
	if err != nil {
		return err
	}

	if err := a.ExecutePrompt(ctx, tab.Page, prompt); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrAdapterFailure, err)
	}
	tab.SiteID = a.WebsiteID()
	tab.refresh()
	return nil
}

// GetPageContent returns the full serialized HTML of tabID's page.
func (c *Controller) GetPageContent(ctx context.Context, tabID string) (string, error) {
	if err := c.ensureContext(ctx); err != nil {
		return "", err
	}

	tab, err := c.liveTab(tabID)
	if err != nil {
		return "", err
	}

	content, err := tab.Page.Content()
	if err != nil {
		return "", fmt.Errorf("%w: reading page content: %v", errs.ErrAdapterFailure, err)
	}
	return content, nil
}

// GetTabs returns a snapshot of live tabs, pruning stale ones first.
func (c *Controller) GetTabs() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneClosedLocked()

	out := make([]Snapshot, 0, len(c.tabs))
	for _, t := range c.tabs {
		out = append(out, t.snapshot())
	}
	return out
}

// SupportedWebsites returns the registry's adapter list, site-id first.
func (c *Controller) SupportedWebsites() []adapter.Info {
	adapters := c.registry.List()
	out := make([]adapter.Info, 0, len(adapters))
	for _, a := range adapters {
		out = append(out, adapter.Info{
			WebsiteID:     a.WebsiteID(),
			DisplayName:   a.DisplayName(),
			HomeURL:       a.HomeURL(),
			RequiresProxy: a.RequiresProxy(),
		})
	}
	return out
}

// Shutdown closes every tracked page and disposes the browser context via
// the factory's disposer. Idempotent.
func (c *Controller) Shutdown() error {
	if c.sweeper != nil {
		c.sweeper.Stop()
	}

	c.mu.Lock()
	tabs := make([]*Tab, 0, len(c.tabs))
	for _, t := range c.tabs {
		tabs = append(tabs, t)
	}
	c.tabs = make(map[string]*Tab)
	c.currentTabID = ""
	dispose := c.dispose
	c.browserCtx = nil
	c.dispose = nil
	c.mu.Unlock()

	for _, t := range tabs {
		if !t.IsClosed() {
			_ = t.Page.Close()
		}
	}

	if dispose == nil {
		return nil
	}
	return dispose()
}

// --- helpers -------------------------------------------------------------

func (c *Controller) liveTab(tabID string) (*Tab, error) {
	c.mu.Lock()
	tab, ok := c.tabs[tabID]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrTabNotFound, tabID)
	}
	if tab.IsClosed() {
		c.mu.Lock()
		delete(c.tabs, tabID)
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", errs.ErrTabClosed, tabID)
	}
	return tab, nil
}

func (c *Controller) resolveAdapter(siteID, url string) (adapter.Adapter, error) {
	if siteID != "" {
		if a, err := c.registry.GetByID(siteID); err == nil {
			return a, nil
		}
	}
	return c.registry.GetByURL(url)
}

func (c *Controller) navigate(ctx context.Context, tab *Tab, url string) error {
	if _, err := tab.Page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(navigationTimeout.Milliseconds())),
	}); err != nil {
		return err
	}

	// Best-effort from here on: a timeout never fails the operation
	// (spec.md §4.2, "Navigation policy").
	humanize.WaitForNetworkIdle(tab.Page, rootSelectorWait)
	if humanize.IsChallengePage(tab.Page) {
		c.log.Warn("challenge page detected after navigation", "tab", tab.ID, "url", url)
	}
	time.Sleep(settleDelay)
	return nil
}

func (c *Controller) pruneClosedLocked() {
	for id, t := range c.tabs {
		if t.IsClosed() {
			delete(c.tabs, id)
		}
	}
}
