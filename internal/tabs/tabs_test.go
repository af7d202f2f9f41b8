package tabs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	"github.com/vibetemplate/prompthub/internal/contextfactory"
	"github.com/vibetemplate/prompthub/internal/errs"
	"github.com/vibetemplate/prompthub/internal/registry"
)

// launchFactory is a minimal contextfactory.Factory backed by a real
// headless Chromium launch, mirroring the teacher's own integration test
// style (browser_test.go) rather than a hand-rolled fake of the large
// playwright.Page interface.
type launchFactory struct{}

func (launchFactory) CreateContext() (*contextfactory.Context, contextfactory.Disposer, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, nil, err
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, nil, err
	}
	bctx, err := browser.NewContext()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, nil, err
	}

	ctx := &contextfactory.Context{
		Browser: browser,
		PW:      pw,
		Pages: func() []playwright.Page {
			return bctx.Pages()
		},
		NewPage: func() (playwright.Page, error) {
			return bctx.NewPage()
		},
	}
	dispose := func() error {
		_ = browser.Close()
		return pw.Stop()
	}
	return ctx, dispose, nil
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	return New(launchFactory{}, registry.New())
}

func TestOpenTabReusesCurrentTab(t *testing.T) {
	c := newTestController(t)
	defer c.Shutdown()

	id1, err := c.OpenTab(context.Background(), "about:blank")
	require.NoError(t, err)

	id2, err := c.OpenTab(context.Background(), "about:blank")
	require.NoError(t, err)

	require.Equal(t, id1, id2, "a single logical tab should be reused across OpenTab calls")
	require.Len(t, c.GetTabs(), 1)
}

// TestGetTabsPrunesExternallyClosedTabs grounds scenario S4 and invariant
// I1: a page closed out-of-band (not via CloseTab) must never appear in a
// later getTabs() snapshot, and operating on its tab id must fail with
// ErrTabClosed or ErrTabNotFound rather than panicking.
func TestGetTabsPrunesExternallyClosedTabs(t *testing.T) {
	c := newTestController(t)
	defer c.Shutdown()

	firstID, err := c.OpenTab(context.Background(), "about:blank")
	require.NoError(t, err)

	c.mu.Lock()
	firstTab := c.tabs[firstID]
	c.mu.Unlock()
	require.NotNil(t, firstTab)

	// Force a second tab into the table so closing the first doesn't leave
	// the table empty, then close the first out-of-band.
	secondPage, err := c.browserCtx.NewPage()
	require.NoError(t, err)
	c.mu.Lock()
	second := newTab("forced-second", secondPage)
	c.tabs[second.ID] = second
	c.mu.Unlock()

	require.NoError(t, firstTab.Page.Close())

	// Allow the OnClose listener's async delivery to land.
	require.Eventually(t, func() bool {
		return firstTab.IsClosed()
	}, 2*time.Second, 10*time.Millisecond)

	live := c.GetTabs()
	require.Len(t, live, 1)
	require.Equal(t, second.ID, live[0].ID)

	_, err = c.GetPageContent(context.Background(), firstID)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrTabNotFound) || errors.Is(err, errs.ErrTabClosed))
}

func TestCloseTabTwiceReturnsTabNotFound(t *testing.T) {
	c := newTestController(t)
	defer c.Shutdown()

	id, err := c.OpenTab(context.Background(), "about:blank")
	require.NoError(t, err)

	require.NoError(t, c.CloseTab(context.Background(), id))
	err = c.CloseTab(context.Background(), id)
	require.True(t, errors.Is(err, errs.ErrTabNotFound))
}

func TestExecutePromptFailsWithoutAdapter(t *testing.T) {
	c := newTestController(t)
	defer c.Shutdown()

	id, err := c.OpenTab(context.Background(), "about:blank")
	require.NoError(t, err)

	err = c.ExecutePrompt(context.Background(), id, "", "hello")
	require.True(t, errors.Is(err, errs.ErrAdapterMissing))
}
