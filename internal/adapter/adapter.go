// Package adapter implements the Site Adapter Framework (spec.md §4.3/§4.4):
// per-site policies describing how to locate an input field, type
// human-like text, press send, and detect that a response has completed.
package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/vibetemplate/prompthub/internal/errs"
	"github.com/vibetemplate/prompthub/internal/humanize"
)

// Adapter is the per-site policy contract. Adapters carry no mutable state
// (spec.md §9, DESIGN NOTES): all fields are fixed at construction.
type Adapter interface {
	WebsiteID() string
	DisplayName() string
	HomeURL() string
	RequiresProxy() bool
	Selectors() SelectorProfile
	URLMatcher(url string) bool

	// ExecutePrompt types prompt into the page's input, submits it, and
	// waits for the response to complete (spec.md §4.3 steps 1-8).
	ExecutePrompt(ctx context.Context, page playwright.Page, prompt string) error
}

// Info is the immutable, externally-visible identity of an adapter
// (spec.md §3, "Adapter identity").
type Info struct {
	WebsiteID     string
	DisplayName   string
	HomeURL       string
	RequiresProxy bool
}

// ResponseWaiter is the method shape of a step-8 response wait. Base's
// ExecutePrompt does not consult it; Base-built adapters supply their
// step-8 override through Base.OnResponse instead.
type ResponseWaiter interface {
	WaitForResponse(ctx context.Context, page playwright.Page)
}

// Base implements the common typing/submit algorithm (spec.md §4.3) against
// a SelectorProfile. Concrete adapters embed Base and supply Info,
// selectors, a URL matcher, and optionally an OnResponse step-8 override.
type Base struct {
	Info
	Profile    SelectorProfile
	URLMatch   func(url string) bool
	OnResponse func(ctx context.Context, page playwright.Page) // optional override
}

func (b Base) WebsiteID() string        { return b.Info.WebsiteID }
func (b Base) DisplayName() string      { return b.Info.DisplayName }
func (b Base) HomeURL() string          { return b.Info.HomeURL }
func (b Base) RequiresProxy() bool      { return b.Info.RequiresProxy }
func (b Base) Selectors() SelectorProfile { return b.Profile }

func (b Base) URLMatcher(url string) bool {
	if b.URLMatch == nil {
		return false
	}
	return b.URLMatch(url)
}

// ExecutePrompt implements spec.md §4.3's numbered algorithm.
func (b Base) ExecutePrompt(ctx context.Context, page playwright.Page, prompt string) error {
	if prompt == "" {
		return fmt.Errorf("%w: empty prompt", errs.ErrAdapterFailure)
	}

	// 1. Wait until DOM is ready (<=10s, ignore timeout).
	_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(10000),
	})

	// 2. Sleep a random 1.2-2.0s "think" delay.
	humanize.Sleep(ctx, humanize.Delay(1200, 2000))

	// 3. Locate input.
	inputLocator, err := locateVisibleEnabled(page, "input", b.Profile.InputArea)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInputNotFound, err)
	}

	// 4. Hover -> short random delay -> click -> focus as fallback. Clear
	// existing content (select-all then delete).
	_ = inputLocator.Hover()
	humanize.Sleep(ctx, humanize.Delay(80, 220))
	if err := inputLocator.Click(playwright.LocatorClickOptions{
		Delay: playwright.Float(float64(humanize.IntRange(10, 60))),
	}); err != nil {
		if ferr := inputLocator.Focus(); ferr != nil {
			return fmt.Errorf("%w: could not focus input: %v", errs.ErrAdapterFailure, ferr)
		}
	}
	if err := clearInput(inputLocator); err != nil {
		return fmt.Errorf("%w: could not clear input: %v", errs.ErrAdapterFailure, err)
	}

	// 5. Human typing: 1-3 char chunks, 40-120ms per-char delay, 20% chance
	// of an extra 80-280ms pause after each chunk.
	if err := humanType(ctx, page, inputLocator, prompt); err != nil {
		return fmt.Errorf("%w: typing failed: %v", errs.ErrAdapterFailure, err)
	}

	// 6. Sleep a 0.8-1.6s "pre-send" delay.
	humanize.Sleep(ctx, humanize.Delay(800, 1600))

	// 7. Locate send: if found, hover/click; otherwise press Enter.
	sendLocator, err := locateVisibleEnabled(page, "send", b.Profile.SendButton)
	if err == nil {
		_ = sendLocator.Hover()
		humanize.Sleep(ctx, humanize.Delay(60, 180))
		if cerr := sendLocator.Click(); cerr != nil {
			if perr := page.Keyboard().Press("Enter"); perr != nil {
				return fmt.Errorf("%w: could not submit: %v", errs.ErrAdapterFailure, perr)
			}
		}
	} else {
		if perr := page.Keyboard().Press("Enter"); perr != nil {
			return fmt.Errorf("%w: could not submit: %v", errs.ErrAdapterFailure, perr)
		}
	}

	// 8. waitForResponse: adapters MAY override; default is a 2s sleep.
	if b.OnResponse != nil {
		b.OnResponse(ctx, page)
	} else {
		humanize.Sleep(ctx, 2*time.Second)
	}

	return nil
}

// locateVisibleEnabled walks selectors in order and returns the first whose
// element is both visible and enabled (spec.md §4.3 step 3 / §3). role's
// previously-successful selector, if cached, is tried first.
func locateVisibleEnabled(page playwright.Page, role string, selectors []string) (playwright.Locator, error) {
	cache := refCacheFor(page)

	if sel, ok := cache.get(role); ok {
		if locator, ok := checkVisibleEnabled(page, sel); ok {
			return locator, nil
		}
	}

	for _, sel := range selectors {
		locator, ok := checkVisibleEnabled(page, sel)
		if !ok {
			continue
		}
		cache.remember(role, sel)
		return locator, nil
	}
	return nil, fmt.Errorf("no candidate selector matched a visible, enabled element (tried %d)", len(selectors))
}

func checkVisibleEnabled(page playwright.Page, sel string) (playwright.Locator, bool) {
	locator := page.Locator(sel).First()
	visible, err := locator.IsVisible()
	if err != nil || !visible {
		return nil, false
	}
	enabled, err := locator.IsEnabled()
	if err != nil || !enabled {
		return nil, false
	}
	return locator, true
}

// clearInput selects all existing content then deletes it.
func clearInput(locator playwright.Locator) error {
	modifier := "Control"
	if err := locator.Press(modifier + "+a"); err != nil {
		// Meta is the macOS equivalent of Control for select-all.
		if err := locator.Press("Meta+a"); err != nil {
			return err
		}
	}
	return locator.Press("Backspace")
}

// humanType emits text in 1-3 character chunks with a 40-120ms per-char
// delay, and a 20% chance of an extra 80-280ms pause after each chunk.
func humanType(ctx context.Context, page playwright.Page, locator playwright.Locator, text string) error {
	runes := []rune(text)
	for i := 0; i < len(runes); {
		n := humanize.IntRange(1, 4)
		if i+n > len(runes) {
			n = len(runes) - i
		}
		chunk := string(runes[i : i+n])
		if err := locator.Type(chunk, playwright.LocatorTypeOptions{
			Delay: playwright.Float(float64(humanize.IntRange(40, 120))),
		}); err != nil {
			return err
		}
		i += n

		if rand.Float64() < 0.2 {
			humanize.Sleep(ctx, humanize.Delay(80, 280))
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	_ = page
	return nil
}

