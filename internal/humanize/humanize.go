// Package humanize provides the small utilities (spec.md §2, C7) shared by
// the Site Adapter and Tab Controller: human-behavior delays, a network-idle
// waiter, and a challenge-page detector. None of these solve anything — per
// spec.md's Non-goals, a challenge page is detected and waited out, never
// bypassed.
package humanize

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Sleep blocks for d or until ctx is done, whichever comes first — honoring
// cancellation instead of blocking past a caller's timeout budget.
func Sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// Delay returns a random duration in [minMs, maxMs) milliseconds, grounded
// on the jitter pattern in the teacher's cursor.go ("1-3px jitter per
// step").
func Delay(minMs, maxMs int) time.Duration {
	return time.Duration(IntRange(minMs, maxMs)) * time.Millisecond
}

// IntRange returns a random int in [min, max).
func IntRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min)
}

// Jitter returns n plus or minus a random fraction of n scaled by frac,
// the general form of the teacher's per-step pixel jitter applied to any
// base quantity (ms delays, pixel offsets).
func Jitter(n int, frac float64) int {
	if n == 0 {
		return 0
	}
	spread := float64(n) * frac
	return n + int((rand.Float64()-0.5)*2*spread)
}

// WaitForNetworkIdle blocks until the page reports no in-flight network
// activity for its idle window, or timeout elapses. Best-effort: a timeout
// is not an error (spec.md §4.2, "Navigation policy").
func WaitForNetworkIdle(page playwright.Page, timeout time.Duration) {
	_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// challengeMarkers are substrings seen in the title or body of common
// bot-challenge interstitials (Cloudflare, generic "verify you are human"
// pages). Detection only — per spec.md's Non-goals, nothing here attempts
// to solve or bypass a challenge.
var challengeMarkers = []string{
	"Just a moment",
	"Checking your browser",
	"Verify you are human",
	"Attention Required",
}

// IsChallengePage reports whether the page's current title matches a known
// bot-challenge interstitial pattern.
func IsChallengePage(page playwright.Page) bool {
	title, err := page.Title()
	if err != nil {
		return false
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(strings.ToLower(title), strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// WaitOutChallenge polls IsChallengePage until it clears or timeout
// elapses, sleeping poll between checks. Returns false if the challenge is
// still present when it returns — the caller decides whether that's fatal.
func WaitOutChallenge(ctx context.Context, page playwright.Page, timeout, poll time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !IsChallengePage(page) {
			return true
		}
		Sleep(ctx, poll)
		if ctx.Err() != nil {
			return false
		}
	}
	return !IsChallengePage(page)
}
