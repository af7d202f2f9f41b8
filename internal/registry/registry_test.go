package registry

import (
	"context"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibetemplate/prompthub/internal/adapter"
)

func TestGetByID(t *testing.T) {
	r := New(adapter.All()...)

	got, err := r.GetByID("claude")
	require.NoError(t, err)
	assert.Equal(t, "claude", got.WebsiteID())

	_, err = r.GetByID("nonexistent")
	assert.Error(t, err)
}

func TestGetByURLFallback(t *testing.T) {
	// spec.md scenario S5: deepseek is resolved purely by URL, no explicit
	// site id lookup.
	r := New(adapter.All()...)

	got, err := r.GetByURL("https://chat.deepseek.com/a/session/123")
	require.NoError(t, err)
	assert.Equal(t, "deepseek", got.WebsiteID())

	_, err = r.GetByURL("https://example.com/unrelated")
	assert.Error(t, err)
}

func TestGetByURLFirstMatchWins(t *testing.T) {
	always := stubAdapter{id: "always", match: true}
	never := stubAdapter{id: "never", match: false}

	r := New(always, never)
	got, err := r.GetByURL("https://anything")
	require.NoError(t, err)
	assert.Equal(t, "always", got.WebsiteID())
}

func TestDuplicateWebsiteIDIgnoresLater(t *testing.T) {
	first := stubAdapter{id: "dup", match: true}
	second := stubAdapter{id: "dup", match: false}

	r := New(first, second)
	assert.Len(t, r.List(), 1)
	got, _ := r.GetByID("dup")
	assert.Equal(t, first, got)
}

type stubAdapter struct {
	id    string
	match bool
}

func (s stubAdapter) WebsiteID() string                 { return s.id }
func (s stubAdapter) DisplayName() string               { return s.id }
func (s stubAdapter) HomeURL() string                   { return "https://" + s.id }
func (s stubAdapter) RequiresProxy() bool               { return false }
func (s stubAdapter) Selectors() adapter.SelectorProfile { return adapter.SelectorProfile{} }
func (s stubAdapter) URLMatcher(string) bool            { return s.match }
func (s stubAdapter) ExecutePrompt(ctx context.Context, page playwright.Page, prompt string) error {
	return nil
}
