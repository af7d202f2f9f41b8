package adapter

import (
	"sync"

	"github.com/playwright-community/playwright-go"
)

// RefCache remembers, per page and logical role ("input", "send"), which
// selector out of a SelectorProfile's ordered candidates last resolved to a
// visible, enabled element. Selector profiles remain the primary lookup
// mechanism; a cache hit only lets a repeated call skip re-walking the
// candidate list from the top.
type RefCache struct {
	mu   sync.Mutex
	hint map[string]string // role -> selector
}

func newRefCache() *RefCache {
	return &RefCache{hint: make(map[string]string)}
}

func (c *RefCache) get(role string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel, ok := c.hint[role]
	return sel, ok
}

func (c *RefCache) remember(role, selector string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hint[role] = selector
}

// pageRefCaches holds one RefCache per live page. Adapters are stateless
// (spec.md §9, DESIGN NOTES), so the cache lives alongside the page rather
// than on the Base struct.
var pageRefCaches sync.Map // playwright.Page -> *RefCache

func refCacheFor(page playwright.Page) *RefCache {
	if v, ok := pageRefCaches.Load(page); ok {
		return v.(*RefCache)
	}
	cache := newRefCache()
	actual, _ := pageRefCaches.LoadOrStore(page, cache)
	return actual.(*RefCache)
}
