// Package registry implements the Adapter Registry (spec.md §4.4): a
// lookup from website id or page URL to the Adapter that knows how to
// drive that site.
package registry

import (
	"fmt"

	"github.com/vibetemplate/prompthub/internal/adapter"
	"github.com/vibetemplate/prompthub/internal/errs"
)

// Registry resolves adapters by website id (O(1)) or by URL (first adapter
// whose URLMatcher matches, in registration order).
type Registry struct {
	byID  map[string]adapter.Adapter
	order []adapter.Adapter
}

// New builds a Registry from an explicit adapter list. Construction is
// explicit rather than a package-level singleton so callers (and tests) can
// assemble distinct registries without shared global state.
func New(adapters ...adapter.Adapter) *Registry {
	r := &Registry{
		byID:  make(map[string]adapter.Adapter, len(adapters)),
		order: make([]adapter.Adapter, 0, len(adapters)),
	}
	for _, a := range adapters {
		if _, exists := r.byID[a.WebsiteID()]; exists {
			continue
		}
		r.byID[a.WebsiteID()] = a
		r.order = append(r.order, a)
	}
	return r
}

// GetByID returns the adapter registered under the given website id.
func (r *Registry) GetByID(websiteID string) (adapter.Adapter, error) {
	a, ok := r.byID[websiteID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrAdapterMissing, websiteID)
	}
	return a, nil
}

// GetByURL returns the first registered adapter whose URLMatcher matches
// url, in registration order (spec.md §4.4, §9 "first-match-wins").
func (r *Registry) GetByURL(url string) (adapter.Adapter, error) {
	for _, a := range r.order {
		if a.URLMatcher(url) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: no adapter matches url %q", errs.ErrAdapterMissing, url)
}

// List returns all registered adapters in registration order.
func (r *Registry) List() []adapter.Adapter {
	out := make([]adapter.Adapter, len(r.order))
	copy(out, r.order)
	return out
}
