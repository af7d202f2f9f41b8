package tabs

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/vibetemplate/prompthub/internal/errs"
)

// Cookie is the externally-visible cookie shape (spec.md's distillation
// dropped cookie inspection; supplemented here, grounded on the teacher's
// storage.go, since adapters depend on session cookies surviving a
// reconnect).
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// GetCookies returns every cookie visible to tabID's page.
func (c *Controller) GetCookies(ctx context.Context, tabID string) ([]Cookie, error) {
	if err := c.ensureContext(ctx); err != nil {
		return nil, err
	}

	tab, err := c.liveTab(tabID)
	if err != nil {
		return nil, err
	}

	pwCookies, err := tab.Page.Context().Cookies()
	if err != nil {
		return nil, fmt.Errorf("%w: reading cookies: %v", errs.ErrAdapterFailure, err)
	}

	cookies := make([]Cookie, len(pwCookies))
	for i, cc := range pwCookies {
		sameSite := ""
		if cc.SameSite != nil {
			sameSite = string(*cc.SameSite)
		}
		cookies[i] = Cookie{
			Name:     cc.Name,
			Value:    cc.Value,
			Domain:   cc.Domain,
			Path:     cc.Path,
			Expires:  cc.Expires,
			HTTPOnly: cc.HttpOnly,
			Secure:   cc.Secure,
			SameSite: sameSite,
		}
	}
	return cookies, nil
}

// SetCookie adds or overwrites a cookie on tabID's page's browser context.
// The cookie must carry a Domain+Path (the URL form the teacher also
// accepts is not needed here since adapters always operate on a known
// site's page).
func (c *Controller) SetCookie(ctx context.Context, tabID string, cookie Cookie) error {
	if cookie.Name == "" {
		return fmt.Errorf("%w: cookie name is required", errs.ErrAdapterFailure)
	}
	if cookie.Domain == "" || cookie.Path == "" {
		return fmt.Errorf("%w: cookie requires domain and path", errs.ErrAdapterFailure)
	}

	if err := c.ensureContext(ctx); err != nil {
		return err
	}

	tab, err := c.liveTab(tabID)
	if err != nil {
		return err
	}

	opt := playwright.OptionalCookie{
		Name:    cookie.Name,
		Value:   cookie.Value,
		Domain:  playwright.String(cookie.Domain),
		Path:    playwright.String(cookie.Path),
		Expires: playwright.Float(cookie.Expires),
		Secure:  playwright.Bool(cookie.Secure),
	}
	if cookie.HTTPOnly {
		opt.HttpOnly = playwright.Bool(true)
	}

	if err := tab.Page.Context().AddCookies([]playwright.OptionalCookie{opt}); err != nil {
		return fmt.Errorf("%w: setting cookie: %v", errs.ErrAdapterFailure, err)
	}
	return nil
}
