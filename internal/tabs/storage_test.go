package tabs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibetemplate/prompthub/internal/errs"
)

func TestSetCookieRejectsMissingName(t *testing.T) {
	c := newTestController(t)
	defer c.Shutdown()

	id, err := c.OpenTab(context.Background(), "about:blank")
	require.NoError(t, err)

	err = c.SetCookie(context.Background(), id, Cookie{Domain: "example.com", Path: "/"})
	require.True(t, errors.Is(err, errs.ErrAdapterFailure))
}

func TestSetCookieRejectsMissingDomainOrPath(t *testing.T) {
	c := newTestController(t)
	defer c.Shutdown()

	id, err := c.OpenTab(context.Background(), "about:blank")
	require.NoError(t, err)

	err = c.SetCookie(context.Background(), id, Cookie{Name: "session", Value: "abc", Path: "/"})
	require.True(t, errors.Is(err, errs.ErrAdapterFailure))

	err = c.SetCookie(context.Background(), id, Cookie{Name: "session", Value: "abc", Domain: "example.com"})
	require.True(t, errors.Is(err, errs.ErrAdapterFailure))
}

func TestSetCookieThenGetCookiesRoundTrips(t *testing.T) {
	c := newTestController(t)
	defer c.Shutdown()

	id, err := c.OpenTab(context.Background(), "about:blank")
	require.NoError(t, err)

	err = c.SetCookie(context.Background(), id, Cookie{
		Name:   "session",
		Value:  "abc123",
		Domain: "example.com",
		Path:   "/",
		Secure: true,
	})
	require.NoError(t, err)

	cookies, err := c.GetCookies(context.Background(), id)
	require.NoError(t, err)

	var found bool
	for _, cc := range cookies {
		if cc.Name == "session" && cc.Value == "abc123" {
			found = true
		}
	}
	require.True(t, found, "cookie set via SetCookie should be visible via GetCookies")
}

func TestGetCookiesFailsForUnknownTab(t *testing.T) {
	c := newTestController(t)
	defer c.Shutdown()

	_, err := c.GetCookies(context.Background(), "does-not-exist")
	require.True(t, errors.Is(err, errs.ErrTabNotFound))
}
