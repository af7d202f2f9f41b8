package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefCacheRemembersPerRole(t *testing.T) {
	c := newRefCache()

	if _, ok := c.get("input"); ok {
		t.Fatal("fresh cache should have no hint")
	}

	c.remember("input", "#prompt-textarea")
	c.remember("send", "button[data-testid=send-button]")

	sel, ok := c.get("input")
	assert.True(t, ok)
	assert.Equal(t, "#prompt-textarea", sel)

	sel, ok = c.get("send")
	assert.True(t, ok)
	assert.Equal(t, "button[data-testid=send-button]", sel)
}
