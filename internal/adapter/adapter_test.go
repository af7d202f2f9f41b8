package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorProfileFor(t *testing.T) {
	profile := SelectorProfile{
		InputArea:     []string{"#input"},
		SendButton:    []string{"#send"},
		ChatContainer: []string{"#container"},
		LastMessage:   []string{"#last"},
	}

	assert.Equal(t, []string{"#input"}, profile.For(RoleInputArea))
	assert.Equal(t, []string{"#send"}, profile.For(RoleSendButton))
	assert.Equal(t, []string{"#container"}, profile.For(RoleChatContainer))
	assert.Equal(t, []string{"#last"}, profile.For(RoleLastMessage))
	assert.Nil(t, profile.For(Role("unknown")))
}

func TestBuiltinAdaptersHaveDistinctIDs(t *testing.T) {
	adapters := All()
	require.Len(t, adapters, 4)

	seen := map[string]bool{}
	for _, a := range adapters {
		require.NotEmpty(t, a.WebsiteID())
		require.False(t, seen[a.WebsiteID()], "duplicate website id %q", a.WebsiteID())
		seen[a.WebsiteID()] = true

		require.NotEmpty(t, a.DisplayName())
		require.NotEmpty(t, a.HomeURL())
		require.NotEmpty(t, a.Selectors().InputArea)
	}
}

func TestURLMatcherHostSuffix(t *testing.T) {
	chatgpt := NewChatGPT()
	assert.True(t, chatgpt.URLMatcher("https://chatgpt.com/c/123"))
	assert.True(t, chatgpt.URLMatcher("https://chat.openai.com/"))
	assert.False(t, chatgpt.URLMatcher("https://claude.ai/"))

	deepseek := NewDeepSeek()
	assert.True(t, deepseek.URLMatcher("https://chat.deepseek.com/a/b"))
	assert.False(t, deepseek.URLMatcher("https://chatgpt.com/"))
}

func TestExecutePromptRejectsEmptyPrompt(t *testing.T) {
	b := Base{Info: Info{WebsiteID: "x"}}
	err := b.ExecutePrompt(nil, nil, "")
	require.Error(t, err)
}
