package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/vibetemplate/prompthub/internal/humanize"
)

// pollResponse polls until the assistant's stop/typing indicator disappears
// and at least one assistant message element is present, or ctx/timeout
// expires. Expiry is silent: callers proceed best-effort (spec.md §4.3
// step 8, §5 B2).
func pollResponse(ctx context.Context, page playwright.Page, lastMessageSel, busySel []string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		if busySel != nil {
			if _, err := locateVisibleEnabled(page, "busy", busySel); err == nil {
				humanize.Sleep(ctx, 300*time.Millisecond)
				continue
			}
		}
		if _, err := locateVisibleEnabled(page, "lastMessage", lastMessageSel); err == nil {
			return
		}
		humanize.Sleep(ctx, 300*time.Millisecond)
	}
}

func hostSuffixMatcher(suffixes ...string) func(string) bool {
	return func(url string) bool {
		lower := strings.ToLower(url)
		for _, s := range suffixes {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// NewChatGPT returns the adapter for chat.openai.com / chatgpt.com.
func NewChatGPT() Adapter {
	profile := SelectorProfile{
		InputArea: []string{
			"#prompt-textarea",
			"div[contenteditable='true'][id='prompt-textarea']",
			"textarea[data-id='root']",
		},
		SendButton: []string{
			"button[data-testid='send-button']",
			"button[aria-label='Send prompt']",
		},
		ChatContainer: []string{
			"main div.flex.flex-col.items-center",
			"#thread",
		},
		LastMessage: []string{
			"[data-message-author-role='assistant']:last-of-type",
			"div.agent-turn:last-of-type",
		},
	}
	busy := []string{"button[aria-label='Stop generating']", "button[data-testid='stop-button']"}

	b := Base{
		Info: Info{
			WebsiteID:     "chatgpt",
			DisplayName:   "ChatGPT",
			HomeURL:       "https://chatgpt.com",
			RequiresProxy: false,
		},
		Profile:  profile,
		URLMatch: hostSuffixMatcher("chatgpt.com", "chat.openai.com"),
	}
	b.OnResponse = func(ctx context.Context, page playwright.Page) {
		pollResponse(ctx, page, profile.LastMessage, busy, 60*time.Second)
	}
	return b
}

// NewClaude returns the adapter for claude.ai.
func NewClaude() Adapter {
	profile := SelectorProfile{
		InputArea: []string{
			"div[contenteditable='true'].ProseMirror",
			"div[aria-label='Write your prompt to Claude']",
		},
		SendButton: []string{
			"button[aria-label='Send Message']",
			"button[data-testid='send-button']",
		},
		ChatContainer: []string{
			"div[data-testid='chat-container']",
		},
		LastMessage: []string{
			"div[data-testid='message-content']:last-of-type",
			"div.font-claude-message:last-of-type",
		},
	}
	busy := []string{"button[aria-label='Stop Response']"}

	b := Base{
		Info: Info{
			WebsiteID:     "claude",
			DisplayName:   "Claude",
			HomeURL:       "https://claude.ai",
			RequiresProxy: false,
		},
		Profile:  profile,
		URLMatch: hostSuffixMatcher("claude.ai"),
	}
	b.OnResponse = func(ctx context.Context, page playwright.Page) {
		pollResponse(ctx, page, profile.LastMessage, busy, 90*time.Second)
	}
	return b
}

// NewDeepSeek returns the adapter for chat.deepseek.com (spec.md scenario
// S5: resolved only via URL hostname matching, no explicit site id lookup
// in that scenario).
func NewDeepSeek() Adapter {
	profile := SelectorProfile{
		InputArea: []string{
			"textarea#chat-input",
			"textarea[placeholder^='Message']",
		},
		SendButton: []string{
			"div[role='button'][aria-label='Send']",
			"button.send-button",
		},
		ChatContainer: []string{
			"div.chat-container",
		},
		LastMessage: []string{
			"div.message-content.assistant:last-of-type",
			"div[data-role='assistant']:last-of-type",
		},
	}
	busy := []string{"div.stop-generating"}

	b := Base{
		Info: Info{
			WebsiteID:     "deepseek",
			DisplayName:   "DeepSeek",
			HomeURL:       "https://chat.deepseek.com",
			RequiresProxy: false,
		},
		Profile:  profile,
		URLMatch: hostSuffixMatcher("chat.deepseek.com"),
	}
	b.OnResponse = func(ctx context.Context, page playwright.Page) {
		pollResponse(ctx, page, profile.LastMessage, busy, 90*time.Second)
	}
	return b
}

// NewGemini returns the adapter for gemini.google.com.
func NewGemini() Adapter {
	profile := SelectorProfile{
		InputArea: []string{
			"div.ql-editor[contenteditable='true']",
			"rich-textarea div[contenteditable='true']",
		},
		SendButton: []string{
			"button[aria-label='Send message']",
		},
		ChatContainer: []string{
			"div.conversation-container",
		},
		LastMessage: []string{
			"model-response:last-of-type",
			"div.response-content:last-of-type",
		},
	}
	busy := []string{"button[aria-label='Stop response']"}

	b := Base{
		Info: Info{
			WebsiteID:     "gemini",
			DisplayName:   "Gemini",
			HomeURL:       "https://gemini.google.com",
			RequiresProxy: false,
		},
		Profile:  profile,
		URLMatch: hostSuffixMatcher("gemini.google.com"),
	}
	b.OnResponse = func(ctx context.Context, page playwright.Page) {
		pollResponse(ctx, page, profile.LastMessage, busy, 90*time.Second)
	}
	return b
}

// All returns every built-in adapter, in registration order.
func All() []Adapter {
	return []Adapter{NewChatGPT(), NewClaude(), NewDeepSeek(), NewGemini()}
}
