package adapter

// Role identifies a UI element a SelectorProfile locates candidates for.
type Role string

const (
	RoleInputArea     Role = "inputArea"
	RoleSendButton    Role = "sendButton"
	RoleChatContainer Role = "chatContainer"
	RoleLastMessage   Role = "lastMessage"
)

// SelectorProfile is a per-site, per-role ordered list of CSS-like selector
// candidates. Order expresses preference: the first visible+enabled match
// wins (spec.md §3, "SelectorProfile").
type SelectorProfile struct {
	InputArea     []string `yaml:"inputArea" json:"inputArea"`
	SendButton    []string `yaml:"sendButton" json:"sendButton"`
	ChatContainer []string `yaml:"chatContainer" json:"chatContainer"`
	LastMessage   []string `yaml:"lastMessage" json:"lastMessage"`
}

// For returns the candidate selector list for a role.
func (p SelectorProfile) For(role Role) []string {
	switch role {
	case RoleInputArea:
		return p.InputArea
	case RoleSendButton:
		return p.SendButton
	case RoleChatContainer:
		return p.ChatContainer
	case RoleLastMessage:
		return p.LastMessage
	default:
		return nil
	}
}
