package chat

import "strings"

// Role 消息角色
// Role identifies who authored a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage 构造用户消息 / builds a user message
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ModelMessage 构造模型消息 / builds a model message
func ModelMessage(content string) Message {
	return Message{Role: RoleModel, Content: content}
}

// ParseRole 归一化外部角色名（assistant 视为 model）
// ParseRole normalizes an external role name; "assistant" maps to model.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, true
	case "model", "assistant":
		return RoleModel, true
	default:
		return "", false
	}
}

// Clone 复制消息列表 / copies a message list
func Clone(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	return append([]Message(nil), messages...)
}
