package defaults

import (
	"fmt"
	"strings"
)

// Default model names per operation.
const (
	FlashModel = "gemini-3-flash-preview"
	ProModel   = "gemini-3-pro-preview"
)

// Sampling temperatures per operation.
const (
	OrganizeTemperature   float32 = 0.7
	BrainstormTemperature float32 = 1.0
	ReviewTemperature     float32 = 0.5
)

// OrganizeSeparator 整理 prompt 中碎片之间的分隔符
const OrganizeSeparator = "\n---\n"

// AssistantPersona is the system instruction for the chat assistant. The current
// fragment context is appended by ChatSystemInstruction.
const AssistantPersona = `
You are Lumina, a calm and insightful thinking partner living inside a personal note canvas.

The user captures short, fragmented thoughts: ideas, to-dos, reading notes, plans.
Your job is to help them connect those fragments, notice patterns, and turn loose ideas into next steps.

GUIDELINES
- Ground your answers in the user's fragments when they are relevant; quote them briefly when useful.
- Be concise. Prefer a few clear sentences or a short list over long essays.
- Suggest concrete, small next actions when the user seems stuck.
- Never invent fragments the user did not write.
- Reply in the same language as the user.
`

const organizeInstruction = `Analyze these fragmented thoughts and provide a synthesis.
Categorize them into 'Themes', 'Action Items', and 'Potential Opportunities'.

Notes:
`

const reviewInstruction = `Write a reflective weekly review based on these notes. Focus on what was achieved and what needs focus next week.

Notes:
`

// Line 碎片在 prompt 中的最小表示
// Line is the minimal view of a fragment used in prompts.
type Line struct {
	Type    string
	Content string
}

// OrganizePrompt 构造整理请求：每条碎片格式为 "[type] content"
// OrganizePrompt builds the organize request; each fragment is rendered as "[type] content".
func OrganizePrompt(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("[%s] %s", l.Type, l.Content))
	}
	return organizeInstruction + strings.Join(parts, OrganizeSeparator)
}

// ReviewPrompt 构造周回顾请求：仅拼接内容
// ReviewPrompt builds the review request from fragment contents joined by newlines.
func ReviewPrompt(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, l.Content)
	}
	return reviewInstruction + strings.Join(parts, "\n")
}

func BrainstormPrompt(idea string) string {
	return fmt.Sprintf("Brainstorm 5 innovative directions or enhancements for this idea: %q", strings.TrimSpace(idea))
}

// ChatSystemInstruction 人设 + 当前碎片上下文
// ChatSystemInstruction combines the persona with the current fragment context.
func ChatSystemInstruction(lines []Line) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(AssistantPersona))
	b.WriteString("\n\n[CURRENT_FRAGMENTS]\n")
	if len(lines) == 0 {
		b.WriteString("(none yet)")
		return b.String()
	}
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- [%s] %s", l.Type, l.Content)
	}
	return b.String()
}
