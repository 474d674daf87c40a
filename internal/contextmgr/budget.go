package contextmgr

import (
	"lumina/internal/chat"
	"lumina/internal/fragment"
)

// DefaultTokenBudget 默认 prompt 上下文预算 / default prompt context budget
const DefaultTokenBudget = 24000

// Budget 按 token 预算裁剪送往模型的上下文
// Budget trims model context to a token budget. A zero or negative Max disables trimming.
type Budget struct {
	Tokenizer *Tokenizer
	Max       int
}

func NewBudget(tok *Tokenizer, max int) *Budget {
	if tok == nil {
		tok = DefaultTokenizer()
	}
	return &Budget{Tokenizer: tok, Max: max}
}

// FitFragments 保留最新的碎片直到预算用尽，保持原有顺序
// FitFragments keeps fragments from the front of the slice (newest first) until the
// budget is spent. The returned slice preserves order; at least one fragment is kept
// when the input is non-empty.
func (b *Budget) FitFragments(frags []fragment.Fragment, reserved int) []fragment.Fragment {
	if b == nil || b.Max <= 0 || len(frags) == 0 {
		return frags
	}
	remaining := b.Max - reserved
	out := make([]fragment.Fragment, 0, len(frags))
	for _, f := range frags {
		cost := b.Tokenizer.CountFragment(f)
		if cost > remaining && len(out) > 0 {
			break
		}
		remaining -= cost
		out = append(out, f)
	}
	return out
}

// FitHistory 丢弃最早的对话轮次直到放入预算
// FitHistory drops the oldest turns until the history fits in the budget minus reserved.
func (b *Budget) FitHistory(history []chat.Message, reserved int) []chat.Message {
	if b == nil || b.Max <= 0 || len(history) == 0 {
		return history
	}
	remaining := b.Max - reserved
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := b.Tokenizer.CountMessage(history[i])
		if cost > remaining {
			break
		}
		remaining -= cost
		start = i
	}
	// 首条须为 user，否则部分模型拒绝请求
	for start < len(history) && history[start].Role != chat.RoleUser {
		start++
	}
	return history[start:]
}

// Remaining 扣除文本后剩余预算 / budget left after text
func (b *Budget) Remaining(texts ...string) int {
	if b == nil || b.Max <= 0 {
		return 0
	}
	used := 0
	for _, t := range texts {
		used += b.Tokenizer.CountText(t)
	}
	return b.Max - used
}
