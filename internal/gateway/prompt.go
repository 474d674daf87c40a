package gateway

import (
	"lumina/internal/chat"
	"lumina/internal/contextmgr"
	"lumina/internal/defaults"
	"lumina/internal/fragment"
)

// promptBuilder 按 token 预算组装各类请求文本
type promptBuilder struct {
	budget *contextmgr.Budget
}

func (p promptBuilder) lines(frags []fragment.Fragment, reserved int) []defaults.Line {
	kept := p.budget.FitFragments(frags, reserved)
	out := make([]defaults.Line, 0, len(kept))
	for _, f := range kept {
		out = append(out, defaults.Line{Type: string(f.Type), Content: f.Content})
	}
	return out
}

func (p promptBuilder) organize(frags []fragment.Fragment) string {
	return defaults.OrganizePrompt(p.lines(frags, 0))
}

func (p promptBuilder) review(frags []fragment.Fragment) string {
	return defaults.ReviewPrompt(p.lines(frags, 0))
}

// chat 返回系统指令和裁剪后的历史；碎片和历史各占一半预算
// chat returns the system instruction and the trimmed history. Fragments and history
// share the budget evenly.
func (p promptBuilder) chat(req ChatRequest) (string, []chat.Message) {
	half := 0
	if p.budget != nil && p.budget.Max > 0 {
		half = p.budget.Max / 2
	}
	system := defaults.ChatSystemInstruction(p.lines(req.Fragments, half))
	reserved := 0
	if p.budget != nil && p.budget.Max > 0 {
		reserved = p.budget.Max - p.budget.Remaining(system, req.Message)
	}
	history := p.budget.FitHistory(req.History, reserved)
	return system, chat.Clone(history)
}
