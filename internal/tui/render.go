package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"lumina/internal/chat"
	"lumina/internal/fragment"
	"lumina/internal/gateway"
	"lumina/internal/i18n"
	"lumina/internal/orchestrator"
)

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// RenderFragment 渲染一条碎片（待办带复选框）
// RenderFragment renders one fragment line; todos get a checkbox.
func RenderFragment(f fragment.Fragment, theme Theme) string {
	var b strings.Builder
	switch {
	case f.IsTodo() && f.Status == fragment.StatusCompleted:
		b.WriteString(theme.Success.Render("[x] "))
	case f.IsTodo():
		b.WriteString("[ ] ")
	default:
		b.WriteString("•  ")
	}
	b.WriteString(f.Content)
	if len(f.Tags) > 0 {
		b.WriteString(" ")
		b.WriteString(theme.Tag.Render("#" + strings.Join(f.Tags, " #")))
	}
	b.WriteString("  ")
	b.WriteString(theme.ID.Render(f.ID + " · " + f.Created().Format("01-02 15:04")))
	return b.String()
}

func renderFeed(frags []fragment.Fragment, theme Theme, loc *i18n.I18n) string {
	if len(frags) == 0 {
		return theme.Muted.Render("  " + loc.T("fragment.empty"))
	}
	lines := make([]string, 0, len(frags))
	for _, f := range frags {
		lines = append(lines, RenderFragment(f, theme))
	}
	return strings.Join(lines, "\n")
}

func renderPlanning(p *gateway.PlanningResult, theme Theme, loc *i18n.I18n, width int) string {
	if p == nil {
		return theme.Muted.Render("  " + loc.T("tui.no_planning"))
	}
	return RenderMarkdown(PlanningMarkdown(*p, loc), width)
}

// PlanningMarkdown 将整理结果排版为 markdown / lays a planning result out as markdown
func PlanningMarkdown(p gateway.PlanningResult, loc *i18n.I18n) string {
	var md strings.Builder
	section := func(title string, items []string) {
		fmt.Fprintf(&md, "## %s\n\n", title)
		for _, item := range items {
			fmt.Fprintf(&md, "- %s\n", item)
		}
		md.WriteString("\n")
	}
	fmt.Fprintf(&md, "## %s\n\n%s\n\n", loc.T("planning.summary"), p.Summary)
	section(loc.T("planning.themes"), p.Themes)
	section(loc.T("planning.actions"), p.ActionItems)
	section(loc.T("planning.opportunities"), p.Opportunities)
	return strings.TrimRight(md.String(), "\n")
}

func renderReview(r *string, theme Theme, loc *i18n.I18n, width int) string {
	if r == nil {
		return theme.Muted.Render("  " + loc.T("tui.no_review"))
	}
	return RenderMarkdown("# "+loc.T("review.title")+"\n\n"+*r, width)
}

func renderStorm(s *orchestrator.BrainstormResult, theme Theme, loc *i18n.I18n) string {
	if s == nil {
		return theme.Muted.Render("  " + loc.T("tui.no_storm"))
	}
	lines := []string{theme.Title.Render(loc.T("brainstorm.title", s.Idea)), ""}
	for i, idea := range s.Storm {
		lines = append(lines,
			fmt.Sprintf("%d. %s %s", i+1, complexityChip(idea.Complexity, theme), idea.Concept),
			"   "+theme.Muted.Render(idea.Reasoning),
		)
	}
	return strings.Join(lines, "\n")
}

func complexityChip(c gateway.Complexity, theme Theme) string {
	switch c {
	case gateway.ComplexityHigh:
		return theme.High.Render(string(c))
	case gateway.ComplexityMedium:
		return theme.Medium.Render(string(c))
	default:
		return theme.Low.Render(string(c))
	}
}

// renderChat 渲染对话；streaming 非空时替换最后一条模型消息
// renderChat renders the conversation. A non-empty streaming text stands in for
// the trailing model message while a reply is arriving.
func renderChat(history []chat.Message, streaming string, theme Theme, loc *i18n.I18n, width int) string {
	if len(history) == 0 {
		return theme.Muted.Render("  " + loc.T("tui.chat_placeholder"))
	}
	parts := make([]string, 0, len(history))
	for i, msg := range history {
		content := msg.Content
		if msg.Role == chat.RoleUser {
			parts = append(parts, theme.User.Render(loc.T("chat.you")+":")+" "+content)
			continue
		}
		if i == len(history)-1 && streaming != "" && len(streaming) >= len(content) {
			content = streaming
		}
		body := RenderMarkdown(content, width)
		if body == "" {
			body = theme.Muted.Render("…")
		}
		parts = append(parts, theme.Model.Render(loc.T("chat.lumina")+":"), body)
	}
	return strings.Join(parts, "\n")
}
