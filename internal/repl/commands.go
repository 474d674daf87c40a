package repl

import (
	"context"
	"fmt"
	"strings"

	"lumina/internal/apperr"
	"lumina/internal/fragment"
	"lumina/internal/gateway"
	"lumina/internal/i18n"
	"lumina/internal/orchestrator"
)

type command struct {
	name string
	args []string
	run  func(l *Loop, ctx context.Context, arg string) error
}

var kindArgs = []string{"organize", "review", "brainstorm", "chat"}

var commands []command

func init() {
	commands = []command{
		{name: ":add", run: (*Loop).cmdAdd},
		{name: ":ls", run: (*Loop).cmdList},
		{name: ":rm", run: (*Loop).cmdRemove},
		{name: ":todo", run: (*Loop).cmdToggle},
		{name: ":done", run: (*Loop).cmdDone},
		{name: ":undo", run: (*Loop).cmdUndo},
		{name: ":organize", run: (*Loop).cmdOrganize},
		{name: ":review", run: (*Loop).cmdReview},
		{name: ":brainstorm", run: (*Loop).cmdBrainstorm},
		{name: ":chat", run: (*Loop).cmdChat},
		{name: ":clear", run: (*Loop).cmdClear},
		{name: ":record", run: (*Loop).cmdRecord},
		{name: ":cancel", args: kindArgs, run: (*Loop).cmdCancel},
		{name: ":view", args: []string{"feed", "planning", "review", "brainstorm"}, run: (*Loop).cmdView},
		{name: ":help", run: (*Loop).cmdHelp},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(form string) error {
	return apperr.Validation("repl", i18n.T("repl.usage", form))
}

func (l *Loop) cmdAdd(_ context.Context, arg string) error {
	f, err := l.Manager.AddFragment(arg)
	if err != nil {
		return err
	}
	l.println(l.colorize(ansiGreen, i18n.T("fragment.added", f.ID)))
	return nil
}

func (l *Loop) cmdList(_ context.Context, _ string) error {
	frags := l.Manager.Fragments().List()
	if len(frags) == 0 {
		l.println(i18n.T("fragment.empty"))
		return nil
	}
	for _, f := range frags {
		l.println(l.formatFragment(f))
	}
	l.println(l.colorize(ansiDim, i18n.T("fragment.count", len(frags))))
	return nil
}

func (l *Loop) cmdRemove(_ context.Context, id string) error {
	if id == "" {
		return usage(":rm <id>")
	}
	if !l.Manager.RemoveFragment(id) {
		return apperr.NotFound("remove", i18n.T("fragment.not_found", id))
	}
	l.println(i18n.T("fragment.removed", id))
	return nil
}

func (l *Loop) cmdToggle(_ context.Context, id string) error {
	if id == "" {
		return usage(":todo <id>")
	}
	f, ok := l.Manager.ToggleTodo(id)
	if !ok {
		if _, exists := l.Manager.Fragments().Get(id); exists {
			return apperr.Validation("toggle", "only fragments and todos can be toggled")
		}
		return apperr.NotFound("toggle", i18n.T("fragment.not_found", id))
	}
	l.println(i18n.T("fragment.toggled", f.ID, f.Type))
	return nil
}

func (l *Loop) cmdDone(_ context.Context, id string) error {
	return l.setStatus(id, fragment.StatusCompleted, ":done <id>")
}

func (l *Loop) cmdUndo(_ context.Context, id string) error {
	return l.setStatus(id, fragment.StatusPending, ":undo <id>")
}

func (l *Loop) setStatus(id string, status fragment.Status, form string) error {
	if id == "" {
		return usage(form)
	}
	f, err := l.Manager.SetStatus(id, status)
	if err != nil {
		return err
	}
	l.println(i18n.T("fragment.status", f.ID, f.Status))
	return nil
}

func (l *Loop) cmdOrganize(ctx context.Context, _ string) error {
	l.println(l.colorize(ansiDim, i18n.T("status.organizing")))
	res, err := withInterrupt(ctx, l.Manager, orchestrator.KindOrganize, func(ctx context.Context) (any, error) {
		return l.Manager.Organize(ctx)
	})
	if err != nil {
		return err
	}
	l.println(l.markdown(planningMarkdown(res.(gateway.PlanningResult))))
	return nil
}

func (l *Loop) cmdReview(ctx context.Context, _ string) error {
	l.println(l.colorize(ansiDim, i18n.T("status.reviewing")))
	res, err := withInterrupt(ctx, l.Manager, orchestrator.KindReview, func(ctx context.Context) (any, error) {
		return l.Manager.Review(ctx)
	})
	if err != nil {
		return err
	}
	l.println(l.markdown("# " + i18n.T("review.title") + "\n\n" + res.(string)))
	return nil
}

func (l *Loop) cmdBrainstorm(ctx context.Context, idea string) error {
	if idea == "" {
		return usage(":brainstorm <idea>")
	}
	l.println(l.colorize(ansiDim, i18n.T("status.brainstorming")))
	res, err := withInterrupt(ctx, l.Manager, orchestrator.KindBrainstorm, func(ctx context.Context) (any, error) {
		return l.Manager.Brainstorm(ctx, idea)
	})
	if err != nil {
		return err
	}
	storm := res.(orchestrator.BrainstormResult)
	l.println(l.colorize(ansiBold, i18n.T("brainstorm.title", storm.Idea)))
	for i, s := range storm.Storm {
		l.printf("%d. [%s] %s\n   %s\n", i+1, s.Complexity, s.Concept, l.colorize(ansiDim, s.Reasoning))
	}
	return nil
}

func (l *Loop) cmdClear(_ context.Context, _ string) error {
	l.Manager.ClearChat()
	l.println(i18n.T("chat.cleared"))
	return nil
}

func (l *Loop) cmdRecord(ctx context.Context, _ string) error {
	l.println(l.colorize(ansiYellow, i18n.T("status.recording")))
	ctx, stop := interruptContext(ctx)
	defer stop()
	f, err := l.Manager.SimulateRecording(ctx)
	if err != nil {
		return err
	}
	l.println(i18n.T("recording.done", f.Content))
	return nil
}

func (l *Loop) cmdCancel(_ context.Context, arg string) error {
	kind, ok := orchestrator.ParseKind(arg)
	if !ok {
		return usage(":cancel " + strings.Join(kindArgs, "|"))
	}
	l.Manager.Cancel(kind)
	l.println(i18n.T("status.interrupted"))
	return nil
}

func (l *Loop) cmdView(_ context.Context, arg string) error {
	view, ok := orchestrator.ParseView(arg)
	if !ok {
		return usage(":view feed|planning|review|brainstorm")
	}
	if err := l.Manager.SetView(view); err != nil {
		return err
	}
	l.println(i18n.T("view." + string(view)))
	return nil
}

func (l *Loop) cmdHelp(_ context.Context, _ string) error {
	l.println(i18n.T("repl.help"))
	return nil
}

// --- helpers ---

func (l *Loop) formatFragment(f fragment.Fragment) string {
	mark := "•"
	if f.IsTodo() {
		mark = "[ ]"
		if f.Status == fragment.StatusCompleted {
			mark = l.colorize(ansiGreen, "[x]")
		}
	}
	line := fmt.Sprintf("%s %s", mark, f.Content)
	if len(f.Tags) > 0 {
		line += " " + l.colorize(ansiCyan, "#"+strings.Join(f.Tags, " #"))
	}
	return line + "  " + l.colorize(ansiDim, f.ID)
}
