// Package repl 是 Lumina 的行式交互界面
// Package repl is Lumina's line-oriented interactive shell.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"lumina/internal/apperr"
	"lumina/internal/bootstrap"
	"lumina/internal/gateway"
	"lumina/internal/i18n"
	"lumina/internal/orchestrator"
	"lumina/internal/tui"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[90m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiBold   = "\x1b[1m"
)

// Loop 持有 REPL 状态：应用组件、输入源与输出
// Loop holds REPL state: the built app, the input source and the output.
type Loop struct {
	*bootstrap.App
	in    lineInput
	out   io.Writer
	color bool
	width int
}

// NewLoop 从构建结果创建 REPL；终端上使用 readline 并保存历史
// NewLoop builds a REPL on top of app, using readline with history on a terminal.
func NewLoop(app *bootstrap.App) *Loop {
	historyPath := ""
	if app.Config.Storage.BaseDir != "" {
		historyPath = filepath.Join(app.Config.Storage.BaseDir, "history")
	}
	in, err := newLineInput(historyPath)
	if err != nil && app.Logger != nil {
		app.Logger.Warn("readline unavailable, using plain input", zap.Error(err))
	}
	return &Loop{
		App:   app,
		in:    in,
		out:   os.Stdout,
		color: readline.DefaultIsTerminal() && useColor(),
		width: 80,
	}
}

// Run 读取输入并执行，直到 :quit、EOF 或 ctx 结束
// Run reads and executes input until :quit, EOF or ctx ends.
func Run(ctx context.Context, loop *Loop) error {
	if loop.App == nil || loop.Manager == nil {
		return fmt.Errorf("manager is nil")
	}
	defer loop.in.Close()

	loop.println(loop.colorize(ansiBold, i18n.T("repl.welcome", loop.Manager.GatewayName(), loop.Manager.Fragments().Len())))
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := loop.in.ReadLine(loop.prompt())
		if err != nil {
			switch {
			case errors.Is(err, readline.ErrInterrupt):
				continue
			case errors.Is(err, io.EOF):
				loop.println(i18n.T("repl.bye"))
				return nil
			default:
				return fmt.Errorf("read input: %w", err)
			}
		}
		quit, err := loop.Execute(ctx, line)
		if err != nil {
			loop.printError(err)
		}
		if quit {
			loop.println(i18n.T("repl.bye"))
			return nil
		}
	}
}

// Execute 执行一行输入：普通文本记录为碎片，冒号开头为命令
// Execute runs one input line. Plain text is captured as a fragment; lines
// starting with ':' are commands. It reports whether the user asked to quit.
func (l *Loop) Execute(ctx context.Context, line string) (quit bool, err error) {
	input := strings.TrimSpace(line)
	if input == "" {
		return false, nil
	}
	if !strings.HasPrefix(input, ":") {
		return false, l.cmdAdd(ctx, input)
	}

	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case ":quit", ":q", ":exit":
		return true, nil
	}
	cmd, ok := lookupCommand(name)
	if !ok {
		return false, apperr.Validation("repl", i18n.T("repl.unknown_command", name))
	}
	return false, cmd.run(l, ctx, arg)
}

// cmdChat 发送对话并把回复增量写到输出
// cmdChat sends a chat message and writes the reply to the output as it streams.
func (l *Loop) cmdChat(ctx context.Context, message string) error {
	if message == "" {
		return usage(":chat <message>")
	}

	var (
		mu      sync.Mutex
		printed string
	)
	unsubscribe := l.Manager.Subscribe(func(ev orchestrator.Event) {
		if ev.Type != orchestrator.EventChatChunk {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if strings.HasPrefix(ev.Text, printed) {
			l.print(ev.Text[len(printed):])
			printed = ev.Text
		}
	})
	defer unsubscribe()

	l.print(l.colorize(ansiCyan, i18n.T("chat.lumina")+": "))
	l.Manager.SetAssistantInput(message)

	ctx, stop := interruptContext(ctx)
	defer stop()
	reply, err := l.Manager.SendChatMessage(ctx)
	unsubscribe()

	mu.Lock()
	streamed := printed
	mu.Unlock()
	switch {
	case orchestrator.IsCanceled(err):
		l.println("")
		return orchestrator.ErrCanceled
	case strings.HasPrefix(reply, streamed):
		l.print(reply[len(streamed):])
	}
	l.println("")
	if err != nil && l.Logger != nil {
		// 兜底回复已经展示，错误详情只记录日志
		l.Logger.Debug("chat turn failed", zap.Error(err))
	}
	return nil
}

// withInterrupt 执行 AI 操作；Ctrl+C 同时结束等待并取消操作
// withInterrupt runs an AI operation. Ctrl+C ends the wait and cancels the operation.
func withInterrupt(ctx context.Context, mgr *orchestrator.Manager, kind orchestrator.Kind, fn func(context.Context) (any, error)) (any, error) {
	opCtx, stop := interruptContext(ctx)
	defer stop()
	v, err := fn(opCtx)
	if err != nil && opCtx.Err() != nil && ctx.Err() == nil {
		mgr.Cancel(kind)
		return nil, orchestrator.ErrCanceled
	}
	return v, err
}

func interruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

// --- output ---

func (l *Loop) prompt() string {
	view := string(l.Manager.Snapshot().CurrentView)
	return l.colorize(ansiGreen, fmt.Sprintf("[%s] lumina> ", view))
}

func (l *Loop) print(s string) {
	_, _ = io.WriteString(l.out, s)
}

func (l *Loop) println(s string) {
	_, _ = fmt.Fprintln(l.out, s)
}

func (l *Loop) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l.out, format, args...)
}

func (l *Loop) printError(err error) {
	switch {
	case orchestrator.IsCanceled(err):
		l.println(l.colorize(ansiYellow, i18n.T("status.interrupted")))
	case apperr.IsValidation(err):
		var e *apperr.Error
		if errors.As(err, &e) {
			l.println(l.colorize(ansiYellow, e.Message))
			return
		}
		l.println(l.colorize(ansiYellow, err.Error()))
	case apperr.IsGateway(err):
		l.println(l.colorize(ansiRed, i18n.T("error.gateway", err)))
	case apperr.KindOf(err) == apperr.KindStorage:
		l.println(l.colorize(ansiRed, i18n.T("error.storage", err)))
	default:
		l.println(l.colorize(ansiRed, "error: "+err.Error()))
	}
}

func (l *Loop) colorize(code, s string) string {
	if !l.color {
		return s
	}
	return code + s + ansiReset
}

func (l *Loop) markdown(s string) string {
	if !l.color {
		return s
	}
	return tui.RenderMarkdown(s, l.width)
}

func planningMarkdown(p gateway.PlanningResult) string {
	return tui.PlanningMarkdown(p, i18n.Global())
}

func useColor() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(os.Getenv("TERM"))) != "dumb"
}
