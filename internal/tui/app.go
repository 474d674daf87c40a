// Package tui 是 Lumina 的全屏终端界面
// Package tui is Lumina's full-screen terminal interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lumina/internal/fragment"
	"lumina/internal/i18n"
	"lumina/internal/orchestrator"
)

// Mode 输入框当前用途 / what the input box submits to
type Mode int

const (
	ModeCapture Mode = iota
	ModeChat
)

var viewOrder = []orchestrator.View{
	orchestrator.ViewFeed,
	orchestrator.ViewPlanning,
	orchestrator.ViewReview,
	orchestrator.ViewBrainstorm,
}

// --- Tea Messages ---

// StateMsg 管理器状态快照
// StateMsg carries a fresh manager snapshot
type StateMsg struct{ State orchestrator.State }

// ChunkMsg 流式回复的累计文本
// ChunkMsg carries the reply text accumulated so far
type ChunkMsg struct{ Text string }

// OpDoneMsg 一次操作结束
// OpDoneMsg reports that an operation finished
type OpDoneMsg struct {
	Kind   string
	Notice string
	Err    error
}

// App Bubble Tea 主 Model
// App is the main Bubble Tea model
type App struct {
	mgr *orchestrator.Manager

	// 布局 / Layout
	width  int
	height int

	content viewport.Model
	input   textarea.Model
	spin    spinner.Model
	mode    Mode

	state     orchestrator.State
	streaming string
	lastError string
	notice    string

	// 配置 / Config
	theme  Theme
	keys   KeyMap
	locale *i18n.I18n
}

// NewApp 创建 TUI 应用
// NewApp creates a new TUI application
func NewApp(mgr *orchestrator.Manager) App {
	ta := textarea.New()
	ta.Placeholder = i18n.T("tui.placeholder")
	ta.CharLimit = 8192
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	theme := LuminaTheme()
	sp.Style = theme.Title

	return App{
		mgr:    mgr,
		input:  ta,
		spin:   sp,
		state:  mgr.Snapshot(),
		theme:  theme,
		keys:   DefaultKeyMap(),
		locale: i18n.Global(),
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, a.spin.Tick)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if model, cmd, handled := a.handleKey(msg); handled {
			return model, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case StateMsg:
		a.state = msg.State
		if !a.state.IsChatLoading && !a.mgr.Loading(orchestrator.KindChat) {
			a.streaming = ""
		}
		a.refreshContent()
		return a, nil

	case ChunkMsg:
		a.streaming = msg.Text
		a.refreshContent()
		return a, nil

	case OpDoneMsg:
		a.state = a.mgr.Snapshot()
		switch {
		case msg.Err != nil && orchestrator.IsCanceled(msg.Err):
			a.notice = a.locale.T("status.interrupted")
		case msg.Err != nil:
			a.lastError = msg.Err.Error()
		default:
			a.lastError = ""
			a.notice = msg.Notice
		}
		if msg.Kind == string(orchestrator.KindChat) {
			a.streaming = ""
		}
		a.refreshContent()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)
	if a.mode == ModeCapture {
		a.mgr.SetInputValue(a.input.Value())
	}
	return a, tea.Batch(cmds...)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		for _, kind := range []orchestrator.Kind{orchestrator.KindChat, orchestrator.KindOrganize, orchestrator.KindReview, orchestrator.KindBrainstorm} {
			a.mgr.Cancel(kind)
		}
		return a, tea.Quit, true

	case key.Matches(msg, a.keys.NextView):
		a.switchView(1)
		return a, nil, true

	case key.Matches(msg, a.keys.PrevView):
		a.switchView(-1)
		return a, nil, true

	case key.Matches(msg, a.keys.ToggleMode):
		if a.mode == ModeCapture {
			a.mode = ModeChat
			a.input.Placeholder = a.locale.T("tui.chat_placeholder")
		} else {
			a.mode = ModeCapture
			a.input.Placeholder = a.locale.T("tui.placeholder")
		}
		a.refreshContent()
		return a, nil, true

	case key.Matches(msg, a.keys.Submit):
		return a.submit()

	case key.Matches(msg, a.keys.Organize):
		return a, a.runOp(orchestrator.KindOrganize, func(ctx context.Context) (string, error) {
			_, err := a.mgr.Organize(ctx)
			return "", err
		}), true

	case key.Matches(msg, a.keys.Review):
		return a, a.runOp(orchestrator.KindReview, func(ctx context.Context) (string, error) {
			_, err := a.mgr.Review(ctx)
			return "", err
		}), true

	case key.Matches(msg, a.keys.Brainstorm):
		idea := strings.TrimSpace(a.input.Value())
		if idea == "" {
			a.notice = a.locale.T("tui.no_storm")
			return a, nil, true
		}
		a.resetInput()
		a.state = a.mgr.Snapshot()
		a.refreshContent()
		return a, a.runOp(orchestrator.KindBrainstorm, func(ctx context.Context) (string, error) {
			_, err := a.mgr.Brainstorm(ctx, idea)
			return "", err
		}), true

	case key.Matches(msg, a.keys.Record):
		return a, a.runOp("record", func(ctx context.Context) (string, error) {
			f, err := a.mgr.SimulateRecording(ctx)
			if err != nil {
				return "", err
			}
			return a.locale.T("recording.done", f.Content), nil
		}), true

	case key.Matches(msg, a.keys.Cancel):
		a.cancelActive()
		return a, nil, true

	case key.Matches(msg, a.keys.ClearChat):
		a.mgr.ClearChat()
		a.streaming = ""
		a.notice = a.locale.T("chat.cleared")
		a.state = a.mgr.Snapshot()
		a.refreshContent()
		return a, nil, true

	case key.Matches(msg, a.keys.ScrollUp):
		a.content.HalfViewUp()
		return a, nil, true

	case key.Matches(msg, a.keys.ScrollDown):
		a.content.HalfViewDown()
		return a, nil, true
	}
	return a, nil, false
}

// submit 按当前模式提交输入：记录碎片或发送对话
// submit sends the input either as a new fragment or as a chat message.
func (a App) submit() (tea.Model, tea.Cmd, bool) {
	text := strings.TrimSpace(a.input.Value())
	if text == "" {
		return a, nil, true
	}

	if a.mode == ModeCapture {
		a.mgr.SetInputValue(text)
		f, err := a.mgr.AddFromInput()
		if err != nil {
			a.lastError = err.Error()
			return a, nil, true
		}
		a.resetInput()
		a.lastError = ""
		a.notice = a.locale.T("fragment.added", f.ID)
		a.state = a.mgr.Snapshot()
		a.refreshContent()
		return a, nil, true
	}

	if a.mgr.Loading(orchestrator.KindChat) {
		return a, nil, true
	}
	a.mgr.SetAssistantInput(text)
	a.input.Reset()
	a.streaming = ""
	a.state = a.mgr.Snapshot()
	a.refreshContent()
	return a, a.runOp(orchestrator.KindChat, func(ctx context.Context) (string, error) {
		_, err := a.mgr.SendChatMessage(ctx)
		return "", err
	}), true
}

// runOp 在后台执行一次操作，结束时回送 OpDoneMsg
// runOp runs fn off the event loop and reports the outcome as an OpDoneMsg.
func (a App) runOp(kind orchestrator.Kind, fn func(context.Context) (string, error)) tea.Cmd {
	op := func() tea.Msg {
		notice, err := fn(context.Background())
		return OpDoneMsg{Kind: string(kind), Notice: notice, Err: err}
	}
	return tea.Batch(op, a.spin.Tick)
}

func (a *App) switchView(step int) {
	idx := 0
	for i, v := range viewOrder {
		if v == a.state.CurrentView {
			idx = i
			break
		}
	}
	idx = (idx + step + len(viewOrder)) % len(viewOrder)
	if err := a.mgr.SetView(viewOrder[idx]); err != nil {
		a.lastError = err.Error()
		return
	}
	a.state = a.mgr.Snapshot()
	a.refreshContent()
}

// cancelActive 取消在途操作，对话优先
// cancelActive cancels the in-flight reply, or every in-flight AI operation.
func (a *App) cancelActive() {
	if a.mgr.Loading(orchestrator.KindChat) {
		a.mgr.Cancel(orchestrator.KindChat)
		a.streaming = ""
	} else {
		for _, kind := range []orchestrator.Kind{orchestrator.KindOrganize, orchestrator.KindReview, orchestrator.KindBrainstorm} {
			if a.mgr.Loading(kind) {
				a.mgr.Cancel(kind)
			}
		}
	}
	a.notice = a.locale.T("status.interrupted")
	a.state = a.mgr.Snapshot()
	a.refreshContent()
}

func (a *App) resetInput() {
	a.input.Reset()
	if a.mode == ModeCapture {
		a.mgr.SetInputValue("")
	}
}

func (a App) busy() bool {
	return a.state.IsAILoading || a.state.IsChatLoading || a.state.IsRecording || a.mgr.Loading(orchestrator.KindChat)
}

// --- 内部方法 / Internal methods ---

func (a *App) relayout() {
	mainWidth := a.mainWidth()
	panelHeight := a.height - 8
	if panelHeight < 3 {
		panelHeight = 3
	}
	a.content = viewport.New(mainWidth, panelHeight)
	a.input.SetWidth(mainWidth - 4)
	a.refreshContent()
}

func (a App) sidebarWidth() int {
	if a.width < 80 {
		return 0
	}
	w := a.width * 25 / 100
	if w < 20 {
		w = 20
	}
	if w > 40 {
		w = 40
	}
	return w
}

func (a App) mainWidth() int {
	sw := a.sidebarWidth()
	if sw == 0 {
		return a.width
	}
	return a.width - sw - 1
}

func (a *App) refreshContent() {
	a.content.SetContent(a.renderBody(a.mainWidth()))
	if a.mode == ModeChat {
		a.content.GotoBottom()
	}
}

func (a App) renderBody(width int) string {
	if a.mode == ModeChat {
		return renderChat(a.state.ChatHistory, a.streaming, a.theme, a.locale, width)
	}
	switch a.state.CurrentView {
	case orchestrator.ViewPlanning:
		return renderPlanning(a.state.PlanningData, a.theme, a.locale, width)
	case orchestrator.ViewReview:
		return renderReview(a.state.ReviewData, a.theme, a.locale, width)
	case orchestrator.ViewBrainstorm:
		return renderStorm(a.state.StormData, a.theme, a.locale)
	default:
		return renderFeed(a.state.Fragments, a.theme, a.locale)
	}
}

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	sidebarWidth := a.sidebarWidth()
	mainWidth := a.mainWidth()
	inputHeight := 5
	panelHeight := a.height - inputHeight - 2
	if panelHeight < 3 {
		panelHeight = 3
	}

	tabs := a.renderTabs()
	panel := lipgloss.NewStyle().Width(mainWidth).Height(panelHeight).Render(a.content.View())
	inputBox := a.theme.Input.Width(mainWidth).Render(a.input.View())

	main := lipgloss.JoinVertical(lipgloss.Left, tabs, panel, inputBox)
	if sidebarWidth > 0 {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, a.renderSidebar(sidebarWidth, a.height-1))
	}
	return lipgloss.JoinVertical(lipgloss.Left, main, a.renderStatusBar(a.width))
}

// --- 渲染方法 / Render methods ---

func (a App) renderTabs() string {
	parts := make([]string, 0, len(viewOrder)+1)
	for _, v := range viewOrder {
		style := a.theme.InactiveTab
		if v == a.state.CurrentView && a.mode == ModeCapture {
			style = a.theme.ActiveTab
		}
		parts = append(parts, style.Render(a.locale.T("view."+string(v))))
	}
	chatStyle := a.theme.InactiveTab
	if a.mode == ModeChat {
		chatStyle = a.theme.ActiveTab
	}
	parts = append(parts, chatStyle.Render(a.locale.T("sidebar.chat")))
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a App) renderSidebar(width, height int) string {
	todos := 0
	for _, f := range a.state.Fragments {
		if f.IsTodo() && f.Status != fragment.StatusCompleted {
			todos++
		}
	}

	parts := []string{
		a.theme.Title.Render(" Lumina"),
		"",
		a.theme.Title.Render(" " + a.locale.T("sidebar.provider")),
		"  " + a.mgr.GatewayName(),
		"",
		a.theme.Title.Render(" " + a.locale.T("sidebar.fragments")),
		fmt.Sprintf("  %d", len(a.state.Fragments)),
		"",
		a.theme.Title.Render(" " + a.locale.T("sidebar.todos")),
		fmt.Sprintf("  %d", todos),
		"",
		a.theme.Title.Render(" " + a.locale.T("sidebar.chat")),
		fmt.Sprintf("  %d", len(a.state.ChatHistory)),
	}

	return a.theme.Sidebar.Width(width).Height(height).Render(strings.Join(parts, "\n"))
}

func (a App) statusText() string {
	switch {
	case a.state.IsRecording:
		return a.locale.T("status.recording")
	case a.state.Loading[orchestrator.KindOrganize]:
		return a.locale.T("status.organizing")
	case a.state.Loading[orchestrator.KindReview]:
		return a.locale.T("status.reviewing")
	case a.state.Loading[orchestrator.KindBrainstorm]:
		return a.locale.T("status.brainstorming")
	case a.busy():
		return a.locale.T("status.thinking")
	case a.lastError != "":
		return a.theme.Error.Render(a.lastError)
	case a.notice != "":
		return a.notice
	default:
		return a.locale.T("status.ready")
	}
}

func (a App) renderStatusBar(width int) string {
	mode := a.locale.T("tui.mode.capture")
	if a.mode == ModeChat {
		mode = a.locale.T("tui.mode.chat")
	}
	status := a.statusText()
	if a.busy() {
		status = a.spin.View() + " " + status
	}

	left := fmt.Sprintf(" %s · %s", mode, status)
	right := a.locale.T("tui.keys") + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = 0
	}
	return a.theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// Run 启动 Bubble Tea TUI，并把管理器通知转发为 tea 消息
// Run starts the Bubble Tea TUI and forwards manager notifications into it.
func Run(ctx context.Context, mgr *orchestrator.Manager) error {
	p := tea.NewProgram(NewApp(mgr), tea.WithAltScreen(), tea.WithContext(ctx))

	// 回调可能在 Update 内同步触发，不能直接阻塞在 p.Send 上
	events := make(chan tea.Msg, 256)
	unsubscribe := mgr.Subscribe(func(ev orchestrator.Event) {
		var msg tea.Msg
		switch ev.Type {
		case orchestrator.EventChatChunk:
			msg = ChunkMsg{Text: ev.Text}
		case orchestrator.EventState:
			msg = StateMsg{State: mgr.Snapshot()}
		default:
			return
		}
		select {
		case events <- msg:
		default:
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case msg := <-events:
				p.Send(msg)
			case <-done:
				return
			}
		}
	}()

	_, err := p.Run()
	return err
}
