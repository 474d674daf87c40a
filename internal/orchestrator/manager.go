// Package orchestrator 协调碎片集合、AI 网关与视图状态
// Package orchestrator coordinates the fragment store, the AI gateway and the
// view state. Every AI operation is single-flight per kind and carries a
// generation token so late results from a canceled call are discarded.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lumina/internal/apperr"
	"lumina/internal/chat"
	"lumina/internal/fragment"
	"lumina/internal/gateway"
	"lumina/internal/i18n"
	"lumina/internal/storage"
)

// Options 管理器的可选依赖 / optional dependencies of the manager
type Options struct {
	Logger       *zap.Logger
	Metrics      Recorder
	OperationLog storage.OperationLogger
	// ChatFallback 对话失败时展示给用户的文本，为空时取 i18n chat.fallback
	ChatFallback        string
	RecordingDelay      time.Duration
	RecordingTranscript string
}

// Manager 编排管理器 / the orchestration manager
type Manager struct {
	fragments *fragment.Store
	gateway   gateway.Gateway
	logger    *zap.Logger
	metrics   Recorder
	oplog     storage.OperationLogger

	fallback    string
	interrupted string
	recDelay    time.Duration
	transcript  string

	mu             sync.Mutex
	planning       *gateway.PlanningResult
	review         *string
	storm          *BrainstormResult
	history        []chat.Message
	chatLoading    bool
	chatActive     bool
	placeholder    int
	loading        map[Kind]bool
	flights        map[Kind]*flight
	gens           map[Kind]uint64
	cancels        map[Kind]context.CancelFunc
	view           View
	recording      bool
	input          string
	assistantInput string

	subMu   sync.RWMutex
	subs    map[int]func(Event)
	nextSub int
}

// New 创建管理器；store 与 gw 必须非空
// New creates a manager over store and gw, both of which are required.
func New(store *fragment.Store, gw gateway.Gateway, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	fallback := strings.TrimSpace(opts.ChatFallback)
	if fallback == "" {
		fallback = i18n.T("chat.fallback")
	}
	delay := opts.RecordingDelay
	if delay <= 0 {
		delay = DefaultRecordingDelay
	}
	transcript := strings.TrimSpace(opts.RecordingTranscript)
	if transcript == "" {
		transcript = DefaultTranscript
	}
	return &Manager{
		fragments:   store,
		gateway:     gw,
		logger:      logger.Named("orchestrator"),
		metrics:     metrics,
		oplog:       opts.OperationLog,
		fallback:    fallback,
		interrupted: i18n.T("chat.interrupted"),
		recDelay:    delay,
		transcript:  transcript,
		history:     []chat.Message{},
		placeholder: -1,
		loading:     make(map[Kind]bool),
		flights:     make(map[Kind]*flight),
		gens:        make(map[Kind]uint64),
		cancels:     make(map[Kind]context.CancelFunc),
		view:        ViewFeed,
		subs:        make(map[int]func(Event)),
	}
}

// Fragments 返回底层碎片集合 / returns the underlying fragment store
func (m *Manager) Fragments() *fragment.Store {
	return m.fragments
}

// GatewayName 当前网关后端名 / name of the active gateway backend
func (m *Manager) GatewayName() string {
	return m.gateway.Name()
}

// Snapshot 返回全部状态的深拷贝
// Snapshot returns a deep copy of all state.
func (m *Manager) Snapshot() State {
	frags := m.fragments.List()

	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{
		Fragments:      frags,
		ChatHistory:    chat.Clone(m.history),
		IsChatLoading:  m.chatLoading,
		Loading:        make(map[Kind]bool, len(m.loading)),
		CurrentView:    m.view,
		IsRecording:    m.recording,
		InputValue:     m.input,
		AssistantInput: m.assistantInput,
	}
	if st.ChatHistory == nil {
		st.ChatHistory = []chat.Message{}
	}
	for k, v := range m.loading {
		st.Loading[k] = v
	}
	st.IsAILoading = m.loading[KindOrganize] || m.loading[KindReview] || m.loading[KindBrainstorm]
	if m.planning != nil {
		p := clonePlanning(*m.planning)
		st.PlanningData = &p
	}
	if m.review != nil {
		r := *m.review
		st.ReviewData = &r
	}
	if m.storm != nil {
		s := BrainstormResult{Idea: m.storm.Idea, Storm: append([]gateway.BrainstormIdea(nil), m.storm.Storm...)}
		st.StormData = &s
	}
	return st
}

// Subscribe 注册变更回调，返回取消订阅函数；回调在锁外同步调用
// Subscribe registers fn for change notifications and returns an unsubscribe
// func. Callbacks run synchronously outside the manager's locks.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

func (m *Manager) emit(ev Event) {
	m.subMu.RLock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Manager) changed(kind Kind) {
	m.emit(Event{Type: EventState, Kind: kind})
}

// --- App State ---

func (m *Manager) SetView(view View) error {
	if _, ok := ParseView(string(view)); !ok {
		return apperr.Validation("set view", "unknown view "+string(view))
	}
	m.mu.Lock()
	m.view = view
	m.mu.Unlock()
	m.changed("")
	return nil
}

func (m *Manager) SetInputValue(text string) {
	m.mu.Lock()
	m.input = text
	m.mu.Unlock()
	m.changed("")
}

func (m *Manager) SetAssistantInput(text string) {
	m.mu.Lock()
	m.assistantInput = text
	m.mu.Unlock()
	m.changed(KindChat)
}

// --- Fragments ---

// AddFragment 新增碎片并通知订阅者
// AddFragment adds a fragment and notifies subscribers.
func (m *Manager) AddFragment(content string) (fragment.Fragment, error) {
	f, err := m.fragments.Add(content)
	if err != nil {
		return fragment.Fragment{}, err
	}
	m.changed("")
	return f, nil
}

// AddFromInput 提交待输入文本；仅在成功后清空输入
// AddFromInput adds the pending input as a fragment and clears the input only on success.
func (m *Manager) AddFromInput() (fragment.Fragment, error) {
	m.mu.Lock()
	text := m.input
	m.mu.Unlock()

	f, err := m.fragments.Add(text)
	if err != nil {
		return fragment.Fragment{}, err
	}
	m.mu.Lock()
	if m.input == text {
		m.input = ""
	}
	m.mu.Unlock()
	m.changed("")
	return f, nil
}

func (m *Manager) RemoveFragment(id string) bool {
	ok := m.fragments.Remove(id)
	if ok {
		m.changed("")
	}
	return ok
}

func (m *Manager) ToggleTodo(id string) (fragment.Fragment, bool) {
	f, ok := m.fragments.ToggleTodo(id)
	if ok {
		m.changed("")
	}
	return f, ok
}

func (m *Manager) SetStatus(id string, status fragment.Status) (fragment.Fragment, error) {
	f, err := m.fragments.SetStatus(id, status)
	if err != nil {
		return fragment.Fragment{}, err
	}
	m.changed("")
	return f, nil
}

// ReloadFragments 存储被外部修改后重新读取
// ReloadFragments re-reads the collection after an external storage change.
func (m *Manager) ReloadFragments() error {
	if err := m.fragments.Reload(); err != nil {
		return err
	}
	m.changed("")
	return nil
}

// --- Outcome Recording ---

func (m *Manager) record(kind Kind, requestID, status string, elapsed time.Duration, err error) {
	m.metrics.ObserveOperation(string(kind), status, elapsed)

	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("request_id", requestID),
		zap.String("status", status),
		zap.Duration("elapsed", elapsed),
	}
	detail := ""
	switch status {
	case statusError:
		detail = err.Error()
		m.logger.Warn("ai operation failed", append(fields, zap.Error(err))...)
	case statusRejected:
		detail = err.Error()
		m.logger.Debug("ai operation rejected", append(fields, zap.Error(err))...)
	default:
		m.logger.Info("ai operation finished", fields...)
	}

	if m.oplog == nil {
		return
	}
	if lerr := m.oplog.LogOperation(storage.OperationEntry{
		RequestID: requestID,
		Kind:      string(kind),
		Status:    status,
		Detail:    detail,
		Duration:  elapsed,
	}); lerr != nil {
		m.logger.Warn("write operation log failed", zap.Error(lerr))
	}
}

func clonePlanning(p gateway.PlanningResult) gateway.PlanningResult {
	return gateway.PlanningResult{
		Themes:        append([]string{}, p.Themes...),
		ActionItems:   append([]string{}, p.ActionItems...),
		Opportunities: append([]string{}, p.Opportunities...),
		Summary:       p.Summary,
	}
}
