package orchestrator

import (
	"errors"
	"time"

	"lumina/internal/chat"
	"lumina/internal/fragment"
	"lumina/internal/gateway"
)

// ErrCanceled 结果因取消或被新请求取代而被丢弃
// ErrCanceled reports a result discarded because its operation was canceled or superseded.
var ErrCanceled = errors.New("operation canceled")

// Kind AI 操作类别 / AI operation kind
type Kind string

const (
	KindOrganize   Kind = "organize"
	KindReview     Kind = "review"
	KindBrainstorm Kind = "brainstorm"
	KindChat       Kind = "chat"
)

// ParseKind 解析操作类别 / parses an operation kind
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindOrganize, KindReview, KindBrainstorm, KindChat:
		return k, true
	default:
		return "", false
	}
}

// View 当前视图 / the active view
type View string

const (
	ViewFeed       View = "feed"
	ViewPlanning   View = "planning"
	ViewReview     View = "review"
	ViewBrainstorm View = "brainstorm"
)

func ParseView(s string) (View, bool) {
	switch v := View(s); v {
	case ViewFeed, ViewPlanning, ViewReview, ViewBrainstorm:
		return v, true
	default:
		return "", false
	}
}

// BrainstormResult 头脑风暴结果：种子想法 + 方向列表
// BrainstormResult pairs the seed idea with the directions generated for it.
type BrainstormResult struct {
	Idea  string                   `json:"idea"`
	Storm []gateway.BrainstormIdea `json:"storm"`
}

// State 视图层读取的完整快照
// State is the full snapshot the view layer renders from.
type State struct {
	Fragments     []fragment.Fragment     `json:"fragments"`
	PlanningData  *gateway.PlanningResult `json:"planningData"`
	ReviewData    *string                 `json:"reviewData"`
	StormData     *BrainstormResult       `json:"stormData"`
	ChatHistory   []chat.Message          `json:"chatHistory"`
	IsChatLoading bool                    `json:"isChatLoading"`
	// IsAILoading 任一 organize/review/brainstorm 在途
	IsAILoading    bool          `json:"isAiLoading"`
	Loading        map[Kind]bool `json:"loading"`
	CurrentView    View          `json:"currentView"`
	IsRecording    bool          `json:"isRecording"`
	InputValue     string        `json:"inputValue"`
	AssistantInput string        `json:"assistantInput"`
}

// EventType 变更通知类别 / change notification type
type EventType string

const (
	EventState     EventType = "state"
	EventChatChunk EventType = "chat_chunk"
	EventError     EventType = "error"
)

// Event 变更通知；ChatChunk 的 Text 是当前累计的回复
// Event is a change notification. For EventChatChunk, Text holds the reply accumulated so far.
type Event struct {
	Type EventType
	Kind Kind
	Text string
	Err  error
}

// Recorder 操作指标记录 / operation metrics sink
type Recorder interface {
	ObserveOperation(kind, status string, elapsed time.Duration)
	ObserveChatChunk()
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) ObserveChatChunk()                              {}

const (
	statusOK       = "ok"
	statusError    = "error"
	statusRejected = "rejected"
	statusCanceled = "canceled"
)

// DefaultTranscript 模拟录音产生的固定文本
// DefaultTranscript is the fixed text produced by a simulated recording.
const DefaultTranscript = "我想在下周开始学习 WebGL，并将它应用在 Lumina 的画布可视化中。"

// DefaultRecordingDelay 模拟录音时长 / simulated recording duration
const DefaultRecordingDelay = 2500 * time.Millisecond
