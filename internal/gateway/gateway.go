// Package gateway 是托管生成式语言服务的无状态适配层
// Package gateway is the stateless adapter over the hosted generative-language service.
// It defines three fixed request shapes (organize, brainstorm, review) and one
// open-ended streaming chat shape.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"lumina/internal/chat"
	"lumina/internal/contextmgr"
	"lumina/internal/defaults"
	"lumina/internal/fragment"
)

// ErrMalformed 响应结构不符合约定 / the response does not match the requested shape
var ErrMalformed = errors.New("malformed response")

// Gateway AI 网关接口
// Gateway is the AI gateway contract shared by all backends.
type Gateway interface {
	Organize(ctx context.Context, frags []fragment.Fragment) (PlanningResult, error)
	Brainstorm(ctx context.Context, idea string) ([]BrainstormIdea, error)
	Review(ctx context.Context, frags []fragment.Fragment) (string, error)
	// Chat 打开流式对话；返回的流必须 Close
	// Chat opens a streamed reply. The returned stream must be closed.
	Chat(ctx context.Context, req ChatRequest) (ChatStream, error)
	Name() string
}

// ChatStream 按到达顺序产出文本块，结束时返回 io.EOF
// ChatStream yields text chunks in arrival order and io.EOF at the end.
type ChatStream interface {
	Recv() (string, error)
	Close() error
}

// PlanningResult 整理结果（四个字段均必需）
// PlanningResult is the organize result; all four keys are required.
type PlanningResult struct {
	Themes        []string `json:"themes"`
	ActionItems   []string `json:"actionItems"`
	Opportunities []string `json:"opportunities"`
	Summary       string   `json:"summary"`
}

// Complexity 头脑风暴方向的复杂度 / complexity of a brainstorm direction
type Complexity string

const (
	ComplexityLow    Complexity = "Low"
	ComplexityMedium Complexity = "Medium"
	ComplexityHigh   Complexity = "High"
)

type BrainstormIdea struct {
	Concept    string     `json:"concept"`
	Reasoning  string     `json:"reasoning"`
	Complexity Complexity `json:"complexity"`
}

// ChatRequest 对话请求：历史轮次 + 新消息 + 当前碎片上下文
// ChatRequest carries prior turns, the new user message and the fragment context.
type ChatRequest struct {
	History   []chat.Message
	Message   string
	Fragments []fragment.Fragment
}

// Models 每种操作使用的模型 / model per operation
type Models struct {
	Organize   string
	Brainstorm string
	Review     string
	Chat       string
}

// Config 网关配置 / gateway configuration
type Config struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Models     Models
}

// newHTTPClient 超时只限制等待响应头的时间，流式正文的读取由调用方 ctx 控制
// newHTTPClient bounds how long a request may wait for the response headers.
// A streamed body is not cut off once it has started; the caller's context
// ends it instead. A non-positive timeout returns the default transport.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		return &http.Client{}
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: tr}
}

func (m Models) withDefaults(provider string) Models {
	flash, pro := defaults.FlashModel, defaults.ProModel
	if provider == ProviderOpenAI {
		flash, pro = "gpt-4o-mini", "gpt-4o"
	}
	if strings.TrimSpace(m.Organize) == "" {
		m.Organize = flash
	}
	if strings.TrimSpace(m.Brainstorm) == "" {
		m.Brainstorm = pro
	}
	if strings.TrimSpace(m.Review) == "" {
		m.Review = flash
	}
	if strings.TrimSpace(m.Chat) == "" {
		m.Chat = flash
	}
	return m
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// New 根据配置创建网关 / builds the gateway selected by cfg.Provider
func New(ctx context.Context, cfg Config, budget *contextmgr.Budget, logger *zap.Logger) (Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is empty")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return NewGeminiGateway(ctx, cfg, budget, logger)
	case ProviderOpenAI:
		return NewOpenAIGateway(cfg, budget, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
