package gateway

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"lumina/internal/apperr"
	"lumina/internal/chat"
	"lumina/internal/contextmgr"
	"lumina/internal/defaults"
	"lumina/internal/fragment"
)

// GeminiGateway 基于 google.golang.org/genai 的网关实现
// GeminiGateway implements Gateway on top of the Gemini API (google.golang.org/genai).
type GeminiGateway struct {
	client  *genai.Client
	models  Models
	prompts promptBuilder
	retry   retrier
	logger  *zap.Logger
}

// NewGeminiGateway 创建 Gemini 客户端
// NewGeminiGateway creates the Gemini client.
func NewGeminiGateway(ctx context.Context, cfg Config, budget *contextmgr.Budget, logger *zap.Logger) (*GeminiGateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions.BaseURL = base
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = newHTTPClient(cfg.Timeout)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGateway{
		client:  client,
		models:  cfg.Models.withDefaults(ProviderGemini),
		prompts: promptBuilder{budget: budget},
		retry:   newRetrier(cfg.MaxRetries, logger),
		logger:  logger.Named("gemini"),
	}, nil
}

func (g *GeminiGateway) Name() string {
	return ProviderGemini
}

var planningSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"themes":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"actionItems":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"opportunities": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"summary":       {Type: genai.TypeString},
	},
	Required: []string{"themes", "actionItems", "opportunities", "summary"},
}

var brainstormSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"concept":    {Type: genai.TypeString},
			"reasoning":  {Type: genai.TypeString},
			"complexity": {Type: genai.TypeString, Description: "Low, Medium, or High"},
		},
		Required: []string{"concept", "reasoning", "complexity"},
	},
}

func (g *GeminiGateway) Organize(ctx context.Context, frags []fragment.Fragment) (PlanningResult, error) {
	var out PlanningResult
	err := g.retry.do(ctx, "organize", func(ctx context.Context) error {
		text, err := g.generate(ctx, g.models.Organize, g.prompts.organize(frags), &genai.GenerateContentConfig{
			Temperature:      genai.Ptr(defaults.OrganizeTemperature),
			ResponseMIMEType: "application/json",
			ResponseSchema:   planningSchema,
		})
		if err != nil {
			return err
		}
		out, err = ParsePlanning(text)
		return err
	})
	if err != nil {
		return PlanningResult{}, apperr.Gateway("organize", err)
	}
	return out, nil
}

func (g *GeminiGateway) Brainstorm(ctx context.Context, idea string) ([]BrainstormIdea, error) {
	var out []BrainstormIdea
	err := g.retry.do(ctx, "brainstorm", func(ctx context.Context) error {
		text, err := g.generate(ctx, g.models.Brainstorm, defaults.BrainstormPrompt(idea), &genai.GenerateContentConfig{
			Temperature:      genai.Ptr(defaults.BrainstormTemperature),
			ResponseMIMEType: "application/json",
			ResponseSchema:   brainstormSchema,
		})
		if err != nil {
			return err
		}
		out, err = ParseBrainstorm(text)
		return err
	})
	if err != nil {
		return nil, apperr.Gateway("brainstorm", err)
	}
	return out, nil
}

func (g *GeminiGateway) Review(ctx context.Context, frags []fragment.Fragment) (string, error) {
	var out string
	err := g.retry.do(ctx, "review", func(ctx context.Context) error {
		text, err := g.generate(ctx, g.models.Review, g.prompts.review(frags), &genai.GenerateContentConfig{
			Temperature: genai.Ptr(defaults.ReviewTemperature),
		})
		if err != nil {
			return err
		}
		out, err = ParseReview(text)
		return err
	})
	if err != nil {
		return "", apperr.Gateway("review", err)
	}
	return out, nil
}

func (g *GeminiGateway) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// Chat 打开流；首个数据块在重试保护下拉取，之后的失败不再重试
// Chat opens the stream. The first chunk is pulled under the retry policy so that
// connection failures are retried; failures after it are reported as stream errors.
func (g *GeminiGateway) Chat(ctx context.Context, req ChatRequest) (ChatStream, error) {
	system, history := g.prompts.chat(req)
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == chat.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}

	var stream *geminiStream
	err := g.retry.do(ctx, "chat", func(ctx context.Context) error {
		s := newGeminiStream(g.client.Models.GenerateContentStream(ctx, g.models.Chat, contents, cfg))
		if err := s.prime(); err != nil {
			_ = s.Close()
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, apperr.Gateway("chat", err)
	}
	return stream, nil
}

// geminiStream 把 iter.Seq2 转为拉取式 ChatStream
type geminiStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()

	mu      sync.Mutex
	pending []string
	done    bool
	err     error
}

func newGeminiStream(seq iter.Seq2[*genai.GenerateContentResponse, error]) *geminiStream {
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop}
}

// prime 拉取第一个非空块，用于检测连接错误
func (s *geminiStream) prime() error {
	for {
		text, err := s.pull()
		if err != nil {
			if err == io.EOF {
				s.done = true
				return nil
			}
			return err
		}
		if text != "" {
			s.pending = append(s.pending, text)
			return nil
		}
	}
}

func (s *geminiStream) pull() (string, error) {
	resp, err, ok := s.next()
	if !ok {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}

func (s *geminiStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) > 0 {
		text := s.pending[0]
		s.pending = s.pending[1:]
		return text, nil
	}
	if s.err != nil {
		return "", s.err
	}
	if s.done {
		return "", io.EOF
	}
	for {
		text, err := s.pull()
		if err == io.EOF {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			s.err = apperr.Stream("chat", err)
			return "", s.err
		}
		if text != "" {
			return text, nil
		}
	}
}

func (s *geminiStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.done = true
	return nil
}
