package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"lumina/internal/apperr"
	"lumina/internal/chat"
	"lumina/internal/contextmgr"
	"lumina/internal/defaults"
	"lumina/internal/fragment"
)

// JSON 模式下需要在 prompt 中声明结构
const (
	organizeJSONHint   = "\n\nRespond with a JSON object with keys \"themes\", \"actionItems\", \"opportunities\" (arrays of strings) and \"summary\" (string)."
	brainstormJSONHint = "\n\nRespond with a JSON object {\"ideas\": [...]} where each item has \"concept\", \"reasoning\" and \"complexity\" (Low, Medium, or High)."
)

// OpenAIGateway 使用 go-openai SDK 的网关实现，适用于任何 OpenAI 兼容服务
// OpenAIGateway implements Gateway with the go-openai SDK against any OpenAI-compatible endpoint.
type OpenAIGateway struct {
	client  *openai.Client
	models  Models
	prompts promptBuilder
	retry   retrier
	logger  *zap.Logger
}

// NewOpenAIGateway 创建基于 SDK 的网关
// NewOpenAIGateway creates an SDK-based gateway
func NewOpenAIGateway(cfg Config, budget *contextmgr.Budget, logger *zap.Logger) *OpenAIGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	config := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		config.BaseURL = base
	}
	config.HTTPClient = newHTTPClient(cfg.Timeout)

	return &OpenAIGateway{
		client:  openai.NewClientWithConfig(config),
		models:  cfg.Models.withDefaults(ProviderOpenAI),
		prompts: promptBuilder{budget: budget},
		retry:   newRetrier(cfg.MaxRetries, logger),
		logger:  logger.Named("openai"),
	}
}

func (g *OpenAIGateway) Name() string {
	return ProviderOpenAI
}

func (g *OpenAIGateway) Organize(ctx context.Context, frags []fragment.Fragment) (PlanningResult, error) {
	var out PlanningResult
	err := g.retry.do(ctx, "organize", func(ctx context.Context) error {
		text, err := g.complete(ctx, openai.ChatCompletionRequest{
			Model:       g.models.Organize,
			Messages:    userOnly(g.prompts.organize(frags) + organizeJSONHint),
			Temperature: defaults.OrganizeTemperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
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

func (g *OpenAIGateway) Brainstorm(ctx context.Context, idea string) ([]BrainstormIdea, error) {
	var out []BrainstormIdea
	err := g.retry.do(ctx, "brainstorm", func(ctx context.Context) error {
		text, err := g.complete(ctx, openai.ChatCompletionRequest{
			Model:       g.models.Brainstorm,
			Messages:    userOnly(defaults.BrainstormPrompt(idea) + brainstormJSONHint),
			Temperature: defaults.BrainstormTemperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
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

func (g *OpenAIGateway) Review(ctx context.Context, frags []fragment.Fragment) (string, error) {
	var out string
	err := g.retry.do(ctx, "review", func(ctx context.Context) error {
		text, err := g.complete(ctx, openai.ChatCompletionRequest{
			Model:       g.models.Review,
			Messages:    userOnly(g.prompts.review(frags)),
			Temperature: defaults.ReviewTemperature,
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

func (g *OpenAIGateway) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformed)
	}
	return resp.Choices[0].Message.Content, nil
}

// Chat 打开流式对话；只对建立连接重试
// Chat opens a streamed completion. Only opening the stream is retried.
func (g *OpenAIGateway) Chat(ctx context.Context, req ChatRequest) (ChatStream, error) {
	system, history := g.prompts.chat(req)
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	messages = append(messages, convertMessages(history)...)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})

	var stream *openai.ChatCompletionStream
	err := g.retry.do(ctx, "chat", func(ctx context.Context) error {
		s, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:    g.models.Chat,
			Messages: messages,
			Stream:   true,
		})
		if err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, apperr.Gateway("chat", err)
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", apperr.Stream("chat", fmt.Errorf("recv stream: %w", err))
		}
		var b strings.Builder
		for _, choice := range resp.Choices {
			b.WriteString(choice.Delta.Content)
		}
		// 仅含 role 或 usage 的块不产出文本
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

// --- Message Conversion ---

func userOnly(prompt string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}}
}

// convertMessages model 角色映射为 assistant
// convertMessages maps the model role onto assistant.
func convertMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == chat.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
