package orchestrator

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lumina/internal/apperr"
	"lumina/internal/chat"
	"lumina/internal/gateway"
)

// replyAccumulator 流式回复的累加器：文本缓冲 + 占位消息下标
// replyAccumulator tracks one streamed reply: the text received so far and the
// index of the model placeholder in the history (-1 before it is inserted).
type replyAccumulator struct {
	buffer       strings.Builder
	messageIndex int
}

// ErrChatBusy 上一条回复仍在流式返回 / a reply is still streaming
var ErrChatBusy = apperr.Validation("chat", "a reply is still streaming")

// ChatTurn 已占用的一轮对话，调用 Stream 完成它
// ChatTurn is a claimed chat turn: its user message is already in the history
// and no other turn can start until Stream returns.
type ChatTurn struct {
	m         *Manager
	ctx       context.Context
	cancel    context.CancelFunc
	requestID string
	start     time.Time
	text      string
	fromInput bool
	prior     []chat.Message
	gen       uint64
}

// claimChatLocked 校验并占用对话；调用方持有 m.mu
// claimChatLocked validates text and claims the chat slot. Callers hold m.mu.
func (m *Manager) claimChatLocked(ctx context.Context, text string, fromInput bool) (*ChatTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("chat", "message is empty")
	}
	if m.chatActive {
		return nil, ErrChatBusy
	}
	turn := &ChatTurn{
		m:         m,
		requestID: uuid.NewString(),
		start:     time.Now(),
		text:      text,
		fromInput: fromInput,
		prior:     chat.Clone(m.history),
	}
	m.history = append(m.history, chat.UserMessage(text))
	m.chatLoading = true
	m.chatActive = true
	m.gens[KindChat]++
	turn.gen = m.gens[KindChat]
	turn.ctx, turn.cancel = context.WithCancel(ctx)
	m.cancels[KindChat] = turn.cancel
	return turn, nil
}

// BeginChat 占用对话并登记 text；不读写 assistantInput
// BeginChat claims the chat for text without touching the pending assistant
// input. The check and the claim are one step, so of two concurrent callers
// exactly one gets ErrChatBusy.
func (m *Manager) BeginChat(ctx context.Context, text string) (*ChatTurn, error) {
	m.mu.Lock()
	turn, err := m.claimChatLocked(ctx, text, false)
	m.mu.Unlock()
	if err != nil {
		return nil, m.reject(KindChat, err)
	}
	m.changed(KindChat)
	return turn, nil
}

// SendChatMessage 发送 assistantInput 并流式接收回复
// SendChatMessage sends the pending assistant input and streams the reply into
// the history. Each turn appends exactly one user message and exactly one model
// message; on failure the model message carries the partial reply followed by
// the localized fallback. The pending input is cleared only once the gateway
// has accepted the request. It returns the final model message content.
func (m *Manager) SendChatMessage(ctx context.Context) (string, error) {
	m.mu.Lock()
	turn, err := m.claimChatLocked(ctx, m.assistantInput, true)
	m.mu.Unlock()
	if err != nil {
		return "", m.reject(KindChat, err)
	}
	m.changed(KindChat)
	return turn.Stream()
}

// Stream 请求网关并流式写入回复；一轮只能调用一次
// Stream sends the turn to the gateway and streams the reply into the history.
// A successful reply with no text leaves the model message empty.
func (t *ChatTurn) Stream() (string, error) {
	m := t.m
	defer t.cancel()

	acc := &replyAccumulator{messageIndex: -1}
	stream, err := m.gateway.Chat(t.ctx, gateway.ChatRequest{
		History:   t.prior,
		Message:   t.text,
		Fragments: m.fragments.List(),
	})
	if err != nil {
		return m.failChat(t.ctx, t.requestID, t.start, t.gen, acc, err)
	}
	defer stream.Close()

	m.mu.Lock()
	if m.gens[KindChat] != t.gen {
		m.mu.Unlock()
		m.record(KindChat, t.requestID, statusCanceled, time.Since(t.start), nil)
		return "", ErrCanceled
	}
	if t.fromInput && strings.TrimSpace(m.assistantInput) == t.text {
		m.assistantInput = ""
	}
	m.history = append(m.history, chat.ModelMessage(""))
	acc.messageIndex = len(m.history) - 1
	m.placeholder = acc.messageIndex
	m.chatLoading = false
	m.mu.Unlock()
	m.changed(KindChat)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return m.failChat(t.ctx, t.requestID, t.start, t.gen, acc, err)
		}
		if chunk == "" {
			continue
		}
		acc.buffer.WriteString(chunk)
		reply := acc.buffer.String()

		m.mu.Lock()
		if m.gens[KindChat] != t.gen {
			m.mu.Unlock()
			m.record(KindChat, t.requestID, statusCanceled, time.Since(t.start), nil)
			return reply, ErrCanceled
		}
		m.history[acc.messageIndex].Content = reply
		m.mu.Unlock()

		m.metrics.ObserveChatChunk()
		m.emit(Event{Type: EventChatChunk, Kind: KindChat, Text: reply})
	}

	reply := acc.buffer.String()
	m.mu.Lock()
	if m.gens[KindChat] != t.gen {
		m.mu.Unlock()
		m.record(KindChat, t.requestID, statusCanceled, time.Since(t.start), nil)
		return reply, ErrCanceled
	}
	m.chatActive = false
	m.placeholder = -1
	delete(m.cancels, KindChat)
	m.mu.Unlock()
	m.changed(KindChat)

	m.record(KindChat, t.requestID, statusOK, time.Since(t.start), nil)
	return reply, nil
}

// failChat 对话失败：有占位则覆盖为 部分文本+兜底，无占位则追加兜底
// failChat settles a failed turn. With a placeholder present it is overwritten
// with the partial reply plus the fallback; otherwise the fallback is appended.
// A turn whose caller context ended is settled as interrupted instead.
func (m *Manager) failChat(ctx context.Context, requestID string, start time.Time, gen uint64, acc *replyAccumulator, cause error) (string, error) {
	m.mu.Lock()
	if m.gens[KindChat] != gen {
		m.mu.Unlock()
		m.record(KindChat, requestID, statusCanceled, time.Since(start), nil)
		return acc.buffer.String(), ErrCanceled
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		m.settleInterruptedLocked()
		m.chatLoading = false
		m.chatActive = false
		delete(m.cancels, KindChat)
		m.mu.Unlock()
		m.record(KindChat, requestID, statusCanceled, time.Since(start), nil)
		m.changed(KindChat)
		return acc.buffer.String(), ctxErr
	}
	reply := m.fallback
	if partial := acc.buffer.String(); partial != "" {
		reply = partial + "\n\n" + m.fallback
	}
	if acc.messageIndex >= 0 {
		m.history[acc.messageIndex].Content = reply
	} else {
		m.history = append(m.history, chat.ModelMessage(reply))
	}
	m.chatLoading = false
	m.chatActive = false
	m.placeholder = -1
	delete(m.cancels, KindChat)
	m.mu.Unlock()

	if apperr.KindOf(cause) == apperr.KindInternal {
		cause = apperr.Stream("chat", cause)
	}
	m.record(KindChat, requestID, statusError, time.Since(start), cause)
	m.logger.Debug("chat turn settled with fallback", zap.String("request_id", requestID), zap.Int("partial_len", acc.buffer.Len()))
	m.changed(KindChat)
	m.emit(Event{Type: EventError, Kind: KindChat, Err: cause})
	return reply, cause
}

// settleInterruptedLocked 被取消的回合也只留下一条非空模型消息
// settleInterruptedLocked closes a canceled turn with exactly one non-empty
// model message. Callers hold m.mu.
func (m *Manager) settleInterruptedLocked() {
	idx := m.placeholder
	m.placeholder = -1
	if idx >= 0 && idx < len(m.history) {
		if m.history[idx].Content == "" {
			m.history[idx].Content = m.interrupted
		}
		return
	}
	if n := len(m.history); n > 0 && m.history[n-1].Role == chat.RoleUser {
		m.history = append(m.history, chat.ModelMessage(m.interrupted))
	}
}

// ClearChat 清空对话并取消在途回复
// ClearChat empties the history and cancels any in-flight reply.
func (m *Manager) ClearChat() {
	m.Cancel(KindChat)
	m.mu.Lock()
	m.history = []chat.Message{}
	m.chatLoading = false
	m.placeholder = -1
	m.mu.Unlock()
	m.changed(KindChat)
}

// History 返回对话历史副本 / returns a copy of the chat history
func (m *Manager) History() []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return chat.Clone(m.history)
}
