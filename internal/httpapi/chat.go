package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"lumina/internal/apperr"
	"lumina/internal/orchestrator"
)

type chatRequest struct {
	Message string `json:"message" validate:"notblank,max=10000"`
}

// sseWriter 串行写出 SSE 事件 / serializes Server-Sent Event writes
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseWriter) send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// chat 以 SSE 流式返回回复：chunk 事件携带累计文本，最后是 done 或 error
// chat streams the reply as Server-Sent Events: each "chunk" event carries the
// text accumulated so far, followed by a final "done" or "error" event.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	turn, err := s.mgr.BeginChat(r.Context(), req.Message)
	if errors.Is(err, orchestrator.ErrChatBusy) {
		respondError(w, http.StatusConflict, string(apperr.KindValidation), err.Error())
		return
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	sse := &sseWriter{w: w, flusher: flusher}

	unsubscribe := s.mgr.Subscribe(func(ev orchestrator.Event) {
		if ev.Type == orchestrator.EventChatChunk {
			sse.send("chunk", map[string]string{"text": ev.Text})
		}
	})
	defer unsubscribe()

	reply, err := turn.Stream()
	if err != nil {
		code := string(apperr.KindOf(err))
		if orchestrator.IsCanceled(err) {
			code = "canceled"
		}
		sse.send("error", map[string]string{"code": code, "message": err.Error(), "reply": reply})
		return
	}
	sse.send("done", map[string]string{"reply": reply})
}
