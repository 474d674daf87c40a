package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/internal/fragment"
	"lumina/internal/gateway"
	"lumina/internal/metrics"
	"lumina/internal/orchestrator"
	"lumina/internal/storage"
)

type stubGateway struct {
	plan   gateway.PlanningResult
	chunks []string
	err    error
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) Organize(context.Context, []fragment.Fragment) (gateway.PlanningResult, error) {
	return g.plan, g.err
}

func (g *stubGateway) Review(context.Context, []fragment.Fragment) (string, error) {
	return "weekly", g.err
}

func (g *stubGateway) Brainstorm(_ context.Context, idea string) ([]gateway.BrainstormIdea, error) {
	if g.err != nil {
		return nil, g.err
	}
	return []gateway.BrainstormIdea{{Concept: idea + "!", Reasoning: "r", Complexity: gateway.ComplexityLow}}, nil
}

func (g *stubGateway) Chat(context.Context, gateway.ChatRequest) (gateway.ChatStream, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &sliceStream{chunks: append([]string(nil), g.chunks...)}, nil
}

type sliceStream struct{ chunks []string }

func (s *sliceStream) Recv() (string, error) {
	if len(s.chunks) == 0 {
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *sliceStream) Close() error { return nil }

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

func newTestServer(t *testing.T, gw gateway.Gateway, seeded bool) (*httptest.Server, *orchestrator.Manager, *metrics.Collector) {
	t.Helper()
	store := fragment.NewStore(storage.NewMemoryKV(), nil, "en")
	if seeded {
		require.NoError(t, store.Load())
	}
	mgr := orchestrator.New(store, gw, orchestrator.Options{ChatFallback: "FALLBACK"})
	collector := metrics.NewCollector()
	srv := httptest.NewServer(New(mgr, Options{Metrics: collector, AllowedOrigins: []string{"http://localhost:5173"}}).Handler())
	t.Cleanup(srv.Close)
	return srv, mgr, collector
}

func do(t *testing.T, method, url, body string) (*http.Response, apiResponse) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubGateway{}, true)

	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	assert.Contains(t, string(body.Data), `"provider":"stub"`)
	assert.Contains(t, string(body.Data), `"fragments":5`)
}

func TestFragmentLifecycle(t *testing.T) {
	srv, mgr, _ := newTestServer(t, &stubGateway{}, false)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/fragments", `{"content":"  canvas physics  "}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var f fragment.Fragment
	require.NoError(t, json.Unmarshal(body.Data, &f))
	assert.Equal(t, "canvas physics", f.Content)
	assert.Equal(t, fragment.TypeFragment, f.Type)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/fragments/"+f.ID+"/toggle", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/fragments/"+f.ID+"/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body.Data, &f))
	assert.Equal(t, fragment.StatusCompleted, f.Status)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/fragments/"+f.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, mgr.Fragments().Len())

	resp, body = do(t, http.MethodDelete, srv.URL+"/api/fragments/"+f.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body.Error.Code)
}

func TestRequestValidation(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubGateway{}, true)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   string
	}{
		{"blank content", http.MethodPost, "/api/fragments", `{"content":"   "}`, "content is required"},
		{"unknown field", http.MethodPost, "/api/fragments", `{"text":"x"}`, "invalid request body"},
		{"bad status", http.MethodPost, "/api/fragments/mock-3/status", `{"status":"done"}`, "status must be one of"},
		{"bad view", http.MethodPut, "/api/view", `{"view":"settings"}`, "view must be one of"},
		{"blank idea", http.MethodPost, "/api/brainstorm", `{"idea":""}`, "idea is required"},
		{"blank chat", http.MethodPost, "/api/chat", `{"message":" "}`, "message is required"},
		{"bad kind", http.MethodPost, "/api/cancel/sleep", "", "unknown operation kind"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, tc.method, srv.URL+tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.NotNil(t, body.Error)
			assert.Equal(t, "validation", body.Error.Code)
			assert.Contains(t, body.Error.Message, tc.want)
		})
	}
}

func TestOrganizeEndpoints(t *testing.T) {
	plan := gateway.PlanningResult{Themes: []string{"t"}, ActionItems: []string{}, Opportunities: []string{}, Summary: "s"}

	t.Run("empty collection", func(t *testing.T) {
		srv, _, _ := newTestServer(t, &stubGateway{plan: plan}, false)
		resp, body := do(t, http.MethodPost, srv.URL+"/api/organize", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation", body.Error.Code)
	})

	t.Run("success", func(t *testing.T) {
		srv, mgr, _ := newTestServer(t, &stubGateway{plan: plan}, true)
		resp, body := do(t, http.MethodPost, srv.URL+"/api/organize", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"themes":["t"],"actionItems":[],"opportunities":[],"summary":"s"}`, string(body.Data))
		assert.NotNil(t, mgr.Snapshot().PlanningData)
	})

	t.Run("gateway failure", func(t *testing.T) {
		srv, _, _ := newTestServer(t, &stubGateway{err: errors.New("upstream down")}, true)
		resp, _ := do(t, http.MethodPost, srv.URL+"/api/review", "")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestBrainstormEndpoint(t *testing.T) {
	srv, mgr, _ := newTestServer(t, &stubGateway{}, false)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/brainstorm", `{"idea":"orbit"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body.Data), `"idea":"orbit"`)
	assert.Equal(t, orchestrator.ViewBrainstorm, mgr.Snapshot().CurrentView)
}

func TestChatStreamsSSE(t *testing.T) {
	srv, mgr, _ := newTestServer(t, &stubGateway{chunks: []string{"Hel", "lo"}}, true)

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	stream := string(raw)
	assert.Contains(t, stream, "event: chunk\ndata: {\"text\":\"Hel\"}")
	assert.Contains(t, stream, "event: chunk\ndata: {\"text\":\"Hello\"}")
	assert.Contains(t, stream, "event: done\ndata: {\"reply\":\"Hello\"}")

	history := mgr.History()
	require.Len(t, history, 2)
	assert.Equal(t, "Hello", history[1].Content)

	dresp, _ := do(t, http.MethodDelete, srv.URL+"/api/chat", "")
	assert.Equal(t, http.StatusNoContent, dresp.StatusCode)
	assert.Empty(t, mgr.History())
}

func TestChatFailureEmitsErrorEvent(t *testing.T) {
	srv, mgr, _ := newTestServer(t, &stubGateway{err: errors.New("dial failed")}, true)
	mgr.SetAssistantInput("draft")

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "event: error")
	assert.Contains(t, string(raw), `"reply":"FALLBACK"`)
	assert.Equal(t, "draft", mgr.Snapshot().AssistantInput, "api chat must not touch the pending input")
}

func TestChatBusyIsConflict(t *testing.T) {
	srv, mgr, _ := newTestServer(t, &stubGateway{chunks: []string{"ok"}}, true)

	turn, err := mgr.BeginChat(context.Background(), "first")
	require.NoError(t, err)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/chat", `{"message":"second"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEqual(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.NotNil(t, body.Error)
	assert.Equal(t, "validation", body.Error.Code)

	reply, err := turn.Stream()
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	require.Len(t, mgr.History(), 2)
}

func TestInputAndView(t *testing.T) {
	srv, mgr, _ := newTestServer(t, &stubGateway{}, false)

	resp, _ := do(t, http.MethodPut, srv.URL+"/api/input", `{"value":"draft"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/input/commit", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = do(t, http.MethodPut, srv.URL+"/api/view", `{"view":"planning"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st orchestrator.State
	require.NoError(t, json.Unmarshal(body.Data, &st))
	assert.Equal(t, orchestrator.ViewPlanning, st.CurrentView)
	assert.Equal(t, "", st.InputValue)
	require.Len(t, st.Fragments, 1)
	assert.Equal(t, "draft", st.Fragments[0].Content)
	assert.Equal(t, 1, mgr.Fragments().Len())
}

func TestCORSAndMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubGateway{}, true)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/fragments", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, _ := io.ReadAll(mresp.Body)
	assert.Contains(t, string(raw), `lumina_http_requests_total{method="GET",route="/api/fragments`)
	assert.Contains(t, string(raw), `status="200"} 1`)
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	store := fragment.NewStore(storage.NewMemoryKV(), nil, "en")
	srv := New(orchestrator.New(store, &stubGateway{}, orchestrator.Options{}), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a })
	}()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}

func TestListenAndServeBadAddress(t *testing.T) {
	store := fragment.NewStore(storage.NewMemoryKV(), nil, "en")
	srv := New(orchestrator.New(store, &stubGateway{}, orchestrator.Options{}), Options{})
	err := srv.ListenAndServe(context.Background(), "127.0.0.1:-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}
