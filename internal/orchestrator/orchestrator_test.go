package orchestrator

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"lumina/internal/apperr"
	"lumina/internal/fragment"
	"lumina/internal/gateway"
	"lumina/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedGateway 按钩子返回结果的网关替身
type scriptedGateway struct {
	organize   func(ctx context.Context, frags []fragment.Fragment) (gateway.PlanningResult, error)
	review     func(ctx context.Context, frags []fragment.Fragment) (string, error)
	brainstorm func(ctx context.Context, idea string) ([]gateway.BrainstormIdea, error)
	chat       func(ctx context.Context, req gateway.ChatRequest) (gateway.ChatStream, error)

	mu       sync.Mutex
	calls    map[string]int
	requests []gateway.ChatRequest
}

func (g *scriptedGateway) count(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[op]++
}

func (g *scriptedGateway) callCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *scriptedGateway) Name() string { return "scripted" }

func (g *scriptedGateway) Organize(ctx context.Context, frags []fragment.Fragment) (gateway.PlanningResult, error) {
	g.count("organize")
	if g.organize == nil {
		return gateway.PlanningResult{}, errors.New("no scripted organize")
	}
	return g.organize(ctx, frags)
}

func (g *scriptedGateway) Review(ctx context.Context, frags []fragment.Fragment) (string, error) {
	g.count("review")
	if g.review == nil {
		return "", errors.New("no scripted review")
	}
	return g.review(ctx, frags)
}

func (g *scriptedGateway) Brainstorm(ctx context.Context, idea string) ([]gateway.BrainstormIdea, error) {
	g.count("brainstorm")
	if g.brainstorm == nil {
		return nil, errors.New("no scripted brainstorm")
	}
	return g.brainstorm(ctx, idea)
}

func (g *scriptedGateway) Chat(ctx context.Context, req gateway.ChatRequest) (gateway.ChatStream, error) {
	g.count("chat")
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.chat == nil {
		return nil, errors.New("no scripted chat")
	}
	return g.chat(ctx, req)
}

// fakeStream 依次返回 chunks，之后返回 err 或 io.EOF；hold 非空时每次 Recv 等待放行
type fakeStream struct {
	ctx    context.Context
	chunks []string
	err    error
	hold   chan struct{}
	closed atomic.Bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.hold != nil {
		select {
		case <-s.hold:
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		}
	}
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if len(s.chunks) > 0 {
		c := s.chunks[0]
		s.chunks = s.chunks[1:]
		return c, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	ops    []string
	chunks int
}

func (r *fakeRecorder) ObserveOperation(kind, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, kind+":"+status)
}

func (r *fakeRecorder) ObserveChatChunk() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks++
}

type memoryOpLog struct {
	mu      sync.Mutex
	entries []storage.OperationEntry
}

func (l *memoryOpLog) LogOperation(e storage.OperationEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

const testFallback = "FALLBACK"

func newTestManager(t *testing.T, gw gateway.Gateway, seeded bool) *Manager {
	t.Helper()
	store := fragment.NewStore(storage.NewMemoryKV(), nil, "en")
	if seeded {
		if err := store.Load(); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	return New(store, gw, Options{
		ChatFallback:   testFallback,
		RecordingDelay: 10 * time.Millisecond,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

var samplePlan = gateway.PlanningResult{
	Themes:        []string{"canvas"},
	ActionItems:   []string{"ship beta"},
	Opportunities: []string{},
	Summary:       "focused week",
}

func TestOrganizeRequiresFragments(t *testing.T) {
	gw := &scriptedGateway{}
	m := newTestManager(t, gw, false)

	_, err := m.Organize(context.Background())
	if !apperr.IsValidation(err) {
		t.Fatalf("err=%v, want validation error", err)
	}
	if _, err := m.Review(context.Background()); !apperr.IsValidation(err) {
		t.Fatalf("review err=%v, want validation error", err)
	}
	if n := gw.callCount("organize") + gw.callCount("review"); n != 0 {
		t.Fatalf("gateway called %d times, want 0", n)
	}
	st := m.Snapshot()
	if st.IsAILoading || st.PlanningData != nil || st.ReviewData != nil {
		t.Fatalf("state changed on rejected trigger: %+v", st)
	}
}

func TestOrganizeSuccessReplacesResult(t *testing.T) {
	gw := &scriptedGateway{organize: func(_ context.Context, frags []fragment.Fragment) (gateway.PlanningResult, error) {
		if len(frags) != 5 {
			return gateway.PlanningResult{}, errors.New("expected the seeded collection")
		}
		return samplePlan, nil
	}}
	m := newTestManager(t, gw, true)

	got, err := m.Organize(context.Background())
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if diff := cmp.Diff(samplePlan, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	st := m.Snapshot()
	if st.PlanningData == nil || st.PlanningData.Summary != "focused week" {
		t.Fatalf("planningData=%+v", st.PlanningData)
	}
	if st.Loading[KindOrganize] || st.IsAILoading {
		t.Fatal("loading flag not cleared")
	}
}

func TestOrganizeFailurePreservesPrior(t *testing.T) {
	fail := false
	gw := &scriptedGateway{organize: func(context.Context, []fragment.Fragment) (gateway.PlanningResult, error) {
		if fail {
			return gateway.PlanningResult{}, apperr.Gateway("organize", errors.New("503"))
		}
		return samplePlan, nil
	}}
	m := newTestManager(t, gw, true)

	if _, err := m.Organize(context.Background()); err != nil {
		t.Fatalf("first Organize: %v", err)
	}
	fail = true
	_, err := m.Organize(context.Background())
	if !apperr.IsGateway(err) {
		t.Fatalf("err=%v, want gateway error", err)
	}
	st := m.Snapshot()
	if diff := cmp.Diff(&samplePlan, st.PlanningData); diff != "" {
		t.Fatalf("prior result lost (-want +got):\n%s", diff)
	}
	if st.Loading[KindOrganize] {
		t.Fatal("loading flag not cleared after failure")
	}
}

func TestReviewFailurePreservesPrior(t *testing.T) {
	calls := 0
	gw := &scriptedGateway{review: func(context.Context, []fragment.Fragment) (string, error) {
		calls++
		if calls > 1 {
			return "", apperr.Gateway("review", errors.New("timeout"))
		}
		return "A calm week.", nil
	}}
	m := newTestManager(t, gw, true)

	if _, err := m.Review(context.Background()); err != nil {
		t.Fatalf("Review: %v", err)
	}
	if _, err := m.Review(context.Background()); err == nil {
		t.Fatal("second Review should fail")
	}
	st := m.Snapshot()
	if st.ReviewData == nil || *st.ReviewData != "A calm week." {
		t.Fatalf("reviewData=%v", st.ReviewData)
	}
}

func TestOrganizeSingleFlight(t *testing.T) {
	release := make(chan struct{})
	gw := &scriptedGateway{organize: func(context.Context, []fragment.Fragment) (gateway.PlanningResult, error) {
		<-release
		return samplePlan, nil
	}}
	m := newTestManager(t, gw, true)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = m.Organize(context.Background())
	}()
	waitFor(t, "organize in flight", func() bool { return m.Loading(KindOrganize) })

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = m.Organize(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if n := gw.callCount("organize"); n != 1 {
		t.Fatalf("gateway called %d times, re-entrant trigger must join", n)
	}
}

func TestCancelDiscardsLateResult(t *testing.T) {
	release := make(chan struct{})
	gw := &scriptedGateway{organize: func(context.Context, []fragment.Fragment) (gateway.PlanningResult, error) {
		// 忽略 ctx，模拟取消后仍然返回的迟到结果
		<-release
		return samplePlan, nil
	}}
	m := newTestManager(t, gw, true)

	done := make(chan error, 1)
	go func() {
		_, err := m.Organize(context.Background())
		done <- err
	}()
	waitFor(t, "organize in flight", func() bool { return m.Loading(KindOrganize) })

	m.Cancel(KindOrganize)
	if m.Loading(KindOrganize) {
		t.Fatal("Cancel must clear the loading flag")
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrCanceled) {
		t.Fatalf("err=%v, want ErrCanceled", err)
	}
	if st := m.Snapshot(); st.PlanningData != nil {
		t.Fatalf("late result applied: %+v", st.PlanningData)
	}
}

func TestCancelThenRetrigger(t *testing.T) {
	first := make(chan struct{})
	var calls atomic.Int32
	newer := gateway.PlanningResult{Themes: []string{"b"}, ActionItems: []string{}, Opportunities: []string{}, Summary: "newer"}
	gw := &scriptedGateway{organize: func(context.Context, []fragment.Fragment) (gateway.PlanningResult, error) {
		if calls.Add(1) == 1 {
			<-first
			return samplePlan, nil
		}
		return newer, nil
	}}
	m := newTestManager(t, gw, true)

	done := make(chan error, 1)
	go func() {
		_, err := m.Organize(context.Background())
		done <- err
	}()
	waitFor(t, "first organize in flight", func() bool { return m.Loading(KindOrganize) })
	m.Cancel(KindOrganize)

	got, err := m.Organize(context.Background())
	if err != nil || got.Summary != "newer" {
		t.Fatalf("retrigger got=%+v err=%v", got, err)
	}
	close(first)
	if err := <-done; !errors.Is(err, ErrCanceled) {
		t.Fatalf("first err=%v, want ErrCanceled", err)
	}

	st := m.Snapshot()
	if st.PlanningData == nil || st.PlanningData.Summary != "newer" {
		t.Fatalf("planningData=%+v, stale result must not overwrite", st.PlanningData)
	}
	if st.Loading[KindOrganize] {
		t.Fatal("stale completion must not touch the loading flag")
	}
}

func TestCallerContextEndsWithoutCancelling(t *testing.T) {
	release := make(chan struct{})
	gw := &scriptedGateway{review: func(context.Context, []fragment.Fragment) (string, error) {
		<-release
		return "done", nil
	}}
	m := newTestManager(t, gw, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Review(ctx)
		done <- err
	}()
	waitFor(t, "review in flight", func() bool { return m.Loading(KindReview) })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}

	close(release)
	waitFor(t, "review landed", func() bool { return !m.Loading(KindReview) })
	if st := m.Snapshot(); st.ReviewData == nil || *st.ReviewData != "done" {
		t.Fatalf("reviewData=%v", st.ReviewData)
	}
}

func TestBrainstorm(t *testing.T) {
	ideas := []gateway.BrainstormIdea{{Concept: "A", Reasoning: "r", Complexity: gateway.ComplexityLow}}
	gw := &scriptedGateway{brainstorm: func(_ context.Context, idea string) ([]gateway.BrainstormIdea, error) {
		if idea != "particles" {
			return nil, errors.New("idea not trimmed")
		}
		return ideas, nil
	}}
	m := newTestManager(t, gw, false)

	if _, err := m.Brainstorm(context.Background(), "   "); !apperr.IsValidation(err) {
		t.Fatalf("blank idea err=%v", err)
	}
	if gw.callCount("brainstorm") != 0 {
		t.Fatal("blank idea must not reach the gateway")
	}

	got, err := m.Brainstorm(context.Background(), "  particles ")
	if err != nil {
		t.Fatalf("Brainstorm: %v", err)
	}
	want := BrainstormResult{Idea: "particles", Storm: ideas}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	st := m.Snapshot()
	if st.CurrentView != ViewBrainstorm {
		t.Fatalf("view=%s, want brainstorm", st.CurrentView)
	}
	if diff := cmp.Diff(&want, st.StormData); diff != "" {
		t.Fatalf("stormData mismatch (-want +got):\n%s", diff)
	}
}

func TestBrainstormNewIdeaReplacesInFlight(t *testing.T) {
	release := make(chan struct{})
	gw := &scriptedGateway{brainstorm: func(_ context.Context, idea string) ([]gateway.BrainstormIdea, error) {
		if idea == "old" {
			<-release
		}
		return []gateway.BrainstormIdea{{Concept: idea, Reasoning: "r", Complexity: gateway.ComplexityMedium}}, nil
	}}
	m := newTestManager(t, gw, false)

	done := make(chan error, 1)
	go func() {
		_, err := m.Brainstorm(context.Background(), "old")
		done <- err
	}()
	waitFor(t, "brainstorm in flight", func() bool { return m.Loading(KindBrainstorm) })

	got, err := m.Brainstorm(context.Background(), "new")
	if err != nil || got.Idea != "new" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	close(release)
	if err := <-done; !errors.Is(err, ErrCanceled) {
		t.Fatalf("replaced call err=%v, want ErrCanceled", err)
	}
	if st := m.Snapshot(); st.StormData == nil || st.StormData.Idea != "new" {
		t.Fatalf("stormData=%+v", st.StormData)
	}
}

// blockingRecorder 在第一次观测到 target 时停住，直到 release 关闭
type blockingRecorder struct {
	fakeRecorder
	target  string
	blocked atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRecorder) ObserveOperation(kind, status string, d time.Duration) {
	r.fakeRecorder.ObserveOperation(kind, status, d)
	if kind+":"+status != r.target {
		return
	}
	if r.blocked.CompareAndSwap(false, true) {
		close(r.entered)
		<-r.release
	}
}

func TestBrainstormNewIdeaWhileFinishing(t *testing.T) {
	gw := &scriptedGateway{brainstorm: func(_ context.Context, idea string) ([]gateway.BrainstormIdea, error) {
		return []gateway.BrainstormIdea{{Concept: idea, Reasoning: "r", Complexity: gateway.ComplexityLow}}, nil
	}}
	rec := &blockingRecorder{target: "brainstorm:ok", entered: make(chan struct{}), release: make(chan struct{})}
	m := New(fragment.NewStore(nil, nil, "en"), gw, Options{Metrics: rec})

	done := make(chan error, 1)
	go func() {
		_, err := m.Brainstorm(context.Background(), "idea1")
		done <- err
	}()
	// 第一次调用已提交，仍停在记录阶段
	<-rec.entered
	if m.Loading(KindBrainstorm) {
		t.Fatal("committed call must not report loading")
	}

	got, err := m.Brainstorm(context.Background(), "idea2")
	close(rec.release)
	if err != nil {
		t.Fatalf("Brainstorm: %v", err)
	}
	if got.Idea != "idea2" {
		t.Fatalf("idea=%q, a different idea must not join the finishing call", got.Idea)
	}
	if err := <-done; err != nil {
		t.Fatalf("first call: %v", err)
	}
	if n := gw.callCount("brainstorm"); n != 2 {
		t.Fatalf("gateway called %d times, want 2", n)
	}
	if st := m.Snapshot(); st.StormData == nil || st.StormData.Idea != "idea2" {
		t.Fatalf("stormData=%+v", st.StormData)
	}
}

func TestOrganizeAfterChangeDoesNotJoin(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	var secondSaw atomic.Int32
	gw := &scriptedGateway{organize: func(_ context.Context, frags []fragment.Fragment) (gateway.PlanningResult, error) {
		if calls.Add(1) == 1 {
			<-release
			return samplePlan, nil
		}
		secondSaw.Store(int32(len(frags)))
		return gateway.PlanningResult{Themes: []string{}, ActionItems: []string{}, Opportunities: []string{}, Summary: "fresh"}, nil
	}}
	m := newTestManager(t, gw, true)
	before := len(m.Snapshot().Fragments)

	done := make(chan error, 1)
	go func() {
		_, err := m.Organize(context.Background())
		done <- err
	}()
	waitFor(t, "organize in flight", func() bool { return m.Loading(KindOrganize) })

	if _, err := m.AddFragment("a brand new thought"); err != nil {
		t.Fatalf("AddFragment: %v", err)
	}
	got, err := m.Organize(context.Background())
	close(release)
	if err != nil || got.Summary != "fresh" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	if err := <-done; !errors.Is(err, ErrCanceled) {
		t.Fatalf("first err=%v, want ErrCanceled", err)
	}
	if n := gw.callCount("organize"); n != 2 {
		t.Fatalf("gateway called %d times, want 2", n)
	}
	if int(secondSaw.Load()) != before+1 {
		t.Fatalf("second call saw %d fragments, want %d", secondSaw.Load(), before+1)
	}
	if st := m.Snapshot(); st.PlanningData == nil || st.PlanningData.Summary != "fresh" {
		t.Fatalf("planningData=%+v", st.PlanningData)
	}
}

func TestOutcomesAreRecorded(t *testing.T) {
	gw := &scriptedGateway{organize: func(context.Context, []fragment.Fragment) (gateway.PlanningResult, error) {
		return samplePlan, nil
	}}
	rec := &fakeRecorder{}
	oplog := &memoryOpLog{}
	store := fragment.NewStore(nil, nil, "en")
	m := New(store, gw, Options{Metrics: rec, OperationLog: oplog})

	if _, err := m.Organize(context.Background()); !apperr.IsValidation(err) {
		t.Fatalf("err=%v", err)
	}
	if _, err := store.Add("one idea"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := m.Organize(context.Background()); err != nil {
		t.Fatalf("Organize: %v", err)
	}

	if diff := cmp.Diff([]string{"organize:rejected", "organize:ok"}, rec.ops); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
	if len(oplog.entries) != 2 {
		t.Fatalf("oplog entries=%d", len(oplog.entries))
	}
	last := oplog.entries[1]
	if last.Kind != "organize" || last.Status != "ok" || last.RequestID == "" {
		t.Fatalf("entry=%+v", last)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	gw := &scriptedGateway{organize: func(context.Context, []fragment.Fragment) (gateway.PlanningResult, error) {
		return samplePlan, nil
	}}
	m := newTestManager(t, gw, true)
	if _, err := m.Organize(context.Background()); err != nil {
		t.Fatalf("Organize: %v", err)
	}

	st := m.Snapshot()
	st.PlanningData.Themes[0] = "mutated"
	st.Fragments[0].Content = "mutated"
	st.Loading[KindOrganize] = true

	again := m.Snapshot()
	if again.PlanningData.Themes[0] != "canvas" || again.Fragments[0].Content == "mutated" || again.Loading[KindOrganize] {
		t.Fatal("snapshot shares memory with manager state")
	}
}

func TestSubscribe(t *testing.T) {
	m := newTestManager(t, &scriptedGateway{}, false)

	var mu sync.Mutex
	var events []Event
	unsubscribe := m.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	if err := m.SetView(ViewPlanning); err != nil {
		t.Fatalf("SetView: %v", err)
	}
	unsubscribe()
	unsubscribe()
	m.SetInputValue("ignored")

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || events[0].Type != EventState {
		t.Fatalf("events=%+v", events)
	}
	if err := m.SetView("settings"); !apperr.IsValidation(err) {
		t.Fatalf("unknown view err=%v", err)
	}
}

func TestAddFromInput(t *testing.T) {
	m := newTestManager(t, &scriptedGateway{}, false)

	m.SetInputValue("   ")
	if _, err := m.AddFromInput(); !apperr.IsValidation(err) {
		t.Fatalf("blank input err=%v", err)
	}
	if st := m.Snapshot(); st.InputValue != "   " || len(st.Fragments) != 0 {
		t.Fatalf("failed add changed state: %+v", st)
	}

	m.SetInputValue("learn shaders")
	f, err := m.AddFromInput()
	if err != nil {
		t.Fatalf("AddFromInput: %v", err)
	}
	st := m.Snapshot()
	if st.InputValue != "" || len(st.Fragments) != 1 || st.Fragments[0].ID != f.ID {
		t.Fatalf("state=%+v", st)
	}
}

func TestFragmentPassThroughs(t *testing.T) {
	m := newTestManager(t, &scriptedGateway{}, false)
	f, err := m.AddFragment("draft")
	if err != nil {
		t.Fatalf("AddFragment: %v", err)
	}
	if got, ok := m.ToggleTodo(f.ID); !ok || got.Type != fragment.TypeTodo {
		t.Fatalf("ToggleTodo=%+v,%v", got, ok)
	}
	if got, err := m.SetStatus(f.ID, fragment.StatusCompleted); err != nil || got.Status != fragment.StatusCompleted {
		t.Fatalf("SetStatus=%+v,%v", got, err)
	}
	if !m.RemoveFragment(f.ID) || m.RemoveFragment(f.ID) {
		t.Fatal("RemoveFragment should succeed once")
	}
}

func TestSimulateRecording(t *testing.T) {
	m := newTestManager(t, &scriptedGateway{}, false)
	m.recDelay = 200 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := m.SimulateRecording(context.Background())
		done <- err
	}()
	waitFor(t, "recording started", m.Recording)
	if _, err := m.SimulateRecording(context.Background()); !apperr.IsValidation(err) {
		t.Fatalf("concurrent recording err=%v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("SimulateRecording: %v", err)
	}

	st := m.Snapshot()
	if st.IsRecording {
		t.Fatal("isRecording not cleared")
	}
	if len(st.Fragments) != 1 || st.Fragments[0].Content != DefaultTranscript {
		t.Fatalf("fragments=%+v", st.Fragments)
	}
}

func TestSimulateRecordingCancelled(t *testing.T) {
	m := newTestManager(t, &scriptedGateway{}, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.SimulateRecording(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if st := m.Snapshot(); st.IsRecording || len(st.Fragments) != 0 {
		t.Fatalf("state=%+v", st)
	}
}
