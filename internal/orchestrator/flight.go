package orchestrator

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lumina/internal/apperr"
	"lumina/internal/fragment"
	"lumina/internal/gateway"
)

// flight 某类别当前在途的一次调用；key 描述其输入
// flight is the current call of one kind. key identifies its input, so a
// trigger with the same input joins it and a trigger with a different input
// replaces it. done is closed once val and err are final.
type flight struct {
	key  string
	gen  uint64
	done chan struct{}
	val  any
	err  error
}

// beginLocked 递增代号、取消上一调用并登记新的在途调用；调用方持有 m.mu
// beginLocked bumps the generation, cancels the previous call of kind and
// registers a new flight. The returned context outlives the caller's
// cancellation. Callers hold m.mu.
func (m *Manager) beginLocked(parent context.Context, kind Kind, key string) (*flight, context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	m.gens[kind]++
	if prev := m.cancels[kind]; prev != nil {
		prev()
	}
	m.cancels[kind] = cancel
	m.loading[kind] = true
	f := &flight{key: key, gen: m.gens[kind], done: make(chan struct{})}
	m.flights[kind] = f
	return f, ctx
}

// finish 结束调用；代号过期返回 true，此时不改动任何状态
// finish ends flight f. It returns true when f's token is stale; commit then
// does not run and loading is left to the newer owner.
func (m *Manager) finish(kind Kind, f *flight, commit func()) (stale bool) {
	m.mu.Lock()
	if m.gens[kind] != f.gen {
		m.mu.Unlock()
		return true
	}
	if commit != nil {
		commit()
	}
	m.loading[kind] = false
	if cancel := m.cancels[kind]; cancel != nil {
		cancel()
		delete(m.cancels, kind)
	}
	if m.flights[kind] == f {
		delete(m.flights, kind)
	}
	m.mu.Unlock()

	m.changed(kind)
	return false
}

// Cancel 取消该类别的在途操作；迟到的结果会被丢弃
// Cancel aborts the in-flight operation of kind. Its result, if it still
// arrives, is discarded. Canceling an idle kind is a no-op.
func (m *Manager) Cancel(kind Kind) {
	m.mu.Lock()
	cancel := m.cancels[kind]
	active := m.loading[kind] || (kind == KindChat && m.chatActive)
	m.gens[kind]++
	delete(m.cancels, kind)
	delete(m.flights, kind)
	m.loading[kind] = false
	if kind == KindChat {
		if m.chatActive {
			m.settleInterruptedLocked()
		}
		m.chatLoading = false
		m.chatActive = false
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if active {
		m.logger.Info("operation canceled", zap.String("kind", string(kind)))
		m.changed(kind)
	}
}

// Loading 报告该类别是否在途 / reports whether kind is in flight
func (m *Manager) Loading(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == KindChat {
		return m.chatActive
	}
	return m.loading[kind]
}

// run 单飞执行 call：相同 key 加入在途调用，不同 key 取消并替换它
// run executes call single-flight per kind. A trigger whose key matches the
// in-flight call joins it instead of dispatching a second request; a different
// key cancels the in-flight call and replaces it. The caller stops waiting when
// ctx ends, while the operation itself keeps running until it completes or
// Cancel is called.
func (m *Manager) run(ctx context.Context, kind Kind, key string, call func(context.Context) (any, error), commit func(any)) (any, error) {
	m.mu.Lock()
	f := m.flights[kind]
	var opCtx context.Context
	if f == nil || f.key != key {
		f, opCtx = m.beginLocked(ctx, kind, key)
	}
	m.mu.Unlock()

	if opCtx != nil {
		m.changed(kind)
		go m.execute(opCtx, kind, f, call, commit)
	}

	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) execute(ctx context.Context, kind Kind, f *flight, call func(context.Context) (any, error), commit func(any)) {
	defer close(f.done)
	requestID := uuid.NewString()
	start := time.Now()

	val, err := call(ctx)
	stale := m.finish(kind, f, func() {
		if err == nil {
			commit(val)
		}
	})
	elapsed := time.Since(start)

	switch {
	case stale:
		f.err = ErrCanceled
		m.record(kind, requestID, statusCanceled, elapsed, nil)
	case err != nil:
		f.err = err
		m.record(kind, requestID, statusError, elapsed, err)
		m.emit(Event{Type: EventError, Kind: kind, Err: err})
	default:
		f.val = val
		m.record(kind, requestID, statusOK, elapsed, nil)
	}
}

// fragmentsKey 碎片集合的指纹，集合变化后的触发不会加入旧的调用
// fragmentsKey fingerprints the collection sent to the gateway, so a trigger
// after the collection changed never joins a call computed from the old one.
func fragmentsKey(frags []fragment.Fragment) string {
	h := fnv.New64a()
	for _, f := range frags {
		for _, part := range []string{f.ID, string(f.Type), string(f.Status), f.Content} {
			h.Write([]byte(part))
			h.Write([]byte{0})
		}
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func (m *Manager) reject(kind Kind, err error) error {
	m.record(kind, uuid.NewString(), statusRejected, 0, err)
	return err
}

// Organize 整理全部碎片；失败时保留上一次结果
// Organize asks the gateway to organize the whole collection. On failure the
// previous planning result is kept.
func (m *Manager) Organize(ctx context.Context) (gateway.PlanningResult, error) {
	frags := m.fragments.List()
	if len(frags) == 0 {
		return gateway.PlanningResult{}, m.reject(KindOrganize, apperr.Validation("organize", "no fragments to organize"))
	}
	v, err := m.run(ctx, KindOrganize, fragmentsKey(frags), func(ctx context.Context) (any, error) {
		return m.gateway.Organize(ctx, frags)
	}, func(v any) {
		p := clonePlanning(v.(gateway.PlanningResult))
		m.planning = &p
	})
	if err != nil {
		return gateway.PlanningResult{}, err
	}
	return clonePlanning(v.(gateway.PlanningResult)), nil
}

// Review 生成周回顾；失败时保留上一次结果
// Review asks the gateway for a weekly review. On failure the previous review is kept.
func (m *Manager) Review(ctx context.Context) (string, error) {
	frags := m.fragments.List()
	if len(frags) == 0 {
		return "", m.reject(KindReview, apperr.Validation("review", "no fragments to review"))
	}
	v, err := m.run(ctx, KindReview, fragmentsKey(frags), func(ctx context.Context) (any, error) {
		return m.gateway.Review(ctx, frags)
	}, func(v any) {
		r := v.(string)
		m.review = &r
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Brainstorm 围绕一个想法发散；切换到头脑风暴视图
// Brainstorm expands one idea into directions and switches to the brainstorm
// view. Triggering the same idea while it runs joins the in-flight call; a
// different idea cancels and replaces it.
func (m *Manager) Brainstorm(ctx context.Context, idea string) (BrainstormResult, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return BrainstormResult{}, m.reject(KindBrainstorm, apperr.Validation("brainstorm", "idea is empty"))
	}

	m.mu.Lock()
	m.view = ViewBrainstorm
	m.mu.Unlock()
	m.changed(KindBrainstorm)

	v, err := m.run(ctx, KindBrainstorm, idea, func(ctx context.Context) (any, error) {
		ideas, err := m.gateway.Brainstorm(ctx, idea)
		if err != nil {
			return nil, err
		}
		return BrainstormResult{Idea: idea, Storm: ideas}, nil
	}, func(v any) {
		r := v.(BrainstormResult)
		m.storm = &BrainstormResult{Idea: r.Idea, Storm: append([]gateway.BrainstormIdea(nil), r.Storm...)}
	})
	if err != nil {
		return BrainstormResult{}, err
	}
	r := v.(BrainstormResult)
	return BrainstormResult{Idea: r.Idea, Storm: append([]gateway.BrainstormIdea(nil), r.Storm...)}, nil
}

// IsCanceled 判断错误是否来自取消 / reports whether err stems from cancellation
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
