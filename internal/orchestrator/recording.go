package orchestrator

import (
	"context"
	"time"

	"lumina/internal/apperr"
	"lumina/internal/fragment"
)

// SimulateRecording 模拟一次语音录入：置 isRecording，等待后写入固定转写文本
// SimulateRecording stands in for voice capture. It sets isRecording, waits the
// configured delay and adds the fixed transcript as a new fragment. Ending ctx
// aborts the recording without adding anything.
func (m *Manager) SimulateRecording(ctx context.Context) (fragment.Fragment, error) {
	m.mu.Lock()
	if m.recording {
		m.mu.Unlock()
		return fragment.Fragment{}, apperr.Validation("record", "already recording")
	}
	m.recording = true
	m.mu.Unlock()
	m.changed("")

	stop := func() {
		m.mu.Lock()
		m.recording = false
		m.mu.Unlock()
	}

	timer := time.NewTimer(m.recDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		stop()
		m.changed("")
		return fragment.Fragment{}, ctx.Err()
	case <-timer.C:
	}

	stop()
	f, err := m.fragments.Add(m.transcript)
	m.changed("")
	return f, err
}

// Recording 是否正在录音 / reports whether a recording is in progress
func (m *Manager) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}
