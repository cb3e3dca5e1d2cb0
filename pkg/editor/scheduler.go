package editor

import (
	"sync"
	"time"
)

// Scheduler runs fn once after d.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// TimerScheduler schedules on the runtime timer.
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

type manualTask struct {
	due time.Duration
	seq int
	fn  func()
}

// ManualScheduler only runs tasks when Advance moves its clock forward.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []manualTask
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) After(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.tasks = append(m.tasks, manualTask{due: m.now + d, seq: m.seq, fn: fn})
}

// Advance moves the clock by d and runs every task that falls due, in due
// order. Tasks scheduled while advancing run too if they fall inside d.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	for {
		i := m.nextDue(target)
		if i < 0 {
			break
		}
		task := m.tasks[i]
		m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
		m.now = task.due

		m.mu.Unlock()
		task.fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

func (m *ManualScheduler) nextDue(limit time.Duration) int {
	best := -1
	for i, t := range m.tasks {
		if t.due > limit {
			continue
		}
		if best < 0 || t.due < m.tasks[best].due || (t.due == m.tasks[best].due && t.seq < m.tasks[best].seq) {
			best = i
		}
	}
	return best
}

// Pending is the number of tasks not yet run.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
