package txtracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultHideDelay is how long a finished transaction stays surfaced in a
// closed tray before it is hidden.
const DefaultHideDelay = 5 * time.Second

// Visibility reports whether the user is currently looking at the tray.
type Visibility interface {
	IsVisible() bool
}

// VisibilitySwitch is a Visibility toggled explicitly by the host. It starts visible.
type VisibilitySwitch struct {
	hidden atomic.Bool
}

var _ Visibility = (*VisibilitySwitch)(nil)

func NewVisibilitySwitch() *VisibilitySwitch {
	return &VisibilitySwitch{}
}

func (v *VisibilitySwitch) IsVisible() bool {
	return !v.hidden.Load()
}

// SetVisible records whether the tray is in the foreground.
func (v *VisibilitySwitch) SetVisible(visible bool) {
	v.hidden.Store(!visible)
}

type hideTask struct {
	timer *time.Timer
}

// visibilityScheduler owns at most one pending hide task per transaction id.
// When a task fires while the tray is not visible it re-arms itself with the
// same delay, so a hidden user never misses a result.
type visibilityScheduler struct {
	mu      sync.Mutex
	tasks   map[string]*hideTask
	stopped bool

	delay      time.Duration
	visibility Visibility
	hide       func(id string)
}

func newVisibilityScheduler(delay time.Duration, visibility Visibility, hide func(id string)) *visibilityScheduler {
	return &visibilityScheduler{
		tasks:      make(map[string]*hideTask),
		delay:      delay,
		visibility: visibility,
		hide:       hide,
	}
}

// Schedule arms the hide task for id with the default delay.
func (s *visibilityScheduler) Schedule(id string) {
	s.ScheduleAfter(id, s.delay)
}

// ScheduleAfter arms the hide task for id, replacing any pending one.
func (s *visibilityScheduler) ScheduleAfter(id string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if prev, ok := s.tasks[id]; ok {
		prev.timer.Stop()
	}

	task := &hideTask{}
	task.timer = time.AfterFunc(delay, func() { s.fire(id, task, delay) })
	s.tasks[id] = task
}

func (s *visibilityScheduler) fire(id string, task *hideTask, delay time.Duration) {
	s.mu.Lock()
	if s.stopped || s.tasks[id] != task {
		s.mu.Unlock()
		return
	}

	if !s.visibility.IsVisible() {
		task.timer.Reset(delay)
		s.mu.Unlock()
		return
	}

	delete(s.tasks, id)
	s.mu.Unlock()

	s.hide(id)
}

// Cancel drops the pending hide task for id, if any.
func (s *visibilityScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[id]; ok {
		task.timer.Stop()
		delete(s.tasks, id)
	}
}

// Pending reports whether a hide task is armed for id.
func (s *visibilityScheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tasks[id]
	return ok
}

// Stop cancels every pending task. Later calls to Schedule are ignored.
func (s *visibilityScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, task := range s.tasks {
		task.timer.Stop()
		delete(s.tasks, id)
	}
}
