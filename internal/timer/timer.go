// Package timer implements the between-sets rest countdown. The wall-clock
// deadline is authoritative; the seconds counter is a display cache kept
// current by ticks and recomputed on Resume.
package timer

import (
	"math"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Event kinds delivered to Options.OnEvent.
const (
	EventStarted   = "started"
	EventTick      = "tick"
	EventStopped   = "stopped"
	EventReset     = "reset"
	EventCompleted = "completed"
)

// State is a snapshot of the timer.
type State struct {
	IsRunning        bool       `json:"is_running"`
	SecondsRemaining int        `json:"seconds_remaining"`
	TotalSeconds     int        `json:"total_seconds"`
	EndTime          *time.Time `json:"end_time"`
}

// Event is a state change.
type Event struct {
	Kind  string `json:"kind"`
	State State  `json:"state"`
}

// Options configures a RestTimer. Zero values select the defaults.
type Options struct {
	DefaultSeconds int
	Scheduler      Scheduler
	Now            func() time.Time
	// OnEvent is called outside the timer lock after every state change.
	// A completion is delivered exactly once per countdown.
	OnEvent func(Event)
}

// RestTimer is a countdown safe for concurrent use.
type RestTimer struct {
	mu             sync.Mutex
	sched          Scheduler
	now            func() time.Time
	onEvent        func(Event)
	defaultSeconds int

	state  State
	handle Handle
	// gen increments whenever the scheduled tick task is replaced or
	// cancelled; ticks carrying an older gen are ignored.
	gen uint64
}

// New creates a stopped timer.
func New(opts Options) *RestTimer {
	t := &RestTimer{
		sched:          opts.Scheduler,
		now:            opts.Now,
		onEvent:        opts.OnEvent,
		defaultSeconds: opts.DefaultSeconds,
	}
	if t.sched == nil {
		t.sched = TickerScheduler{}
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.defaultSeconds <= 0 {
		t.defaultSeconds = models.DefaultRestTimerSeconds
	}
	t.state.TotalSeconds = t.defaultSeconds
	t.state.SecondsRemaining = t.defaultSeconds
	return t
}

// SetDefault changes the duration used by Start(0).
func (t *RestTimer) SetDefault(seconds int) {
	if seconds <= 0 {
		return
	}
	t.mu.Lock()
	t.defaultSeconds = seconds
	t.mu.Unlock()
}

// Default returns the duration used by Start(0).
func (t *RestTimer) Default() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.defaultSeconds
}

// State returns a copy of the current state.
func (t *RestTimer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// Start begins a countdown of seconds, or of the default duration when
// seconds <= 0. A running countdown is replaced.
func (t *RestTimer) Start(seconds int) {
	t.mu.Lock()
	if seconds <= 0 {
		seconds = t.defaultSeconds
	}
	t.cancelLocked()

	end := t.now().Add(time.Duration(seconds) * time.Second)
	t.state = State{
		IsRunning:        true,
		SecondsRemaining: seconds,
		TotalSeconds:     seconds,
		EndTime:          &end,
	}
	gen := t.gen
	t.handle = t.sched.Every(time.Second, func() { t.tick(gen) })
	ev := t.eventLocked(EventStarted)
	t.mu.Unlock()

	t.emit(ev)
}

// Stop halts the countdown, keeping the remaining seconds.
func (t *RestTimer) Stop() {
	t.mu.Lock()
	t.cancelLocked()
	t.state.IsRunning = false
	t.state.EndTime = nil
	ev := t.eventLocked(EventStopped)
	t.mu.Unlock()

	t.emit(ev)
}

// Reset stops the countdown and restores the full duration.
func (t *RestTimer) Reset() {
	t.mu.Lock()
	t.cancelLocked()
	t.state.IsRunning = false
	t.state.EndTime = nil
	t.state.SecondsRemaining = t.state.TotalSeconds
	ev := t.eventLocked(EventReset)
	t.mu.Unlock()

	t.emit(ev)
}

// Resume recomputes the remaining seconds from the deadline after the
// process was suspended. A deadline already passed completes the countdown.
func (t *RestTimer) Resume() {
	t.mu.Lock()
	if !t.state.IsRunning || t.state.EndTime == nil {
		t.mu.Unlock()
		return
	}
	left := t.state.EndTime.Sub(t.now())
	remaining := int(math.Ceil(left.Seconds()))
	if remaining <= 0 {
		ev := t.completeLocked()
		t.mu.Unlock()
		t.emit(ev)
		return
	}
	t.state.SecondsRemaining = remaining
	ev := t.eventLocked(EventTick)
	t.mu.Unlock()

	t.emit(ev)
}

func (t *RestTimer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.state.IsRunning {
		t.mu.Unlock()
		return
	}
	t.state.SecondsRemaining--
	if t.state.SecondsRemaining <= 0 {
		ev := t.completeLocked()
		t.mu.Unlock()
		t.emit(ev)
		return
	}
	ev := t.eventLocked(EventTick)
	t.mu.Unlock()

	t.emit(ev)
}

func (t *RestTimer) completeLocked() Event {
	t.cancelLocked()
	t.state.IsRunning = false
	t.state.EndTime = nil
	t.state.SecondsRemaining = 0
	return t.eventLocked(EventCompleted)
}

func (t *RestTimer) cancelLocked() {
	t.gen++
	if t.handle != nil {
		t.handle.Cancel()
		t.handle = nil
	}
}

func (t *RestTimer) snapshot() State {
	s := t.state
	if s.EndTime != nil {
		end := *s.EndTime
		s.EndTime = &end
	}
	return s
}

func (t *RestTimer) eventLocked(kind string) Event {
	return Event{Kind: kind, State: t.snapshot()}
}

func (t *RestTimer) emit(ev Event) {
	if t.onEvent != nil {
		t.onEvent(ev)
	}
}
