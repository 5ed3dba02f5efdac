package timer

import (
	"sync"
	"time"
)

// Handle cancels a scheduled task. Cancel is idempotent.
type Handle interface {
	Cancel()
}

// Scheduler runs fn repeatedly every interval until the returned handle is
// cancelled.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Handle
}

// TickerScheduler runs tasks on a time.Ticker in a background goroutine.
type TickerScheduler struct{}

type tickerHandle struct {
	once sync.Once
	done chan struct{}
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() { close(h.done) })
}

// Every starts a ticker goroutine for fn.
func (TickerScheduler) Every(interval time.Duration, fn func()) Handle {
	h := &tickerHandle{done: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return h
}

// ManualScheduler holds tasks until Fire is called. Used by tests and by
// callers that drive ticks themselves.
type ManualScheduler struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]func()
}

// NewManualScheduler returns an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]func())}
}

type manualHandle struct {
	s  *ManualScheduler
	id int
}

func (h manualHandle) Cancel() {
	h.s.mu.Lock()
	delete(h.s.tasks, h.id)
	h.s.mu.Unlock()
}

// Every registers fn. The interval is ignored.
func (s *ManualScheduler) Every(_ time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.tasks[s.nextID] = fn
	return manualHandle{s: s, id: s.nextID}
}

// Fire runs every active task once.
func (s *ManualScheduler) Fire() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.tasks))
	for _, fn := range s.tasks {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Active returns the number of tasks not yet cancelled.
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
