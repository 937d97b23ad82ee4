package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/fnb-kiosk/utils"
)

// Scheduler runs keyed one-shot tasks after a delay. A key has at most one
// pending task; each task runs at most once, either when its timer fires, when
// it is triggered early, or when the scheduler shuts down.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*delayedTask
	closed bool
	wg     sync.WaitGroup
}

type delayedTask struct {
	timer *time.Timer
	fn    func()
}

func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[string]*delayedTask)}
}

// Schedule arranges for fn to run after delay. It returns false, and does
// nothing, if key already has a pending task or the scheduler is shut down.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if _, ok := s.tasks[key]; ok {
		return false
	}

	t := &delayedTask{fn: fn}
	s.tasks[key] = t
	s.wg.Add(1)
	t.timer = time.AfterFunc(delay, func() { s.fire(key, t) })
	return true
}

func (s *Scheduler) fire(key string, t *delayedTask) {
	s.mu.Lock()
	if s.tasks[key] != t {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, key)
	s.mu.Unlock()

	s.run(key, t.fn)
}

func (s *Scheduler) run(key string, fn func()) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			utils.ErrorLogger.WithField("task", key).Errorf("Scheduled task panicked: %v", r)
		}
	}()
	fn()
}

// Trigger runs the pending task for key now instead of waiting. It reports
// whether a task existed; a task whose timer already fired is left to finish
// on its own.
func (s *Scheduler) Trigger(key string) bool {
	s.mu.Lock()
	t, ok := s.tasks[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if !t.timer.Stop() {
		s.mu.Unlock()
		return true
	}
	delete(s.tasks, key)
	s.mu.Unlock()

	s.run(key, t.fn)
	return true
}

// Cancel drops the pending task for key without running it.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok || !t.timer.Stop() {
		return false
	}
	delete(s.tasks, key)
	s.wg.Done()
	return true
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Shutdown runs every pending task immediately and waits for running ones,
// bounded by ctx. No new tasks are accepted afterwards.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	due := make(map[string]func(), len(s.tasks))
	for key, t := range s.tasks {
		if t.timer.Stop() {
			due[key] = t.fn
			delete(s.tasks, key)
		}
	}
	s.mu.Unlock()

	for key, fn := range due {
		s.run(key, fn)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
