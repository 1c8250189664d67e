package core

import (
	"sync"
	"time"
)

// ReplyScheduler runs delayed work keyed by case id. Work for a case can be cancelled
// until it starts; Stop cancels everything and waits for running work to return.
type ReplyScheduler struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]map[uint64]*time.Timer
	nextID  uint64
	stopped bool
	running sync.WaitGroup
}

func NewReplyScheduler(delay time.Duration) *ReplyScheduler {
	return &ReplyScheduler{
		delay:   delay,
		pending: make(map[string]map[uint64]*time.Timer),
	}
}

func (s *ReplyScheduler) Delay() time.Duration {
	return s.delay
}

// Schedule runs fn once after the delay unless the case is cancelled first. It returns
// false after Stop.
func (s *ReplyScheduler) Schedule(caseID string, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}

	s.nextID++
	id := s.nextID
	timers := s.pending[caseID]
	if timers == nil {
		timers = make(map[uint64]*time.Timer)
		s.pending[caseID] = timers
	}
	timers[id] = time.AfterFunc(s.delay, func() {
		if !s.claim(caseID, id) {
			return
		}
		defer s.running.Done()
		fn()
	})
	return true
}

// claim removes a fired timer from the pending set. It fails when the timer was
// cancelled between firing and acquiring the lock.
func (s *ReplyScheduler) claim(caseID string, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	timers, ok := s.pending[caseID]
	if !ok {
		return false
	}
	if _, ok := timers[id]; !ok {
		return false
	}
	delete(timers, id)
	if len(timers) == 0 {
		delete(s.pending, caseID)
	}
	s.running.Add(1)
	return true
}

// Cancel drops every pending reply of a case and returns how many were dropped.
func (s *ReplyScheduler) Cancel(caseID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	timers := s.pending[caseID]
	for _, t := range timers {
		t.Stop()
	}
	delete(s.pending, caseID)
	return len(timers)
}

// Pending returns the number of replies of a case that have not started yet.
func (s *ReplyScheduler) Pending(caseID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[caseID])
}

func (s *ReplyScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for caseID, timers := range s.pending {
		for _, t := range timers {
			t.Stop()
		}
		delete(s.pending, caseID)
	}
	s.mu.Unlock()

	s.running.Wait()
}
