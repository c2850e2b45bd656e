package observability

import (
	"sync"
	"time"
)

type Role string

const (
	RoleIdle    Role = "IDLE"
	RoleRunning Role = "RUNNING"
)

// Status tracks the pipeline runs in flight for one process.
type Status struct {
	mu            sync.RWMutex
	active        map[string]string // run id -> product idea
	LastHeartbeat time.Time
}

func NewStatus() *Status {
	return &Status{
		active:        make(map[string]string),
		LastHeartbeat: time.Now(),
	}
}

// Begin marks a run as active.
func (s *Status) Begin(runID, task string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[runID] = task
}

// End marks a run as finished.
func (s *Status) End(runID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, runID)
}

// ActiveRuns is the number of runs in flight.
func (s *Status) ActiveRuns() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Snapshot returns the current role, one active task and the last heartbeat.
func (s *Status) Snapshot() (Role, string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, task := range s.active {
		return RoleRunning, task, s.LastHeartbeat
	}
	return RoleIdle, "", s.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func (s *Status) Heartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastHeartbeat = time.Now()
}
