package store

import (
	"sync"
	"time"

	"github.com/deployportal-dev/deployportal/pkg/models"
)

// RunStore tracks deployment runs and their log streams. It is mutated by the
// background executor and read concurrently by status and log queries, so all
// access goes through the store's lock; readers always observe a complete
// record, never a half-updated one.
type RunStore struct {
	mu     sync.RWMutex
	runs   map[int64]*models.DeploymentRun
	logs   map[int64][]models.LogEntry
	nextID int64
}

// NewRunStore creates an empty run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[int64]*models.DeploymentRun),
		logs: make(map[int64][]models.LogEntry),
	}
}

// Create records a new run in the queued state and assigns its identifier.
func (s *RunStore) Create(targetID int64, payload models.DeploymentPayload, message string) *models.DeploymentRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	run := &models.DeploymentRun{
		ID:        s.nextID,
		TargetID:  targetID,
		Payload:   payload,
		State:     models.DeploymentQueued,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	s.runs[run.ID] = run

	runCopy := *run
	return &runCopy
}

// Transition moves a run to a new state and replaces its status message
// atomically. Transitions are monotonic along queued -> running ->
// {success, failed}; anything else returns ErrInvalidTransition.
func (s *RunStore) Transition(id int64, state models.DeploymentState, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	if !validTransition(run.State, state) {
		return ErrInvalidTransition
	}

	run.State = state
	run.Message = message
	return nil
}

func validTransition(from, to models.DeploymentState) bool {
	switch from {
	case models.DeploymentQueued:
		return to == models.DeploymentRunning || to == models.DeploymentFailed
	case models.DeploymentRunning:
		return to == models.DeploymentSuccess || to == models.DeploymentFailed
	default:
		return false
	}
}

// Get retrieves a run by ID. Returns ErrNotFound if it does not exist.
func (s *RunStore) Get(id int64) (*models.DeploymentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	runCopy := *run
	return &runCopy, nil
}

// List returns all runs ordered by identifier.
func (s *RunStore) List() []*models.DeploymentRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.DeploymentRun, 0, len(s.runs))
	for id := int64(1); id <= s.nextID; id++ {
		if run, ok := s.runs[id]; ok {
			runCopy := *run
			out = append(out, &runCopy)
		}
	}
	return out
}

// AppendLog appends one log entry to a run's stream. An unknown run ID is not
// an error; the stream is initialized on first append.
func (s *RunStore) AppendLog(id int64, level models.LogLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[id] = append(s.logs[id], models.LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
	})
}

// Logs returns a copy of a run's log stream in insertion order. An unknown
// run ID yields an empty slice.
func (s *RunStore) Logs(id int64) []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.logs[id]
	out := make([]models.LogEntry, len(entries))
	copy(out, entries)
	return out
}
