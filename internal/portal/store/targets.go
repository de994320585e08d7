package store

import (
	"sync"
	"time"

	"github.com/deployportal-dev/deployportal/pkg/models"
)

// TargetStore keeps registered deployment targets in memory. Identifiers are
// assigned monotonically and are immutable once assigned.
type TargetStore struct {
	mu      sync.RWMutex
	targets map[int64]*models.Target
	nextID  int64
}

// NewTargetStore creates an empty target store.
func NewTargetStore() *TargetStore {
	return &TargetStore{
		targets: make(map[int64]*models.Target),
		nextID:  1,
	}
}

// Create registers a new target and assigns its identifier.
func (s *TargetStore) Create(create models.TargetCreate) *models.Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := &models.Target{
		ID:         s.nextID,
		Name:       create.Name,
		Address:    create.Address,
		SSHUser:    create.SSHUser,
		SSHKeyPath: create.SSHKeyPath,
		CreatedAt:  time.Now().UTC(),
	}
	s.targets[target.ID] = target
	s.nextID++

	targetCopy := *target
	return &targetCopy
}

// Get retrieves a target by ID. Returns ErrNotFound if it does not exist.
func (s *TargetStore) Get(id int64) (*models.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.targets[id]
	if !ok {
		return nil, ErrNotFound
	}
	targetCopy := *target
	return &targetCopy, nil
}

// List returns all registered targets ordered by identifier.
func (s *TargetStore) List() []*models.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Target, 0, len(s.targets))
	for id := int64(1); id < s.nextID; id++ {
		if target, ok := s.targets[id]; ok {
			targetCopy := *target
			out = append(out, &targetCopy)
		}
	}
	return out
}
