package checkpoints

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/avi3tal/pregel/pkg/types"
)

// ErrCheckpointNotFound is returned when no checkpoint exists for a key
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// MemoryStore keeps the latest checkpoint per key in memory. Checkpoints are
// copied on save and on load.
type MemoryStore struct {
	checkpoints map[types.CheckpointKey]*types.Checkpoint
	mu          sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[types.CheckpointKey]*types.Checkpoint),
	}
}

func (m *MemoryStore) Save(_ context.Context, checkpoint types.Checkpoint) error {
	cp := checkpoint.Clone()
	cp.Meta.UpdatedAt = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[cp.Key] = &cp
	return nil
}

func (m *MemoryStore) Load(_ context.Context, key types.CheckpointKey) (*types.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, exists := m.checkpoints[key]
	if !exists {
		return nil, errors.Wrapf(ErrCheckpointNotFound, "key %s", key)
	}
	out := cp.Clone()
	return &out, nil
}

func (m *MemoryStore) Delete(_ context.Context, key types.CheckpointKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.checkpoints, key)
	return nil
}

// List returns the keys stored for graphID ordered by thread.
func (m *MemoryStore) List(_ context.Context, graphID string) ([]types.CheckpointKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []types.CheckpointKey
	for key := range m.checkpoints {
		if key.GraphID == graphID {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ThreadID < keys[j].ThreadID })
	return keys, nil
}
