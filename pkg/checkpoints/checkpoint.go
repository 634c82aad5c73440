package checkpoints

import (
	"context"

	"github.com/pkg/errors"

	"github.com/avi3tal/pregel/pkg/pregel"
	"github.com/avi3tal/pregel/pkg/types"
)

// StateCheckpointer moves channel sets in and out of a checkpoint store
type StateCheckpointer struct {
	store types.CheckpointStore
}

func NewStateCheckpointer(store types.CheckpointStore) *StateCheckpointer {
	return &StateCheckpointer{
		store: store,
	}
}

// Save snapshots set and stores it under the config's key.
func (sc *StateCheckpointer) Save(ctx context.Context, config types.Config, set *pregel.Channels, source types.CheckpointSource) (*types.Checkpoint, error) {
	cp, err := set.Checkpoint(config, source)
	if err != nil {
		return nil, err
	}
	if err := sc.store.Save(ctx, cp); err != nil {
		return nil, errors.Wrapf(err, "failed to save checkpoint for GraphID %s and ThreadID %s", config.GraphID, config.ThreadID)
	}
	return &cp, nil
}

// Load returns the stored checkpoint for the config. When the config pins a
// CheckpointID the stored checkpoint must carry that ID.
func (sc *StateCheckpointer) Load(ctx context.Context, config types.Config) (*types.Checkpoint, error) {
	cp, err := sc.store.Load(ctx, config.Key())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load checkpoint for GraphID %s and ThreadID %s", config.GraphID, config.ThreadID)
	}
	if config.CheckpointID != "" && cp.ID != config.CheckpointID {
		return nil, errors.Wrapf(ErrCheckpointNotFound, "checkpoint %s for ThreadID %s", config.CheckpointID, config.ThreadID)
	}
	return cp, nil
}

// Resume restores set from the stored checkpoint, or from nothing when the
// thread has none, and runs fn on the restored channels.
func (sc *StateCheckpointer) Resume(ctx context.Context, config types.Config, set *pregel.Channels, fn func(*pregel.Channels) error) error {
	cp, err := sc.Load(ctx, config)
	if errors.Is(err, ErrCheckpointNotFound) && config.CheckpointID == "" {
		cp, err = nil, nil
	}
	if err != nil {
		return err
	}
	return set.Restore(ctx, cp, config, fn)
}

// Delete removes the stored checkpoint for the config.
func (sc *StateCheckpointer) Delete(ctx context.Context, config types.Config) error {
	if err := sc.store.Delete(ctx, config.Key()); err != nil {
		return errors.Wrapf(err, "failed to delete checkpoint for GraphID %s and ThreadID %s", config.GraphID, config.ThreadID)
	}
	return nil
}
