package types

import (
	"context"
	"encoding/json"
	"time"
)

type CheckpointKey struct {
	GraphID  string `json:"graph_id"`
	ThreadID string `json:"thread_id"`
}

func (k CheckpointKey) String() string {
	return k.GraphID + ":" + k.ThreadID
}

type CheckpointMeta struct {
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Step      int              `json:"step"`
	Source    CheckpointSource `json:"source"`
}

// Checkpoint is a persisted snapshot of every channel in a run. Channel
// snapshots are kept encoded so stores never hold live channel state.
type Checkpoint struct {
	ID              string                     `json:"id"`
	Key             CheckpointKey              `json:"key"`
	Meta            CheckpointMeta             `json:"meta"`
	ChannelVersions map[string]int             `json:"channel_versions"`
	ChannelValues   map[string]json.RawMessage `json:"channel_values"`
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() Checkpoint {
	out := *c
	out.ChannelVersions = make(map[string]int, len(c.ChannelVersions))
	for k, v := range c.ChannelVersions {
		out.ChannelVersions[k] = v
	}
	out.ChannelValues = make(map[string]json.RawMessage, len(c.ChannelValues))
	for k, v := range c.ChannelValues {
		out.ChannelValues[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// CheckpointStore interface defines persistent storage operations
type CheckpointStore interface {
	Save(ctx context.Context, checkpoint Checkpoint) error
	Load(ctx context.Context, key CheckpointKey) (*Checkpoint, error)
	Delete(ctx context.Context, key CheckpointKey) error
	List(ctx context.Context, graphID string) ([]CheckpointKey, error)
}
