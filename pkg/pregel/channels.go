// Package pregel holds the set of named channels a step scheduler drives.
// It applies each step's writes, bumps per-channel versions, and moves the
// whole set in and out of checkpoints. Choosing which nodes run is left to
// the caller.
package pregel

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avi3tal/pregel/internal/logging"
	"github.com/avi3tal/pregel/pkg/channels"
	"github.com/avi3tal/pregel/pkg/types"
)

// Write is a single producer write addressed to a channel.
type Write struct {
	Channel string
	Value   any
}

type Option func(*options)

type options struct {
	logger   *slog.Logger
	registry prometheus.Registerer
}

// WithLogger sets the logger used for step tracing
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics registers channel counters on reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// Channels is a named set of channels. Like the channels it holds, it is not
// safe for concurrent ApplyWrites calls.
type Channels struct {
	slots    map[string]channels.Slot
	versions map[string]int
	step     int

	logger  *slog.Logger
	metrics *metrics
}

// New creates a set from empty channel slots.
func New(slots map[string]channels.Slot, opts ...Option) (*Channels, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Channels{
		slots:    make(map[string]channels.Slot, len(slots)),
		versions: make(map[string]int, len(slots)),
		logger:   o.logger,
	}
	for name, s := range slots {
		c.slots[name] = s
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if o.registry != nil {
		m, err := newMetrics(o.registry)
		if err != nil {
			return nil, errors.Wrap(err, "register channel metrics")
		}
		c.metrics = m
	}
	return c, nil
}

// Names returns the sorted channel names.
func (c *Channels) Names() []string {
	names := make([]string, 0, len(c.slots))
	for name := range c.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Step returns the number of steps applied so far.
func (c *Channels) Step() int {
	return c.step
}

// Versions returns a copy of the per-channel version counters. A channel's
// version increases every time a step changes its value.
func (c *Channels) Versions() map[string]int {
	out := make(map[string]int, len(c.versions))
	for k, v := range c.versions {
		out[k] = v
	}
	return out
}

// ApplyWrites applies one step. Writes are grouped per channel in input
// order and every channel receives exactly one Update, channels without
// writes an empty batch. It returns the sorted names of changed channels.
//
// Every write is checked before any channel is updated: a write to an
// unknown channel or of the wrong element type fails the step and leaves
// the set as it was.
func (c *Channels) ApplyWrites(ctx context.Context, writes []Write) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batches := make(map[string][]any, len(c.slots))
	for _, w := range writes {
		if _, ok := c.slots[w.Channel]; !ok {
			return nil, NewChannelError("apply writes", w.Channel, ErrUnknownChannel)
		}
		batches[w.Channel] = append(batches[w.Channel], w.Value)
	}

	names := c.Names()
	lifted := make([]channels.Batch, len(names))
	for i, name := range names {
		batch, err := c.slots[name].Lift(batches[name])
		if err != nil {
			return nil, NewChannelError("apply writes", name, err)
		}
		lifted[i] = batch
	}

	var updated []string
	for i, name := range names {
		changed := lifted[i].Apply()
		c.metrics.observeUpdate(name, changed)
		if changed {
			c.versions[name]++
			updated = append(updated, name)
		}
	}
	c.step++

	c.logger.DebugContext(ctx, "applied step writes",
		"step", c.step,
		"writes", len(writes),
		"updated", updated,
	)
	return updated, nil
}

// Read returns the value of a channel. An empty channel is reported with
// ok set to false and no error.
func (c *Channels) Read(name string) (any, bool, error) {
	s, ok := c.slots[name]
	if !ok {
		return nil, false, NewChannelError("read", name, ErrUnknownChannel)
	}
	v, err := s.Get()
	if channels.IsEmpty(err) {
		c.metrics.observeEmptyRead(name)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, NewChannelError("read", name, err)
	}
	return v, true, nil
}

// ReadAll returns the values of every non-empty channel.
func (c *Channels) ReadAll() (map[string]any, error) {
	values := make(map[string]any, len(c.slots))
	for _, name := range c.Names() {
		v, ok, err := c.Read(name)
		if err != nil {
			return nil, err
		}
		if ok {
			values[name] = v
		}
	}
	return values, nil
}

// Matches reports whether other holds the same channel names with equal
// configuration.
func (c *Channels) Matches(other *Channels) bool {
	if other == nil || len(other.slots) != len(c.slots) {
		return false
	}
	for name, s := range c.slots {
		o, ok := other.slots[name]
		if !ok || !s.Equal(o) {
			return false
		}
	}
	return true
}

// Checkpoint snapshots every channel into an encoded checkpoint addressed
// by config.
func (c *Channels) Checkpoint(config types.Config, source types.CheckpointSource) (types.Checkpoint, error) {
	now := time.Now()
	cp := types.Checkpoint{
		ID:  uuid.New().String(),
		Key: config.Key(),
		Meta: types.CheckpointMeta{
			CreatedAt: now,
			UpdatedAt: now,
			Step:      c.step,
			Source:    source,
		},
		ChannelVersions: c.Versions(),
		ChannelValues:   make(map[string]json.RawMessage, len(c.slots)),
	}
	for _, name := range c.Names() {
		data, err := json.Marshal(c.slots[name].Checkpoint())
		if err != nil {
			return types.Checkpoint{}, errors.Wrapf(err, "encode checkpoint of channel %s", name)
		}
		cp.ChannelValues[name] = data
	}
	return cp, nil
}

// Restore builds a new set shaped like c from cp and passes it to fn. Every
// channel is restored inside its own scope and all scopes are closed when fn
// returns or panics. A nil cp yields a set of empty channels.
func (c *Channels) Restore(ctx context.Context, cp *types.Checkpoint, config types.Config, fn func(*Channels) error) (err error) {
	restored := &Channels{
		slots:    make(map[string]channels.Slot, len(c.slots)),
		versions: make(map[string]int, len(c.slots)),
		logger:   c.logger,
		metrics:  c.metrics,
	}

	var closers []io.Closer
	defer func() {
		for _, closer := range closers {
			if cerr := closer.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "release restored channel")
			}
		}
	}()

	for _, name := range c.Names() {
		var checkpoint any
		if cp != nil {
			if raw, ok := cp.ChannelValues[name]; ok {
				checkpoint, err = c.slots[name].DecodeCheckpoint(raw)
				if err != nil {
					return NewChannelError("restore", name, err)
				}
			}
		}
		s, closer, rerr := c.slots[name].Restore(ctx, checkpoint, config)
		if rerr != nil {
			return NewChannelError("restore", name, rerr)
		}
		closers = append(closers, closer)
		restored.slots[name] = s
	}

	if cp != nil {
		for name := range cp.ChannelValues {
			if _, ok := c.slots[name]; !ok {
				c.logger.WarnContext(ctx, "dropping checkpointed channel missing from configuration",
					"channel", name,
					"checkpoint_id", cp.ID,
				)
			}
		}
		for name, v := range cp.ChannelVersions {
			if _, ok := c.slots[name]; ok {
				restored.versions[name] = v
			}
		}
		restored.step = cp.Meta.Step
	}

	c.logger.DebugContext(ctx, "restored channels",
		"thread_id", config.ThreadID,
		"step", restored.step,
		"channels", len(restored.slots),
	)
	return fn(restored)
}
