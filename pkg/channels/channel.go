// Package channels implements the aggregation slots that carry values from one
// superstep's writers to the next step's readers.
//
// Every variant follows the same lifecycle: a scheduler applies one batch of
// updates per step, reads the visible value any number of times, takes a
// checkpoint at step boundaries and later materializes a fresh instance from
// that checkpoint inside a Scope. Channels do no locking of their own; the
// scheduler must funnel all writes for a step into a single Update call.
package channels

import (
	"context"
	"errors"
	"sync"

	"github.com/avi3tal/pregel/pkg/types"
)

var (
	// ErrEmptyChannel is returned by Get when the channel holds no value.
	// It signals that no writer touched the channel, not a failure.
	ErrEmptyChannel = errors.New("channel is empty")

	// ErrInvalidUpdate is returned when an untyped update does not match the
	// channel's element type
	ErrInvalidUpdate = errors.New("invalid channel update")

	// ErrInvalidCheckpoint is returned when a checkpoint has a shape the
	// channel cannot restore from
	ErrInvalidCheckpoint = errors.New("invalid channel checkpoint")
)

// IsEmpty reports whether err signals an empty channel.
func IsEmpty(err error) bool {
	return errors.Is(err, ErrEmptyChannel)
}

// Channel is the lifecycle every channel variant implements. V is the visible
// value, U the element of an update batch and C the checkpoint shape.
type Channel[V, U, C any] interface {
	// Update applies one step's batch and reports whether the visible value changed
	Update(updates []U) bool
	// Get returns the visible value or ErrEmptyChannel
	Get() (V, error)
	// Checkpoint returns a snapshot that shares no memory with the channel
	Checkpoint() C
	// FromCheckpoint builds a new instance from a checkpoint, or an empty one
	// when checkpoint is nil. The instance is owned by the returned Scope.
	FromCheckpoint(ctx context.Context, checkpoint any, config types.Config) (*Scope[V, U, C], error)
	// Equal compares channel configuration, not contents
	Equal(other any) bool
}

// Scope owns a channel restored from a checkpoint. Close releases whatever
// the variant acquired during restore and must be called exactly once the
// channel is no longer used.
type Scope[V, U, C any] struct {
	channel Channel[V, U, C]
	release func() error

	once sync.Once
	err  error
}

// NewScope binds ch to a release hook. A nil hook makes Close a no-op.
func NewScope[V, U, C any](ch Channel[V, U, C], release func() error) *Scope[V, U, C] {
	return &Scope[V, U, C]{channel: ch, release: release}
}

func (s *Scope[V, U, C]) Channel() Channel[V, U, C] {
	return s.channel
}

// Close runs the release hook. Later calls return the first result.
func (s *Scope[V, U, C]) Close() error {
	s.once.Do(func() {
		if s.release != nil {
			s.err = s.release()
		}
	})
	return s.err
}

// Restore materializes a channel from checkpoint and hands it to fn. The
// scope is closed on every exit path, including a panic in fn.
func Restore[V, U, C any](
	ctx context.Context,
	ch Channel[V, U, C],
	checkpoint any,
	config types.Config,
	fn func(Channel[V, U, C]) error,
) (err error) {
	scope, err := ch.FromCheckpoint(ctx, checkpoint, config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(scope.Channel())
}
