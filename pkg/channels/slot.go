package channels

import (
	"context"
	"fmt"
	"io"

	"github.com/avi3tal/pregel/pkg/types"
)

// Kind names a channel variant in persisted configuration.
type Kind string

const (
	KindTopic        Kind = "topic"
	KindLastValue    Kind = "last_value"
	KindNamedBarrier Kind = "named_barrier"
)

// Slot is the untyped view of a channel used by code that drives channels
// of different element types side by side.
type Slot interface {
	Kind() Kind
	// Lift converts a step's writes to the channel's update type without
	// touching the channel.
	Lift(updates []any) (Batch, error)
	// Update lifts every write to the channel's update type before applying
	// the batch. Nothing is applied if any write fails to lift.
	Update(updates []any) (bool, error)
	Get() (any, error)
	Checkpoint() any
	// DecodeCheckpoint turns a persisted checkpoint into a value Restore accepts
	DecodeCheckpoint(data []byte) (any, error)
	Restore(ctx context.Context, checkpoint any, config types.Config) (Slot, io.Closer, error)
	Equal(other Slot) bool
}

// Batch is a lifted step batch bound to the channel it was lifted for.
type Batch interface {
	// Apply runs the channel's Update and reports whether its value changed.
	Apply() bool
}

// Codec adapts a typed channel to the Slot view.
type Codec[U any] struct {
	Kind   Kind
	Lift   func(v any) (U, error)
	Decode func(data []byte) (any, error)
}

// Erase wraps ch as a Slot.
func Erase[V, U, C any](ch Channel[V, U, C], codec Codec[U]) Slot {
	return &slot[V, U, C]{ch: ch, codec: codec}
}

// TopicSlot returns an empty Topic of T behind a Slot.
func TopicSlot[T any](accumulate bool) Slot {
	return Erase[[]T, Update[T], []T](NewTopic[T](accumulate), Codec[Update[T]]{
		Kind:   KindTopic,
		Lift:   liftTopicUpdate[T],
		Decode: decodeTopicCheckpoint[T],
	})
}

// LastValueSlot returns an empty LastValue of T behind a Slot.
func LastValueSlot[T any]() Slot {
	return Erase[T, T, *T](NewLastValue[T](), Codec[T]{
		Kind:   KindLastValue,
		Lift:   liftLastValueUpdate[T],
		Decode: decodeLastValueCheckpoint[T],
	})
}

// NamedBarrierSlot returns a NamedBarrier waiting on required behind a Slot.
func NamedBarrierSlot(required []string) Slot {
	return Erase[[]string, string, []string](NewNamedBarrier(required), Codec[string]{
		Kind:   KindNamedBarrier,
		Lift:   liftBarrierUpdate,
		Decode: decodeBarrierCheckpoint,
	})
}

// Unwrap returns the typed channel behind a Slot built by Erase.
func Unwrap(s Slot) (any, bool) {
	u, ok := s.(interface{ channel() any })
	if !ok {
		return nil, false
	}
	return u.channel(), true
}

type slot[V, U, C any] struct {
	ch    Channel[V, U, C]
	codec Codec[U]
}

func (s *slot[V, U, C]) channel() any {
	return s.ch
}

func (s *slot[V, U, C]) Kind() Kind {
	return s.codec.Kind
}

func (s *slot[V, U, C]) Lift(updates []any) (Batch, error) {
	batch := make([]U, 0, len(updates))
	for i, v := range updates {
		u, err := s.codec.Lift(v)
		if err != nil {
			return nil, fmt.Errorf("write %d: %w", i, err)
		}
		batch = append(batch, u)
	}
	return &liftedBatch[V, U, C]{ch: s.ch, updates: batch}, nil
}

func (s *slot[V, U, C]) Update(updates []any) (bool, error) {
	batch, err := s.Lift(updates)
	if err != nil {
		return false, err
	}
	return batch.Apply(), nil
}

func (s *slot[V, U, C]) Get() (any, error) {
	v, err := s.ch.Get()
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *slot[V, U, C]) Checkpoint() any {
	return s.ch.Checkpoint()
}

func (s *slot[V, U, C]) DecodeCheckpoint(data []byte) (any, error) {
	return s.codec.Decode(data)
}

func (s *slot[V, U, C]) Restore(ctx context.Context, checkpoint any, config types.Config) (Slot, io.Closer, error) {
	scope, err := s.ch.FromCheckpoint(ctx, checkpoint, config)
	if err != nil {
		return nil, nil, err
	}
	return &slot[V, U, C]{ch: scope.Channel(), codec: s.codec}, scope, nil
}

func (s *slot[V, U, C]) Equal(other Slot) bool {
	ch, ok := Unwrap(other)
	return ok && other.Kind() == s.codec.Kind && s.ch.Equal(ch)
}

type liftedBatch[V, U, C any] struct {
	ch      Channel[V, U, C]
	updates []U
}

func (b *liftedBatch[V, U, C]) Apply() bool {
	return b.ch.Update(b.updates)
}
