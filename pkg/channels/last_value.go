package channels

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	"github.com/avi3tal/pregel/pkg/types"
)

// LastValue is a channel that only keeps the most recent value. Unlike a
// non-accumulating Topic it survives steps without writers.
type LastValue[T any] struct {
	value T
	set   bool
}

func NewLastValue[T any]() *LastValue[T] {
	return &LastValue[T]{}
}

// Update keeps the last element of the batch. An empty batch leaves the
// value untouched.
func (l *LastValue[T]) Update(values []T) bool {
	if len(values) == 0 {
		return false
	}
	next := values[len(values)-1]
	changed := !l.set || !reflect.DeepEqual(l.value, next)
	l.value = next
	l.set = true
	return changed
}

func (l *LastValue[T]) Get() (T, error) {
	if !l.set {
		var zero T
		return zero, ErrEmptyChannel
	}
	return l.value, nil
}

func (l *LastValue[T]) Checkpoint() *T {
	if !l.set {
		return nil
	}
	v := l.value
	return &v
}

func (l *LastValue[T]) FromCheckpoint(_ context.Context, checkpoint any, _ types.Config) (*Scope[T, T, *T], error) {
	restored := NewLastValue[T]()
	switch cp := checkpoint.(type) {
	case nil:
	case *T:
		if cp != nil {
			restored.value, restored.set = *cp, true
		}
	case T:
		restored.value, restored.set = cp, true
	default:
		return nil, fmt.Errorf("%w: last value cannot restore from %T", ErrInvalidCheckpoint, checkpoint)
	}
	return NewScope[T, T, *T](restored, nil), nil
}

func (l *LastValue[T]) lastValue() {}

func (l *LastValue[T]) Equal(other any) bool {
	_, ok := other.(interface{ lastValue() })
	return ok
}

func liftLastValueUpdate[T any](v any) (T, error) {
	tv, ok := v.(T)
	if !ok {
		return tv, fmt.Errorf("%w: unexpected type %T", ErrInvalidUpdate, v)
	}
	return tv, nil
}

func decodeLastValueCheckpoint[T any](data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var v T
	if err := unmarshalCheckpoint(data, &v); err != nil {
		return nil, err
	}
	if n, ok := normalizeNumbers(v).(T); ok {
		v = n
	}
	return &v, nil
}
