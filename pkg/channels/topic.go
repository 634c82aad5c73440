package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/avi3tal/pregel/pkg/types"
)

// Update is one producer write to a Topic: either a single value or a list
// whose elements are appended individually.
type Update[T any] struct {
	values []T
	list   bool
}

// Value wraps a single value.
func Value[T any](v T) Update[T] {
	return Update[T]{values: []T{v}}
}

// Values wraps a list. An empty list contributes nothing.
func Values[T any](vs ...T) Update[T] {
	return Update[T]{values: vs, list: true}
}

func (u Update[T]) IsList() bool {
	return u.list
}

// Flatten expands a batch into one ordered sequence: each scalar as one
// element, each list's elements in their original order.
func Flatten[T any](batch []Update[T]) []T {
	n := 0
	for _, u := range batch {
		n += len(u.values)
	}
	flat := make([]T, 0, n)
	for _, u := range batch {
		flat = append(flat, u.values...)
	}
	return flat
}

// PairCheckpoint is the two-part checkpoint shape written by older snapshot
// producers. Only Values is restored.
type PairCheckpoint[T any] struct {
	Seen   []T `json:"seen"`
	Values []T `json:"values"`
}

// Topic is a pub/sub log. Every step's writes are flattened and appended in
// order; duplicates are kept. Without accumulate the log is cleared at the
// start of every Update, so it only reflects the latest step.
type Topic[T any] struct {
	accumulate bool
	values     []T
}

func NewTopic[T any](accumulate bool) *Topic[T] {
	return &Topic[T]{accumulate: accumulate}
}

// Accumulate reports whether values are kept across steps.
func (t *Topic[T]) Accumulate() bool {
	return t.accumulate
}

func (t *Topic[T]) topic() {}

func (t *Topic[T]) Update(batch []Update[T]) bool {
	prior := t.values
	if !t.accumulate {
		t.values = nil
	} else {
		t.values = cloneSlice(prior)
	}
	t.values = append(t.values, Flatten(batch)...)
	return !equalValues(prior, t.values)
}

func (t *Topic[T]) Get() ([]T, error) {
	if len(t.values) == 0 {
		return nil, ErrEmptyChannel
	}
	return cloneSlice(t.values), nil
}

func (t *Topic[T]) Checkpoint() []T {
	return cloneSlice(t.values)
}

func (t *Topic[T]) FromCheckpoint(_ context.Context, checkpoint any, _ types.Config) (*Scope[[]T, Update[T], []T], error) {
	restored := NewTopic[T](t.accumulate)
	values, err := topicValues[T](checkpoint)
	if err != nil {
		return nil, err
	}
	restored.values = values
	return NewScope[[]T, Update[T], []T](restored, nil), nil
}

// Equal reports whether other is a Topic with the same accumulate policy.
// The element type is not compared.
func (t *Topic[T]) Equal(other any) bool {
	o, ok := other.(interface {
		topic()
		Accumulate() bool
	})
	return ok && o.Accumulate() == t.accumulate
}

func topicValues[T any](checkpoint any) ([]T, error) {
	switch cp := checkpoint.(type) {
	case nil:
		return nil, nil
	case []T:
		return cloneSlice(cp), nil
	case PairCheckpoint[T]:
		return cloneSlice(cp.Values), nil
	case *PairCheckpoint[T]:
		if cp == nil {
			return nil, nil
		}
		return cloneSlice(cp.Values), nil
	case []any:
		values := make([]T, 0, len(cp))
		for i, v := range cp {
			tv, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("%w: element %d has type %T", ErrInvalidCheckpoint, i, v)
			}
			values = append(values, tv)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%w: topic cannot restore from %T", ErrInvalidCheckpoint, checkpoint)
	}
}

// liftTopicUpdate converts an untyped write into a Topic update. Lists are
// checked before scalars so a []T is always expanded, and for interface
// element types any slice is.
func liftTopicUpdate[T any](v any) (Update[T], error) {
	switch u := v.(type) {
	case Update[T]:
		return u, nil
	case []T:
		return Values(u...), nil
	case []any:
		values := make([]T, 0, len(u))
		for _, e := range u {
			tv, ok := e.(T)
			if !ok {
				return Update[T]{}, fmt.Errorf("%w: list element has type %T", ErrInvalidUpdate, e)
			}
			values = append(values, tv)
		}
		return Values(values...), nil
	}
	if reflect.TypeFor[T]().Kind() == reflect.Interface {
		if list, ok, err := reflectList[T](v); ok {
			if err != nil {
				return Update[T]{}, err
			}
			return Values(list...), nil
		}
	}
	if tv, ok := v.(T); ok {
		return Value(tv), nil
	}
	return Update[T]{}, fmt.Errorf("%w: unexpected type %T", ErrInvalidUpdate, v)
}

// reflectList expands a typed slice or array written to a Topic whose
// element type is an interface. Byte slices stay scalars.
func reflectList[T any](v any) ([]T, bool, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false, nil
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false, nil
	}
	values := make([]T, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i).Interface()
		tv, ok := e.(T)
		if !ok {
			return nil, true, fmt.Errorf("%w: list element has type %T", ErrInvalidUpdate, e)
		}
		values = append(values, tv)
	}
	return values, true, nil
}

// decodeTopicCheckpoint reads a persisted Topic checkpoint. An array is the
// plain shape, an object the legacy pair.
func decodeTopicCheckpoint[T any](data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '{' {
		var pair PairCheckpoint[T]
		if err := unmarshalCheckpoint(data, &pair); err != nil {
			return nil, err
		}
		normalizeElements(pair.Values)
		return pair, nil
	}
	var values []T
	if err := unmarshalCheckpoint(data, &values); err != nil {
		return nil, err
	}
	normalizeElements(values)
	return values, nil
}

// unmarshalCheckpoint decodes a persisted checkpoint, keeping numbers held
// in interface values as json.Number for normalizeNumbers.
func unmarshalCheckpoint(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	return nil
}

// normalizeNumbers turns decoded json.Number values back into int when
// integral and float64 otherwise, so a restored any-typed channel compares
// equal to the one that was checkpointed.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(x.String(), 10, 0); err == nil {
			return int(i)
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
	}
	return v
}

func normalizeElements[T any](values []T) {
	for i := range values {
		if n, ok := normalizeNumbers(values[i]).(T); ok {
			values[i] = n
		}
	}
}

func cloneSlice[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func equalValues[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
