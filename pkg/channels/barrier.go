package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/avi3tal/pregel/pkg/types"
)

// NamedBarrier waits for every required name to report before it exposes a
// value. Reports from names outside the required set are dropped.
type NamedBarrier struct {
	required map[string]struct{}
	seen     map[string]struct{}
}

func NewNamedBarrier(required []string) *NamedBarrier {
	names := make(map[string]struct{}, len(required))
	for _, r := range required {
		names[r] = struct{}{}
	}
	return &NamedBarrier{
		required: names,
		seen:     make(map[string]struct{}, len(names)),
	}
}

func (b *NamedBarrier) Update(names []string) bool {
	changed := false
	for _, name := range names {
		if _, ok := b.required[name]; !ok {
			continue
		}
		if _, ok := b.seen[name]; !ok {
			b.seen[name] = struct{}{}
			changed = true
		}
	}
	return changed
}

// Get returns the sorted required names once all of them reported.
func (b *NamedBarrier) Get() ([]string, error) {
	if len(b.required) == 0 || len(b.seen) < len(b.required) {
		return nil, ErrEmptyChannel
	}
	return sortedKeys(b.seen), nil
}

// Missing lists the names that have not reported yet.
func (b *NamedBarrier) Missing() []string {
	var missing []string
	for name := range b.required {
		if _, ok := b.seen[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func (b *NamedBarrier) Checkpoint() []string {
	if len(b.seen) == 0 {
		return nil
	}
	return sortedKeys(b.seen)
}

func (b *NamedBarrier) FromCheckpoint(_ context.Context, checkpoint any, _ types.Config) (*Scope[[]string, string, []string], error) {
	restored := NewNamedBarrier(sortedKeys(b.required))
	var names []string
	switch cp := checkpoint.(type) {
	case nil:
	case []string:
		names = cp
	case []any:
		for i, v := range cp {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: element %d has type %T", ErrInvalidCheckpoint, i, v)
			}
			names = append(names, s)
		}
	default:
		return nil, fmt.Errorf("%w: barrier cannot restore from %T", ErrInvalidCheckpoint, checkpoint)
	}
	restored.Update(names)
	return NewScope[[]string, string, []string](restored, nil), nil
}

// Equal reports whether other waits on the same set of names.
func (b *NamedBarrier) Equal(other any) bool {
	o, ok := other.(*NamedBarrier)
	if !ok || len(o.required) != len(b.required) {
		return false
	}
	for name := range b.required {
		if _, ok := o.required[name]; !ok {
			return false
		}
	}
	return true
}

func liftBarrierUpdate(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected type %T", ErrInvalidUpdate, v)
	}
	return s, nil
}

func decodeBarrierCheckpoint(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	return names, nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
