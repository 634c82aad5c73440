package channels

import (
	"context"
	"errors"
	"testing"

	"github.com/avi3tal/pregel/pkg/types"
	"github.com/stretchr/testify/require"
)

// leasedTopic releases a counter when its scope closes.
type leasedTopic struct {
	*Topic[int]
	released *int
}

func (l *leasedTopic) FromCheckpoint(ctx context.Context, checkpoint any, config types.Config) (*Scope[[]int, Update[int], []int], error) {
	scope, err := l.Topic.FromCheckpoint(ctx, checkpoint, config)
	if err != nil {
		return nil, err
	}
	return NewScope[[]int, Update[int], []int](scope.Channel(), func() error {
		*l.released++
		return nil
	}), nil
}

func TestScopeCloseOnce(t *testing.T) {
	t.Parallel()
	calls := 0
	scope := NewScope[[]int, Update[int], []int](NewTopic[int](false), func() error {
		calls++
		return errors.New("release failed")
	})
	require.EqualError(t, scope.Close(), "release failed")
	require.EqualError(t, scope.Close(), "release failed")
	require.Equal(t, 1, calls)

	require.NoError(t, NewScope[[]int, Update[int], []int](NewTopic[int](false), nil).Close())
}

func TestRestoreReleasesOnEveryPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	released := 0
	ch := &leasedTopic{Topic: NewTopic[int](true), released: &released}

	t.Run("success", func(t *testing.T) {
		err := Restore[[]int, Update[int], []int](ctx, ch, []int{1}, types.Config{}, func(Channel[[]int, Update[int], []int]) error {
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, released)
	})

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		err := Restore[[]int, Update[int], []int](ctx, ch, nil, types.Config{}, func(Channel[[]int, Update[int], []int]) error {
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 2, released)
	})

	t.Run("panic", func(t *testing.T) {
		require.Panics(t, func() {
			_ = Restore[[]int, Update[int], []int](ctx, ch, nil, types.Config{}, func(Channel[[]int, Update[int], []int]) error {
				panic("boom")
			})
		})
		require.Equal(t, 3, released)
	})

	t.Run("invalid checkpoint never opens a scope", func(t *testing.T) {
		err := Restore[[]int, Update[int], []int](ctx, ch, "bad", types.Config{}, func(Channel[[]int, Update[int], []int]) error {
			t.Fatal("fn must not run")
			return nil
		})
		require.ErrorIs(t, err, ErrInvalidCheckpoint)
		require.Equal(t, 3, released)
	})
}
