package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/avi3tal/pregel/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestTopicSlot(t *testing.T) {
	t.Parallel()
	s := TopicSlot[int](false)
	require.Equal(t, KindTopic, s.Kind())

	changed, err := s.Update([]any{1, []int{2, 3}, []any{4}, Values(5)})
	require.NoError(t, err)
	require.True(t, changed)

	got, err := s.Get()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, got)

	t.Run("wrong element type applies nothing", func(t *testing.T) {
		_, err := s.Update([]any{6, "seven"})
		require.ErrorIs(t, err, ErrInvalidUpdate)

		_, err = s.Update([]any{[]any{8, "nine"}})
		require.ErrorIs(t, err, ErrInvalidUpdate)

		got, err := s.Get()
		require.NoError(t, err)
		require.Equal(t, []int{1, 2, 3, 4, 5}, got)
	})

	t.Run("empty batch resets", func(t *testing.T) {
		changed, err := s.Update(nil)
		require.NoError(t, err)
		require.True(t, changed)
		_, err = s.Get()
		require.ErrorIs(t, err, ErrEmptyChannel)
	})
}

func TestTopicSlotAnyElements(t *testing.T) {
	t.Parallel()
	s := TopicSlot[any](true)
	_, err := s.Update([]any{1, []any{"a", 2.5}, []string{"b", "c"}, [2]int{3, 4}, []byte("raw")})
	require.NoError(t, err)

	got, err := s.Get()
	require.NoError(t, err)
	require.Equal(t, []any{1, "a", 2.5, "b", "c", 3, 4, []byte("raw")}, got)

	strs := TopicSlot[fmt.Stringer](false)
	_, err = strs.Update([]any{[]int{1}})
	require.ErrorIs(t, err, ErrInvalidUpdate)
}

func TestSlotLiftLeavesChannelUntouched(t *testing.T) {
	t.Parallel()
	s := TopicSlot[int](true)
	_, err := s.Update([]any{1})
	require.NoError(t, err)

	batch, err := s.Lift([]any{2, []int{3}})
	require.NoError(t, err)
	got, err := s.Get()
	require.NoError(t, err)
	require.Equal(t, []int{1}, got)

	require.True(t, batch.Apply())
	got, err = s.Get()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, got)

	_, err = s.Lift([]any{"x"})
	require.ErrorIs(t, err, ErrInvalidUpdate)
}

func TestSlotRestoreKeepsIntegers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, s := range map[string]Slot{
		"topic":      TopicSlot[any](false),
		"last value": LastValueSlot[any](),
	} {
		t.Run(name, func(t *testing.T) {
			write := []any{map[string]any{"n": 2, "tags": []any{"x", 3}}, 1}
			_, err := s.Update(write)
			require.NoError(t, err)

			data, err := json.Marshal(s.Checkpoint())
			require.NoError(t, err)
			cp, err := s.DecodeCheckpoint(data)
			require.NoError(t, err)
			restored, closer, err := s.Restore(ctx, cp, types.Config{})
			require.NoError(t, err)
			defer closer.Close()

			want, err := s.Get()
			require.NoError(t, err)
			got, err := restored.Get()
			require.NoError(t, err)
			require.Equal(t, want, got)

			changed, err := restored.Update(write)
			require.NoError(t, err)
			require.False(t, changed)
		})
	}
}

func TestNormalizeNumbers(t *testing.T) {
	t.Parallel()
	require.Equal(t, 7, normalizeNumbers(json.Number("7")))
	require.Equal(t, 2.5, normalizeNumbers(json.Number("2.5")))
	require.Equal(t, 1000.0, normalizeNumbers(json.Number("1e3")))
	require.Equal(t, "x", normalizeNumbers("x"))
}

func TestSlotRestoreFromPersisted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := TopicSlot[string](true)
	_, err := s.Update([]any{"a", []string{"b"}})
	require.NoError(t, err)

	data, err := json.Marshal(s.Checkpoint())
	require.NoError(t, err)

	for name, raw := range map[string][]byte{
		"plain":       data,
		"legacy pair": []byte(`{"seen":["ignored"],"values":["a","b"]}`),
	} {
		t.Run(name, func(t *testing.T) {
			cp, err := s.DecodeCheckpoint(raw)
			require.NoError(t, err)

			restored, closer, err := s.Restore(ctx, cp, types.Config{ThreadID: "t"})
			require.NoError(t, err)
			defer closer.Close()

			require.True(t, restored.Equal(s))
			got, err := restored.Get()
			require.NoError(t, err)
			require.Equal(t, []string{"a", "b"}, got)

			_, err = restored.Update([]any{"c"})
			require.NoError(t, err)
			orig, err := s.Get()
			require.NoError(t, err)
			require.Equal(t, []string{"a", "b"}, orig)
		})
	}
}

func TestSlotEqual(t *testing.T) {
	t.Parallel()
	require.True(t, TopicSlot[int](true).Equal(TopicSlot[string](true)))
	require.False(t, TopicSlot[int](true).Equal(TopicSlot[int](false)))
	require.False(t, TopicSlot[int](false).Equal(LastValueSlot[int]()))
	require.True(t, LastValueSlot[int]().Equal(LastValueSlot[int]()))
	require.True(t, NamedBarrierSlot([]string{"a"}).Equal(NamedBarrierSlot([]string{"a"})))
	require.False(t, NamedBarrierSlot([]string{"a"}).Equal(NamedBarrierSlot([]string{"b"})))

	ch, ok := Unwrap(TopicSlot[int](true))
	require.True(t, ok)
	require.IsType(t, &Topic[int]{}, ch)
}

func TestLastValueAndBarrierSlots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	lv := LastValueSlot[string]()
	_, err := lv.Update([]any{1})
	require.ErrorIs(t, err, ErrInvalidUpdate)
	changed, err := lv.Update([]any{"x", "y"})
	require.NoError(t, err)
	require.True(t, changed)
	data, err := json.Marshal(lv.Checkpoint())
	require.NoError(t, err)
	cp, err := lv.DecodeCheckpoint(data)
	require.NoError(t, err)
	restored, closer, err := lv.Restore(ctx, cp, types.Config{})
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	got, err := restored.Get()
	require.NoError(t, err)
	require.Equal(t, "y", got)

	barrier := NamedBarrierSlot([]string{"a", "b"})
	_, err = barrier.Update([]any{"a"})
	require.NoError(t, err)
	data, err = json.Marshal(barrier.Checkpoint())
	require.NoError(t, err)
	cp, err = barrier.DecodeCheckpoint(data)
	require.NoError(t, err)
	restored, closer, err = barrier.Restore(ctx, cp, types.Config{})
	require.NoError(t, err)
	defer closer.Close()
	_, err = restored.Get()
	require.ErrorIs(t, err, ErrEmptyChannel)
	_, err = restored.Update([]any{"b"})
	require.NoError(t, err)
	got, err = restored.Get()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got)
}
