package cascade

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterStep yields the incremented input until the input reaches limit.
func counterStep(t *testing.T, limit int) (*BaseStep, *sliceTransformer) {
	t.Helper()
	return newSliceStep(t, func(v any) []any {
		n := v.(int)
		if n >= limit {
			return nil
		}
		return []any{n + 1}
	})
}

func TestLoopMaxIterations(t *testing.T) {
	for _, limit := range []int{1000, 1500, 1 << 20} {
		step, tr := counterStep(t, limit)
		loop, err := NewLoop(step)
		require.NoError(t, err)

		outs := collect(t, loop.InvokeStep(context.Background(), Input{Value: 0}))

		assert.Equal(t, 1000, tr.calls, "limit %d", limit)
		assert.Len(t, outs, 1000)
	}

	t.Run("Configured ceiling", func(t *testing.T) {
		step, tr := counterStep(t, 100)
		loop, err := NewLoop(step, MaxIterations(5))
		require.NoError(t, err)

		assert.Equal(t, []any{1, 2, 3, 4, 5}, values(collect(t, loop.InvokeStep(context.Background(), Input{Value: 0}))))
		assert.Equal(t, 5, tr.calls)
		assert.Equal(t, 5, loop.MaxIterations())
	})

	t.Run("Invalid ceiling", func(t *testing.T) {
		step, _ := counterStep(t, 1)
		_, err := NewLoop(step, MaxIterations(0))
		assert.ErrorIs(t, err, errInvalidMaxIterations)
	})
}

func TestLoopStopsWithoutOutput(t *testing.T) {
	step, tr := counterStep(t, 3)
	loop, err := NewLoop(step)
	require.NoError(t, err)

	outs := collect(t, loop.InvokeStep(context.Background(), Input{Value: 0}))

	assert.Equal(t, []any{1, 2, 3}, values(outs))
	assert.Equal(t, 4, tr.calls)
}

func TestLoopStopIf(t *testing.T) {
	step, _ := counterStep(t, 100)
	loop, err := NewLoop(step, StopIf(func(_ any, out *Output) bool {
		return out.Value.(int) == 3
	}))
	require.NoError(t, err)

	outs := collect(t, loop.InvokeStep(context.Background(), Input{Value: 0}))

	assert.Equal(t, []any{1, 2}, values(outs), "the stopping output is not forwarded")
}

func TestLoopWithInput(t *testing.T) {
	step := identityStep(t)
	loop, err := NewLoop(step, WithInput(func(input any, out *Output) (any, bool) {
		next := out.Value.(int) * 2
		return next, next <= 16
	}))
	require.NoError(t, err)

	outs := collect(t, loop.InvokeStep(context.Background(), Input{Value: 1}))

	assert.Equal(t, []any{1, 2, 4, 8, 16}, values(outs))
}

func TestLoopFeedbackUsesLastOutput(t *testing.T) {
	var inputs []any
	step, _ := newSliceStep(t, func(v any) []any {
		inputs = append(inputs, v)
		n := v.(int)
		return []any{n * 10, n*10 + 1}
	})
	loop, err := NewLoop(step, MaxIterations(3))
	require.NoError(t, err)

	collect(t, loop.InvokeStep(context.Background(), Input{Value: 1}))

	assert.Equal(t, []any{1, 11, 111}, inputs)
}

func TestLoopCallWithInputOnlyOnce(t *testing.T) {
	calls := 0
	step := constStep(t, []any{"a", "b", "c"})
	loop, err := NewLoop(step, MaxIterations(2), CallWithInputOnlyOnce(), WithInput(func(input any, out *Output) (any, bool) {
		calls++
		assert.Equal(t, "c", out.Value)
		return out.Value, true
	}))
	require.NoError(t, err)

	collect(t, loop.InvokeStep(context.Background(), Input{Value: "x"}))

	assert.Equal(t, 2, calls)
}

func TestLoopKeepLoopingWithoutOutput(t *testing.T) {
	step, _ := newSliceStep(t, func(v any) []any {
		if v.(int)%2 == 1 {
			return nil
		}
		return []any{v}
	})
	var feedbackOutputs []*Output
	loop, err := NewLoop(step, KeepLoopingWithoutOutput(), WithInput(func(input any, out *Output) (any, bool) {
		feedbackOutputs = append(feedbackOutputs, out)
		n := input.(int) + 1
		return n, n < 5
	}))
	require.NoError(t, err)

	outs := collect(t, loop.InvokeStep(context.Background(), Input{Value: 0}))

	assert.Equal(t, []any{0, 2, 4}, values(outs))
	assert.Nil(t, feedbackOutputs[1], "rounds without output feed back a nil output")
}

func TestLoopCascadeWhenFinished(t *testing.T) {
	var events []string
	step, _ := newSliceStep(t, func(v any) []any {
		events = append(events, "invoke")
		n := v.(int)
		if n >= 3 {
			return nil
		}
		return []any{n + 1}
	})
	loop, err := NewLoop(step, CascadeWhenFinished())
	require.NoError(t, err)

	for out, err := range loop.InvokeStep(context.Background(), Input{Value: 0}) {
		require.NoError(t, err)
		events = append(events, "out")
		_ = out
	}

	assert.Equal(t, []string{"invoke", "invoke", "invoke", "invoke", "out", "out", "out"}, events)
}

func TestLoopUniqueOutputs(t *testing.T) {
	step := constStep(t, []any{"a", "b"})
	loop, err := NewLoop(step, MaxIterations(3), LoopUniqueOutputs(), CascadeWhenFinished())
	require.NoError(t, err)

	outs := collect(t, loop.InvokeStep(context.Background(), Input{Value: "x"}))
	assert.Equal(t, []any{"a", "b"}, values(outs))

	loop.ResetAfterRun()
	assert.Len(t, collect(t, loop.InvokeStep(context.Background(), Input{Value: "x"})), 2)
}

func TestLoopWithInputStep(t *testing.T) {
	step, _ := counterStep(t, 100)
	next := constStep(t, []any{10, 20})
	loop, err := NewLoop(step, MaxIterations(3), WithInputStep(next))
	require.NoError(t, err)

	outs := collect(t, loop.InvokeStep(context.Background(), Input{Value: 0}))

	assert.Equal(t, []any{1, 11, 11}, values(outs), "the sub-step's first output is the next input")
}

func TestLoopConflictingFeedback(t *testing.T) {
	step := identityStep(t)
	_, err := NewLoop(step, WithInput(func(any, *Output) (any, bool) { return nil, false }), WithInputStep(identityStep(t)))
	assert.ErrorIs(t, err, errConflictingFeedback)

	_, err = NewLoop(nil)
	assert.ErrorIs(t, err, errNilStep)
}

func TestLoopPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	round := 0
	step, err := NewStep(TransformFunc(func(_ context.Context, v any) iter.Seq2[any, error] {
		return func(yield func(any, error) bool) {
			round++
			if round == 2 {
				yield(nil, boom)
				return
			}
			yield(v, nil)
		}
	}))
	require.NoError(t, err)
	loop, err := NewLoop(step)
	require.NoError(t, err)

	var gotErr error
	count := 0
	for _, err := range loop.InvokeStep(context.Background(), Input{Value: "v"}) {
		if err != nil {
			gotErr = err
			break
		}
		count++
	}

	assert.Equal(t, 1, count)
	assert.ErrorIs(t, gotErr, boom)
}

func TestLoopCarriesResult(t *testing.T) {
	step, _ := newSliceStep(t, func(v any) []any {
		n := v.(int)
		if n >= 2 {
			return nil
		}
		return []any{n + 1}
	}, WithResultKey("n"))
	loop, err := NewLoop(step)
	require.NoError(t, err)

	outs := collect(t, loop.InvokeStep(context.Background(), Input{Value: 0}))

	require.Len(t, outs, 2)
	assert.Equal(t, map[string]any{"n": []any{1, 2}}, outs[1].Result.ToMap())
}

func TestLoopConsumerBreak(t *testing.T) {
	step, tr := counterStep(t, 100)
	loop, err := NewLoop(step)
	require.NoError(t, err)

	for range loop.InvokeStep(context.Background(), Input{Value: 0}) {
		break
	}

	assert.Equal(t, 1, tr.calls)
}
