package cascade

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/require"
)

// sliceTransformer yields whatever fn returns for a value and counts its calls.
type sliceTransformer struct {
	fn    func(value any) []any
	calls int
}

func (st *sliceTransformer) Transform(_ context.Context, value any) iter.Seq2[any, error] {
	st.calls++
	return func(yield func(any, error) bool) {
		for _, v := range st.fn(value) {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func newSliceStep(t *testing.T, fn func(value any) []any, opts ...StepOptionFn) (*BaseStep, *sliceTransformer) {
	t.Helper()
	st := &sliceTransformer{fn: fn}
	step, err := NewStep(st, opts...)
	require.NoError(t, err)
	return step, st
}

func constStep(t *testing.T, values []any, opts ...StepOptionFn) *BaseStep {
	t.Helper()
	step, _ := newSliceStep(t, func(any) []any { return values }, opts...)
	return step
}

func identityStep(t *testing.T, opts ...StepOptionFn) *BaseStep {
	t.Helper()
	step, _ := newSliceStep(t, func(v any) []any { return []any{v} }, opts...)
	return step
}

func collect(t *testing.T, seq iter.Seq2[*Output, error]) []*Output {
	t.Helper()
	var outs []*Output
	for out, err := range seq {
		require.NoError(t, err)
		outs = append(outs, out)
	}
	return outs
}

func values(outs []*Output) []any {
	vs := make([]any, len(outs))
	for i, out := range outs {
		vs[i] = out.Value
	}
	return vs
}
