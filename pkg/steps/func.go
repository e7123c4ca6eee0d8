// Package steps contains ready made pipeline steps: plain functions over values, document
// loading, HTML extraction, feed parsing and pagination.
package steps

import (
	"context"
	"iter"

	"github.com/ShroXd/cascade"
)

// Func builds a step from a function returning all outputs of one input at once.
func Func(name string, fn func(ctx context.Context, value any) ([]any, error), opts ...cascade.StepOptionFn) (*cascade.BaseStep, error) {
	tr := cascade.TransformFunc(func(ctx context.Context, value any) iter.Seq2[any, error] {
		return func(yield func(any, error) bool) {
			outs, err := fn(ctx, value)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, out := range outs {
				if !yield(out, nil) {
					return
				}
			}
		}
	})

	return cascade.NewStep(tr, withDefaultName(name, opts)...)
}

// Map yields fn(value) for every input.
func Map(fn func(value any) any, opts ...cascade.StepOptionFn) (*cascade.BaseStep, error) {
	return Func("map", func(_ context.Context, value any) ([]any, error) {
		return []any{fn(value)}, nil
	}, opts...)
}

// Filter passes on the inputs fn accepts.
func Filter(fn func(value any) bool, opts ...cascade.StepOptionFn) (*cascade.BaseStep, error) {
	return Func("filter", func(_ context.Context, value any) ([]any, error) {
		if fn(value) {
			return []any{value}, nil
		}
		return nil, nil
	}, opts...)
}

// Values ignores its input and yields values, e.g. to fan a single seed out to a URL list.
func Values(values []any, opts ...cascade.StepOptionFn) (*cascade.BaseStep, error) {
	return Func("values", func(context.Context, any) ([]any, error) {
		return values, nil
	}, opts...)
}

// withDefaultName puts the name first so that a WithName in opts still wins.
func withDefaultName(name string, opts []cascade.StepOptionFn) []cascade.StepOptionFn {
	return append([]cascade.StepOptionFn{cascade.WithName(name)}, opts...)
}
