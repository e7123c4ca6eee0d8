package cascade

import (
	"context"
	"iter"
)

// Step consumes one input and lazily produces zero or more outputs.
//
// An error yielded by InvokeStep is fatal for the whole run. Problems that only concern the
// current input (validation, missing keys) are logged by the step and produce no outputs.
type Step interface {
	Name() string
	InvokeStep(ctx context.Context, input Input) iter.Seq2[*Output, error]
	// Cascades reports whether outputs are forwarded to the next pipeline stage.
	Cascades() bool
	// ResetAfterRun clears per-run state such as dedup memory.
	ResetAfterRun()
	SetLogger(logger Logger)
}

// LoaderConsumer is implemented by steps that load documents.
type LoaderConsumer interface {
	SetLoader(loader Loader)
}

// Transformer is the core of a BaseStep: it turns an input value into raw output values.
type Transformer interface {
	Transform(ctx context.Context, value any) iter.Seq2[any, error]
}

// InputValidator may be implemented by a Transformer to check and normalize input values
// before Transform runs.
type InputValidator interface {
	ValidateAndSanitizeInput(value any) (any, error)
}

type TransformFunc func(ctx context.Context, value any) iter.Seq2[any, error]

func (f TransformFunc) Transform(ctx context.Context, value any) iter.Seq2[any, error] {
	return f(ctx, value)
}

// KeyMapping copies Source of a map output to Target in the result.
type KeyMapping struct {
	Source string
	Target string
}

// Keys maps every key to itself.
func Keys(keys ...string) []KeyMapping {
	mappings := make([]KeyMapping, len(keys))
	for i, k := range keys {
		mappings[i] = KeyMapping{Source: k, Target: k}
	}
	return mappings
}

func MapKey(source, target string) KeyMapping {
	return KeyMapping{Source: source, Target: target}
}

type inclusionKind uint8

const (
	includeNone inclusionKind = iota
	includeAll
	includeKeys
)

// ResultInclusion decides which parts of an output are written to its result.
type ResultInclusion struct {
	kind inclusionKind
	keys []KeyMapping
}

var (
	IncludeNone = ResultInclusion{kind: includeNone}
	IncludeAll  = ResultInclusion{kind: includeAll}
)

func IncludeKeys(keys ...KeyMapping) ResultInclusion {
	return ResultInclusion{kind: includeKeys, keys: keys}
}

func (ri ResultInclusion) IsNone() bool {
	return ri.kind == includeNone
}

type uniquenessKind uint8

const (
	uniqueOff uniquenessKind = iota
	uniqueWholeValue
	uniqueByKey
)

// UniquenessMode decides whether, and by what, repeated outputs are dropped.
type UniquenessMode struct {
	kind uniquenessKind
	key  string
}

var (
	UniqueOff        = UniquenessMode{kind: uniqueOff}
	UniqueWholeValue = UniquenessMode{kind: uniqueWholeValue}
)

func UniqueByKey(key string) UniquenessMode {
	return UniquenessMode{kind: uniqueByKey, key: key}
}

func (um UniquenessMode) Enabled() bool {
	return um.kind != uniqueOff
}

// dedupFilter remembers output keys for the duration of one run.
type dedupFilter struct {
	mode UniquenessMode
	seen map[string]struct{}
}

// allow reports whether the output has not been seen yet and remembers it.
func (d *dedupFilter) allow(out *Output) bool {
	if !d.mode.Enabled() {
		return true
	}
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}

	key := out.Key(d.mode.key)
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}

	return true
}

func (d *dedupFilter) reset() {
	d.seen = nil
}
