package cascade

import (
	"context"
	"iter"
)

type stepOptions struct {
	name       string
	resultKey  string
	inclusion  ResultInclusion
	uniqueness UniquenessMode
	inputKey   string
	noCascade  bool
}

type StepOptionFn func(so *stepOptions) error

func buildStepOptions(optFns []StepOptionFn) (*stepOptions, error) {
	so := &stepOptions{name: "step"}
	for _, optFn := range optFns {
		if err := optFn(so); err != nil {
			return nil, err
		}
	}
	return so, nil
}

func WithName(name string) StepOptionFn {
	return func(so *stepOptions) error {
		so.name = name
		return nil
	}
}

// WithResultKey stores every output value under key in the output's result.
func WithResultKey(key string) StepOptionFn {
	return func(so *stepOptions) error {
		if key == "" {
			return errInvalidResultKey
		}
		so.resultKey = key
		return nil
	}
}

// AddToResult copies the mapped keys of map outputs into the result. With a single mapping,
// scalar outputs are stored under its target.
func AddToResult(mappings ...KeyMapping) StepOptionFn {
	return func(so *stepOptions) error {
		if len(mappings) == 0 {
			return errInvalidKeyMapping
		}
		for _, m := range mappings {
			if m.Source == "" || m.Target == "" {
				return errInvalidKeyMapping
			}
		}
		so.inclusion = IncludeKeys(mappings...)
		return nil
	}
}

func AddKeysToResult(keys ...string) StepOptionFn {
	return AddToResult(Keys(keys...)...)
}

// AddAllToResult copies every key of map outputs into the result.
func AddAllToResult() StepOptionFn {
	return func(so *stepOptions) error {
		so.inclusion = IncludeAll
		return nil
	}
}

// UseInputKey makes the step work on one member of a map input.
func UseInputKey(key string) StepOptionFn {
	return func(so *stepOptions) error {
		if key == "" {
			return errInvalidInputKey
		}
		so.inputKey = key
		return nil
	}
}

// DontCascade keeps outputs from being forwarded, for steps run only for their side effects.
func DontCascade() StepOptionFn {
	return func(so *stepOptions) error {
		so.noCascade = true
		return nil
	}
}

// UniqueOutputs drops outputs seen before in the same run. An optional key compares map
// outputs by that member only.
func UniqueOutputs(key ...string) StepOptionFn {
	return func(so *stepOptions) error {
		switch {
		case len(key) == 0:
			so.uniqueness = UniqueWholeValue
		case len(key) == 1 && key[0] != "":
			so.uniqueness = UniqueByKey(key[0])
		default:
			return errInvalidUniqueKey
		}
		return nil
	}
}

// BaseStep runs a Transformer and applies the result, uniqueness and cascading policies
// around it.
type BaseStep struct {
	opts        *stepOptions
	transformer Transformer
	validator   InputValidator
	loaderUser  LoaderConsumer
	logUser     interface{ SetLogger(Logger) }
	logger      Logger
	dedup       dedupFilter
}

func NewStep(transformer Transformer, optFns ...StepOptionFn) (*BaseStep, error) {
	if transformer == nil {
		return nil, errNilTransformer
	}

	opts, err := buildStepOptions(optFns)
	if err != nil {
		return nil, err
	}

	s := &BaseStep{
		opts:        opts,
		transformer: transformer,
		logger:      NewNopLogger(),
		dedup:       dedupFilter{mode: opts.uniqueness},
	}
	s.validator, _ = transformer.(InputValidator)
	s.loaderUser, _ = transformer.(LoaderConsumer)
	s.logUser, _ = transformer.(interface{ SetLogger(Logger) })

	return s, nil
}

func (s *BaseStep) Name() string {
	return s.opts.name
}

func (s *BaseStep) Cascades() bool {
	return !s.opts.noCascade
}

func (s *BaseStep) ResultKey() string {
	return s.opts.resultKey
}

func (s *BaseStep) Inclusion() ResultInclusion {
	return s.opts.inclusion
}

func (s *BaseStep) Uniqueness() UniquenessMode {
	return s.opts.uniqueness
}

func (s *BaseStep) ResetAfterRun() {
	s.dedup.reset()
}

func (s *BaseStep) SetLogger(logger Logger) {
	s.logger = logger
	if s.logUser != nil {
		s.logUser.SetLogger(logger)
	}
}

// SetLoader hands the loader to the transformer if it loads documents.
func (s *BaseStep) SetLoader(loader Loader) {
	if s.loaderUser != nil {
		s.loaderUser.SetLoader(loader)
	}
}

func (s *BaseStep) InvokeStep(ctx context.Context, input Input) iter.Seq2[*Output, error] {
	return func(yield func(*Output, error) bool) {
		value, ok := s.prepareInput(input.Value)
		if !ok {
			return
		}

		for raw, err := range s.transformer.Transform(ctx, value) {
			if err != nil {
				yield(nil, &StepError{Step: s.opts.name, Err: err})
				return
			}

			out := NewOutput(raw, input.Result)
			if !s.dedup.allow(out) {
				s.logger.Debug("Skipped duplicate output", LogContext{"step": s.opts.name, "key": out.Key(s.opts.uniqueness.key)})
				continue
			}

			out.Result = s.addToResult(raw, input.Result)
			if !yield(out, nil) {
				return
			}
		}
	}
}

// prepareInput projects the input key and runs the validator. Failures only drop this input.
func (s *BaseStep) prepareInput(value any) (any, bool) {
	if s.opts.inputKey != "" {
		m, ok := value.(map[string]any)
		if !ok {
			err := &ValidationError{Step: s.opts.name, Value: value, Err: ErrNotMapInput}
			s.logger.Warn("Input rejected", LogContext{"step": s.opts.name, "err": err.Error()})
			return nil, false
		}

		v, ok := m[s.opts.inputKey]
		if !ok {
			err := &MissingKeyError{Step: s.opts.name, Key: s.opts.inputKey}
			s.logger.Warn("Input rejected", LogContext{"step": s.opts.name, "err": err.Error()})
			return nil, false
		}
		value = v
	}

	if s.validator != nil {
		sanitized, err := s.validator.ValidateAndSanitizeInput(value)
		if err != nil {
			verr := &ValidationError{Step: s.opts.name, Value: value, Err: err}
			s.logger.Warn("Input rejected", LogContext{"step": s.opts.name, "err": verr.Error()})
			return nil, false
		}
		value = sanitized
	}

	return value, true
}

// addToResult returns the result the output carries. Writes always go to a copy so that
// sibling outputs of the same input never share a record.
func (s *BaseStep) addToResult(value any, current *Result) *Result {
	if s.opts.resultKey == "" && s.opts.inclusion.IsNone() {
		return current
	}

	r := NewResultFrom(current)
	if s.opts.resultKey != "" {
		r.Set(s.opts.resultKey, value)
	}

	switch s.opts.inclusion.kind {
	case includeAll:
		if m, ok := value.(map[string]any); ok {
			for _, k := range sortedKeys(m) {
				r.Set(k, m[k])
			}
		} else {
			r.Set("", value)
		}
	case includeKeys:
		mappings := s.opts.inclusion.keys
		if m, ok := value.(map[string]any); ok {
			for _, km := range mappings {
				r.Set(km.Target, m[km.Source])
			}
		} else if len(mappings) == 1 {
			r.Set(mappings[0].Target, value)
		} else {
			s.logger.Warn("Cannot pick keys from a non-map output", LogContext{"step": s.opts.name})
		}
	}

	return r
}
