package cascade

import (
	"context"
	"iter"
)

const DefaultMaxIterations = 1000

// FeedbackFunc derives the next round's input value from the round's input value and one of
// its outputs. output is nil when a round without outputs keeps looping. Returning false
// ends the loop.
type FeedbackFunc func(input any, output *Output) (any, bool)

// StopFunc ends the loop before output is forwarded.
type StopFunc func(input any, output *Output) bool

type loopOptions struct {
	name                     string
	maxIterations            int
	feedback                 FeedbackFunc
	feedbackStep             Step
	stopIf                   StopFunc
	callWithInputOnlyOnce    bool
	cascadeWhenFinished      bool
	keepLoopingWithoutOutput bool
	uniqueness               UniquenessMode
	noCascade                bool
}

type LoopOptionFn func(lo *loopOptions) error

func LoopName(name string) LoopOptionFn {
	return func(lo *loopOptions) error {
		lo.name = name
		return nil
	}
}

// MaxIterations caps the number of rounds. It applies even if no stop condition ever triggers.
func MaxIterations(n int) LoopOptionFn {
	return func(lo *loopOptions) error {
		if n < 1 {
			return errInvalidMaxIterations
		}
		lo.maxIterations = n
		return nil
	}
}

// WithInput sets the function deriving the next input.
func WithInput(fn FeedbackFunc) LoopOptionFn {
	return func(lo *loopOptions) error {
		if lo.feedbackStep != nil {
			return errConflictingFeedback
		}
		lo.feedback = fn
		return nil
	}
}

// WithInputStep derives the next input by invoking step with the output and taking its first
// output.
func WithInputStep(step Step) LoopOptionFn {
	return func(lo *loopOptions) error {
		if step == nil {
			return errNilStep
		}
		if lo.feedback != nil {
			return errConflictingFeedback
		}
		lo.feedbackStep = step
		return nil
	}
}

func StopIf(fn StopFunc) LoopOptionFn {
	return func(lo *loopOptions) error {
		lo.stopIf = fn
		return nil
	}
}

// CallWithInputOnlyOnce applies the feedback rule once per round, to the round's last output.
func CallWithInputOnlyOnce() LoopOptionFn {
	return func(lo *loopOptions) error {
		lo.callWithInputOnlyOnce = true
		return nil
	}
}

// CascadeWhenFinished holds back all outputs until the loop stops.
func CascadeWhenFinished() LoopOptionFn {
	return func(lo *loopOptions) error {
		lo.cascadeWhenFinished = true
		return nil
	}
}

func KeepLoopingWithoutOutput() LoopOptionFn {
	return func(lo *loopOptions) error {
		lo.keepLoopingWithoutOutput = true
		return nil
	}
}

func LoopUniqueOutputs(key ...string) LoopOptionFn {
	return func(lo *loopOptions) error {
		switch {
		case len(key) == 0:
			lo.uniqueness = UniqueWholeValue
		case len(key) == 1 && key[0] != "":
			lo.uniqueness = UniqueByKey(key[0])
		default:
			return errInvalidUniqueKey
		}
		return nil
	}
}

func LoopDontCascade() LoopOptionFn {
	return func(lo *loopOptions) error {
		lo.noCascade = true
		return nil
	}
}

// Loop re-invokes its step with an input derived from the previous round's outputs.
type Loop struct {
	opts   *loopOptions
	step   Step
	logger Logger
	dedup  dedupFilter
}

func NewLoop(step Step, optFns ...LoopOptionFn) (*Loop, error) {
	if step == nil {
		return nil, errNilStep
	}

	lo := &loopOptions{
		name:          "loop",
		maxIterations: DefaultMaxIterations,
	}
	for _, optFn := range optFns {
		if err := optFn(lo); err != nil {
			return nil, err
		}
	}

	return &Loop{
		opts:   lo,
		step:   step,
		logger: NewNopLogger(),
		dedup:  dedupFilter{mode: lo.uniqueness},
	}, nil
}

func (l *Loop) Name() string {
	return l.opts.name
}

func (l *Loop) Cascades() bool {
	return !l.opts.noCascade
}

func (l *Loop) MaxIterations() int {
	return l.opts.maxIterations
}

func (l *Loop) SetLogger(logger Logger) {
	l.logger = logger
	l.step.SetLogger(logger)
	if l.opts.feedbackStep != nil {
		l.opts.feedbackStep.SetLogger(logger)
	}
}

func (l *Loop) SetLoader(loader Loader) {
	if lc, ok := l.step.(LoaderConsumer); ok {
		lc.SetLoader(loader)
	}
	if lc, ok := l.opts.feedbackStep.(LoaderConsumer); ok {
		lc.SetLoader(loader)
	}
}

func (l *Loop) ResetAfterRun() {
	l.dedup.reset()
	l.step.ResetAfterRun()
	if l.opts.feedbackStep != nil {
		l.opts.feedbackStep.ResetAfterRun()
	}
}

func (l *Loop) InvokeStep(ctx context.Context, input Input) iter.Seq2[*Output, error] {
	return func(yield func(*Output, error) bool) {
		var deferred []*Output
		emit := func(out *Output) bool {
			if !l.dedup.allow(out) {
				return true
			}
			if l.opts.cascadeWhenFinished {
				deferred = append(deferred, out)
				return true
			}
			return yield(out, nil)
		}

		err := l.iterate(ctx, input, emit)
		if err != nil {
			yield(nil, err)
			return
		}

		for _, out := range deferred {
			if !yield(out, nil) {
				return
			}
		}
	}
}

// loopStopped signals that the consumer stopped pulling.
type loopStopped struct{}

func (loopStopped) Error() string { return "loop consumer stopped" }

// iterate runs the rounds. It returns nil when the loop ends normally or the consumer stops,
// and the child's error otherwise.
func (l *Loop) iterate(ctx context.Context, input Input, emit func(*Output) bool) error {
	current := input
	for round := 0; round < l.opts.maxIterations; round++ {
		next, cont, err := l.round(ctx, current, round, emit)
		if err != nil {
			if _, ok := err.(loopStopped); ok {
				return nil
			}
			return err
		}
		if !cont {
			return nil
		}
		current = next
	}

	l.logger.Info("Loop reached max iterations", LogContext{"loop": l.opts.name, "maxIterations": l.opts.maxIterations})

	return nil
}

// round runs one invocation of the child and reports the next input and whether to go on.
func (l *Loop) round(ctx context.Context, current Input, round int, emit func(*Output) bool) (Input, bool, error) {
	var (
		last      *Output
		next      Input
		hasNext   bool
		hadOutput bool
	)

	for out, err := range l.step.InvokeStep(ctx, current) {
		if err != nil {
			return Input{}, false, err
		}

		if l.opts.stopIf != nil && l.opts.stopIf(current.Value, out) {
			l.logger.Debug("Loop stop condition met", LogContext{"loop": l.opts.name, "round": round})
			return Input{}, false, nil
		}

		hadOutput = true
		last = out
		if !emit(out) {
			return Input{}, false, loopStopped{}
		}

		if !l.opts.callWithInputOnlyOnce {
			candidate, ok, err := l.nextInput(ctx, current, out)
			if err != nil {
				return Input{}, false, err
			}
			next, hasNext = candidate, ok
		}
	}

	switch {
	case hadOutput && l.opts.callWithInputOnlyOnce:
		candidate, ok, err := l.nextInput(ctx, current, last)
		if err != nil {
			return Input{}, false, err
		}
		next, hasNext = candidate, ok
	case !hadOutput && l.opts.keepLoopingWithoutOutput:
		candidate, ok, err := l.nextInput(ctx, current, nil)
		if err != nil {
			return Input{}, false, err
		}
		next, hasNext = candidate, ok
	case !hadOutput:
		return Input{}, false, nil
	}

	return next, hasNext, nil
}

// nextInput applies the feedback rule. The default rule turns the output into the next input.
func (l *Loop) nextInput(ctx context.Context, current Input, out *Output) (Input, bool, error) {
	result := current.Result
	if out != nil {
		result = out.Result
	}

	switch {
	case l.opts.feedback != nil:
		value, ok := l.opts.feedback(current.Value, out)
		if !ok {
			return Input{}, false, nil
		}
		return Input{Value: value, Result: result}, true, nil
	case l.opts.feedbackStep != nil:
		if out == nil {
			return Input{}, false, nil
		}
		for fed, err := range l.opts.feedbackStep.InvokeStep(ctx, out.ToInput()) {
			if err != nil {
				return Input{}, false, err
			}
			return fed.ToInput(), true, nil
		}
		return Input{}, false, nil
	default:
		if out == nil {
			return Input{}, false, nil
		}
		return out.ToInput(), true, nil
	}
}
