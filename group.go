package cascade

import (
	"context"
	"iter"
)

type GroupOptionFn func(g *group) error

func GroupName(name string) GroupOptionFn {
	return func(g *group) error {
		g.name = name
		return nil
	}
}

// GroupDontCascade keeps the group's outputs from reaching the next pipeline stage.
func GroupDontCascade() GroupOptionFn {
	return func(g *group) error {
		g.noCascade = true
		return nil
	}
}

// group holds what parallel and sequential groups share: children, logger and loader.
type group struct {
	name      string
	noCascade bool
	children  []Step
	logger    Logger
	loader    Loader
}

func newGroup(name string, steps []Step, optFns []GroupOptionFn) (*group, error) {
	g := &group{name: name, logger: NewNopLogger()}
	for _, optFn := range optFns {
		if err := optFn(g); err != nil {
			return nil, err
		}
	}
	for _, step := range steps {
		if err := g.addStep(step); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *group) addStep(step Step) error {
	if step == nil {
		return errNilStep
	}

	step.SetLogger(g.logger)
	if lc, ok := step.(LoaderConsumer); ok && g.loader != nil {
		lc.SetLoader(g.loader)
	}
	g.children = append(g.children, step)

	return nil
}

func (g *group) Name() string {
	return g.name
}

func (g *group) Cascades() bool {
	return !g.noCascade
}

func (g *group) Steps() []Step {
	return append([]Step(nil), g.children...)
}

func (g *group) SetLogger(logger Logger) {
	g.logger = logger
	for _, child := range g.children {
		child.SetLogger(logger)
	}
}

func (g *group) SetLoader(loader Loader) {
	g.loader = loader
	for _, child := range g.children {
		if lc, ok := child.(LoaderConsumer); ok {
			lc.SetLoader(loader)
		}
	}
}

func (g *group) ResetAfterRun() {
	for _, child := range g.children {
		child.ResetAfterRun()
	}
}

// ParallelGroup invokes every child with the same input and concatenates their outputs in
// registration order. A child is drained before the next one starts.
type ParallelGroup struct {
	*group
}

func NewParallelGroup(steps []Step, optFns ...GroupOptionFn) (*ParallelGroup, error) {
	g, err := newGroup("parallel group", steps, optFns)
	if err != nil {
		return nil, err
	}
	return &ParallelGroup{group: g}, nil
}

func (pg *ParallelGroup) AddStep(step Step) error {
	return pg.addStep(step)
}

func (pg *ParallelGroup) InvokeStep(ctx context.Context, input Input) iter.Seq2[*Output, error] {
	return func(yield func(*Output, error) bool) {
		for _, child := range pg.children {
			for out, err := range child.InvokeStep(ctx, input) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !child.Cascades() {
					continue
				}
				if !yield(out, nil) {
					return
				}
			}
		}
	}
}

// SequentialGroup chains its children: the outputs of one child are the inputs of the next.
// Only the outputs of the last child leave the group. An input for which a child yields
// nothing ends its branch.
type SequentialGroup struct {
	*group
}

func NewSequentialGroup(steps []Step, optFns ...GroupOptionFn) (*SequentialGroup, error) {
	g, err := newGroup("sequential group", steps, optFns)
	if err != nil {
		return nil, err
	}
	return &SequentialGroup{group: g}, nil
}

func (sg *SequentialGroup) AddStep(step Step) error {
	return sg.addStep(step)
}

func (sg *SequentialGroup) InvokeStep(ctx context.Context, input Input) iter.Seq2[*Output, error] {
	return func(yield func(*Output, error) bool) {
		if len(sg.children) == 0 {
			return
		}
		sg.chain(ctx, input, 0, yield)
	}
}

// chain walks the children depth first, so no child's full output set is held in memory.
// The outputs reach yield in the same order a breadth-first frontier would produce them.
func (sg *SequentialGroup) chain(ctx context.Context, input Input, idx int, yield func(*Output, error) bool) bool {
	child := sg.children[idx]
	last := idx == len(sg.children)-1

	for out, err := range child.InvokeStep(ctx, input) {
		if err != nil {
			yield(nil, err)
			return false
		}
		if !child.Cascades() {
			continue
		}

		if last {
			if !yield(out, nil) {
				return false
			}
			continue
		}

		if !sg.chain(ctx, out.ToInput(), idx+1, yield) {
			return false
		}
	}

	return true
}
