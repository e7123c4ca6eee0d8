package cascade

import (
	"context"
	"fmt"
	"iter"
	"runtime"

	"github.com/google/uuid"
)

// Crawler feeds seed inputs through a pipeline of steps and hands every finished result to
// the caller and, if set, to a store.
//
// The pipeline is walked depth first: the first output of a step travels through the whole
// rest of the pipeline, store included, before the step is asked for its next output.
type Crawler struct {
	ID   string
	Name string

	steps  []Step
	seeds  []any
	logger Logger
	loader Loader
	store  Store

	outputHook      OutputHook
	monitorMemory   bool
	memoryThreshold uint64
	memoryWarned    bool
}

func New(opts ...Option) (*Crawler, error) {
	c := &Crawler{
		ID:   uuid.NewString(),
		Name: "crawler",
	}

	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}

	if c.logger == nil {
		logger, err := NewLogger(WithLoggerID(c.ID), WithLoggerName(c.Name))
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
		c.logger = logger
	}
	c.injectStoreLogger()

	return c, nil
}

// Input adds a seed for the next run.
func (c *Crawler) Input(value any) *Crawler {
	c.seeds = append(c.seeds, value)
	return c
}

func (c *Crawler) Inputs(values ...any) *Crawler {
	c.seeds = append(c.seeds, values...)
	return c
}

// AddStep appends step to the pipeline and injects the crawler's logger and loader.
func (c *Crawler) AddStep(step Step) error {
	if step == nil {
		return errNilStep
	}

	step.SetLogger(c.logger)
	if lc, ok := step.(LoaderConsumer); ok && c.loader != nil {
		lc.SetLoader(c.loader)
	}
	c.steps = append(c.steps, step)

	return nil
}

func (c *Crawler) SetStore(store Store) {
	c.store = store
	c.injectStoreLogger()
}

func (c *Crawler) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

func (c *Crawler) Logger() Logger {
	return c.logger
}

func (c *Crawler) injectStoreLogger() {
	if ls, ok := c.store.(interface{ SetLogger(Logger) }); ok {
		ls.SetLogger(c.logger)
	}
}

// Run returns the lazy sequence of finished results. Nothing happens until it is ranged over,
// and breaking out of the loop stops the crawl. A yielded error ends the run.
//
// When the run ends, for whatever reason, the seeds are cleared and every step forgets its
// per-run state, so the crawler can be seeded and run again.
func (c *Crawler) Run(ctx context.Context) iter.Seq2[*Result, error] {
	return func(yield func(*Result, error) bool) {
		defer c.resetAfterRun()

		if len(c.seeds) == 0 {
			c.logger.Warn("No inputs to crawl", LogContext{"crawler": c.Name})
			return
		}

		c.logger.Info("Starting crawl", LogContext{"crawler": c.Name, "id": c.ID, "inputs": len(c.seeds), "steps": len(c.steps)})

		for _, seed := range c.seeds {
			if !c.process(ctx, Input{Value: seed}, 0, yield) {
				return
			}
		}

		c.logger.Info("Finished crawl", LogContext{"crawler": c.Name, "id": c.ID})
	}
}

// RunAndTraverse drains Run for callers that only need the store's side effects.
func (c *Crawler) RunAndTraverse(ctx context.Context) error {
	for _, err := range c.Run(ctx) {
		if err != nil {
			return err
		}
	}
	return nil
}

// Collect drains Run into a Results slice.
func (c *Crawler) Collect(ctx context.Context) (Results, error) {
	var results Results
	for result, err := range c.Run(ctx) {
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// process hands input to stage i and recurses for every cascading output. It returns false
// once the run has to stop.
func (c *Crawler) process(ctx context.Context, input Input, i int, yield func(*Result, error) bool) bool {
	if i == len(c.steps) {
		return c.dispatchFinished(ctx, input, yield)
	}

	step := c.steps[i]
	for out, err := range step.InvokeStep(ctx, input) {
		if err != nil {
			c.logger.Error("Step failed", LogContext{"step": step.Name(), "err": err.Error()})
			yield(nil, err)
			return false
		}

		if c.outputHook != nil {
			c.outputHook(i, step, out)
		}
		if c.monitorMemory {
			c.logMemoryUsage()
		}

		if !step.Cascades() {
			continue
		}
		if !c.process(ctx, out.ToInput(), i+1, yield) {
			return false
		}
	}

	return true
}

func (c *Crawler) dispatchFinished(ctx context.Context, input Input, yield func(*Result, error) bool) bool {
	result := input.Result
	if result == nil {
		result = resultFromValue(input.Value)
	}

	if c.store != nil {
		if err := c.store.Store(ctx, result); err != nil {
			c.logger.Error("Failed to store result", LogContext{"crawler": c.Name, "err": err.Error()})
			yield(nil, fmt.Errorf("store result: %w", err))
			return false
		}
	}

	return yield(result, nil)
}

// resultFromValue builds a result for a value that reached the end without one.
func resultFromValue(value any) *Result {
	r := NewResult()
	if m, ok := value.(map[string]any); ok {
		for _, k := range sortedKeys(m) {
			r.Set(k, m[k])
		}
		return r
	}
	return r.Set("", value)
}

func (c *Crawler) logMemoryUsage() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	c.logger.Debug("Memory usage", LogContext{"heapAlloc": stats.HeapAlloc})
	if c.memoryThreshold > 0 && stats.HeapAlloc > c.memoryThreshold && !c.memoryWarned {
		c.memoryWarned = true
		c.logger.Warn("Memory usage above threshold", LogContext{"heapAlloc": stats.HeapAlloc, "threshold": c.memoryThreshold})
	}
}

func (c *Crawler) resetAfterRun() {
	c.seeds = nil
	c.memoryWarned = false
	for _, step := range c.steps {
		step.ResetAfterRun()
	}
}
