package main

import (
	"fmt"
	"io"

	"github.com/ShroXd/cascade"
	"github.com/ShroXd/cascade/internal/config"
	"github.com/ShroXd/cascade/pkg/steps"
	"github.com/ShroXd/cascade/pkg/store"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildCrawler turns a crawl file into a seeded crawler. The returned closer releases the store.
func buildCrawler(f *config.File, logger cascade.Logger) (*cascade.Crawler, io.Closer, error) {
	loader, err := buildLoader(f.HTTP, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build loader: %w", err)
	}

	sink, closer, err := buildStore(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	opts := []cascade.Option{
		cascade.Name(f.Name),
		cascade.UseLogger(logger),
		cascade.UseLoader(loader),
		cascade.UseStore(sink),
	}
	if f.MemoryThreshold > 0 {
		opts = append(opts, cascade.MonitorMemoryUsage(f.MemoryThreshold))
	}

	c, err := cascade.New(opts...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	for i, sc := range f.Steps {
		step, err := buildStep(sc)
		if err != nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		if err := c.AddStep(step); err != nil {
			_ = closer.Close()
			return nil, nil, err
		}
	}

	for _, seed := range f.Seeds {
		c.Input(seed)
	}

	return c, closer, nil
}

func buildLoader(hc config.HTTPConfig, logger cascade.Logger) (*cascade.HTTPLoader, error) {
	opts := []cascade.LoaderOptionFn{
		cascade.WithTimeout(hc.Timeout),
		cascade.WithLoaderLogger(logger),
	}
	if hc.BaseURL != "" {
		opts = append(opts, cascade.WithBaseURL(hc.BaseURL))
	}
	if hc.UserAgent != "" {
		opts = append(opts, cascade.WithUserAgent(hc.UserAgent))
	}
	if len(hc.Headers) > 0 {
		opts = append(opts, cascade.WithHeaders(hc.Headers))
	}
	if hc.MaxAttempts > 0 {
		opts = append(opts, cascade.WithBackoff(cascade.WithMaxAttempt(hc.MaxAttempts)))
	}
	if r := hc.Rate; r != nil {
		bucket, err := cascade.NewBucket(nil, r.Capacity, r.Interval, r.Quantum)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cascade.WithRateLimit(bucket))
	}

	return cascade.NewHTTPLoader(opts...)
}

func stepOptions(sc config.StepConfig) []cascade.StepOptionFn {
	var opts []cascade.StepOptionFn
	if sc.Name != "" {
		opts = append(opts, cascade.WithName(sc.Name))
	}
	switch {
	case sc.ResultKey != "":
		opts = append(opts, cascade.WithResultKey(sc.ResultKey))
	case sc.AddAll:
		opts = append(opts, cascade.AddAllToResult())
	case len(sc.AddKeys) > 0:
		opts = append(opts, cascade.AddKeysToResult(sc.AddKeys...))
	}
	if sc.InputKey != "" {
		opts = append(opts, cascade.UseInputKey(sc.InputKey))
	}
	if sc.Unique {
		opts = append(opts, cascade.UniqueOutputs())
	}
	if sc.DontCascade {
		opts = append(opts, cascade.DontCascade())
	}
	return opts
}

func buildStep(sc config.StepConfig) (cascade.Step, error) {
	opts := stepOptions(sc)

	switch sc.Type {
	case config.StepHTTP:
		step, err := steps.HTTP(opts...)
		if err != nil {
			return nil, err
		}
		if sc.Method != "" {
			step.Method(sc.Method)
		}
		if sc.StopOnError {
			step.StopOnErrorResponse()
		}
		return step, nil
	case config.StepLinks:
		return steps.Links(sc.Selector, opts...)
	case config.StepExtract:
		return steps.Extract(sc.Fields, opts...)
	case config.StepExtractEach:
		return steps.ExtractEach(sc.Container, sc.Fields, opts...)
	case config.StepFeed:
		return steps.FeedLinks(opts...)
	case config.StepValues:
		return steps.Values(sc.Values, opts...)
	case config.StepPaginate:
		return buildPaginate(sc)
	case config.StepParallel, config.StepSequential:
		return buildGroup(sc)
	default:
		return nil, fmt.Errorf("%w %q", config.ErrUnknownStepType, sc.Type)
	}
}

// buildPaginate applies name and cascading to the loop, the rest to the page loading step.
func buildPaginate(sc config.StepConfig) (cascade.Step, error) {
	inner := sc
	inner.Name, inner.DontCascade = "", false
	load, err := steps.HTTP(stepOptions(inner)...)
	if err != nil {
		return nil, err
	}
	if sc.Method != "" {
		load.Method(sc.Method)
	}

	var pageOpts []steps.PaginateOptionFn
	if sc.MaxPages > 0 {
		pageOpts = append(pageOpts, steps.MaxPages(sc.MaxPages))
	}
	if sc.Name != "" {
		pageOpts = append(pageOpts, steps.WithLoopOptions(cascade.LoopName(sc.Name)))
	}
	if sc.DontCascade {
		pageOpts = append(pageOpts, steps.WithLoopOptions(cascade.LoopDontCascade()))
	}

	return steps.Paginate(sc.Selector, load, pageOpts...)
}

func buildGroup(sc config.StepConfig) (cascade.Step, error) {
	children := make([]cascade.Step, 0, len(sc.Steps))
	for i, child := range sc.Steps {
		step, err := buildStep(child)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		children = append(children, step)
	}

	var opts []cascade.GroupOptionFn
	if sc.Name != "" {
		opts = append(opts, cascade.GroupName(sc.Name))
	}
	if sc.DontCascade {
		opts = append(opts, cascade.GroupDontCascade())
	}

	if sc.Type == config.StepSequential {
		return cascade.NewSequentialGroup(children, opts...)
	}
	return cascade.NewParallelGroup(children, opts...)
}

func buildStore(f *config.File) (cascade.Store, io.Closer, error) {
	switch f.Store.Type {
	case config.StoreMemory:
		return store.NewMemoryStore(), nopCloser{}, nil
	case config.StoreJSONL:
		s, err := store.OpenJSONLinesFile(f.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreSQLite:
		opts := store.DefaultOptions()
		opts.Crawler = f.Name
		s, err := store.Open(f.Store.Dir, opts)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w %q", config.ErrUnknownStoreType, f.Store.Type)
	}
}
