package cascade

type Option interface {
	apply(*Crawler) error
}

type optionFunc func(*Crawler) error

func (f optionFunc) apply(c *Crawler) error {
	return f(c)
}

// Name sets the crawler name used in logs and by stores.
func Name(name string) Option {
	return optionFunc(func(c *Crawler) error {
		c.Name = name
		return nil
	})
}

// UseLogger sets the logger injected into every step and the store.
func UseLogger(logger Logger) Option {
	return optionFunc(func(c *Crawler) error {
		if logger == nil {
			return errNilLogger
		}
		c.logger = logger
		return nil
	})
}

// UseLoader sets the loader handed to steps that load documents.
func UseLoader(loader Loader) Option {
	return optionFunc(func(c *Crawler) error {
		c.loader = loader
		return nil
	})
}

func UseStore(store Store) Option {
	return optionFunc(func(c *Crawler) error {
		c.store = store
		return nil
	})
}

// OutputHook is called for every output a top level step yields, before it cascades.
type OutputHook func(stepIndex int, step Step, output *Output)

func WithOutputHook(hook OutputHook) Option {
	return optionFunc(func(c *Crawler) error {
		c.outputHook = hook
		return nil
	})
}

// MonitorMemoryUsage logs the heap size after every output and warns once it exceeds
// thresholdBytes. A zero threshold only logs.
func MonitorMemoryUsage(thresholdBytes uint64) Option {
	return optionFunc(func(c *Crawler) error {
		c.monitorMemory = true
		c.memoryThreshold = thresholdBytes
		return nil
	})
}
