// Package config describes crawls as YAML files for the cascade command.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Step types understood by the command.
const (
	StepHTTP        = "http"
	StepLinks       = "links"
	StepExtract     = "extract"
	StepExtractEach = "extract_each"
	StepFeed        = "feed"
	StepPaginate    = "paginate"
	StepValues      = "values"
	StepParallel    = "parallel"
	StepSequential  = "sequential"
)

// Store types understood by the command.
const (
	StoreMemory = "memory"
	StoreJSONL  = "jsonl"
	StoreSQLite = "sqlite"
)

const (
	DefaultName      = "crawler"
	DefaultLogLevel  = "info"
	DefaultTimeout   = 30 * time.Second
	DefaultStoreType = StoreJSONL
)

// ErrConfigNotFound is returned when the crawl file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

var (
	ErrNoSeeds            = errors.New("no seeds: a crawl needs at least one input")
	ErrNoSteps            = errors.New("no steps: a crawl needs at least one step")
	ErrInvalidTimeout     = errors.New("invalid timeout: must be non-negative")
	ErrUnknownStepType    = errors.New("unknown step type")
	ErrMissingSelector    = errors.New("missing selector")
	ErrMissingFields      = errors.New("missing fields")
	ErrEmptyGroup         = errors.New("group without steps")
	ErrConflictingResult  = errors.New("result_key, add_all and add_keys are mutually exclusive")
	ErrUnknownStoreType   = errors.New("unknown store type")
	ErrMissingStoreTarget = errors.New("missing store path or dir")
	ErrInvalidRate        = errors.New("invalid rate: capacity and interval must be positive")
)

// File is a complete crawl definition.
type File struct {
	Name  string       `yaml:"name"`
	Seeds []string     `yaml:"seeds"`
	Log   LogConfig    `yaml:"log"`
	HTTP  HTTPConfig   `yaml:"http"`
	Steps []StepConfig `yaml:"steps"`
	Store StoreConfig  `yaml:"store"`

	// MemoryThreshold enables memory monitoring with a warning above this many bytes.
	MemoryThreshold uint64 `yaml:"memory_threshold"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type HTTPConfig struct {
	BaseURL     string            `yaml:"base_url"`
	Timeout     time.Duration     `yaml:"timeout"`
	UserAgent   string            `yaml:"user_agent"`
	Headers     map[string]string `yaml:"headers"`
	MaxAttempts uint8             `yaml:"max_attempts"`
	Rate        *RateConfig       `yaml:"rate"`
}

// RateConfig is a token bucket: Quantum tokens are added every Interval up to Capacity.
type RateConfig struct {
	Capacity int64         `yaml:"capacity"`
	Interval time.Duration `yaml:"interval"`
	Quantum  int64         `yaml:"quantum"`
}

// StepConfig describes one step. Which fields matter depends on Type.
type StepConfig struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`

	Selector    string            `yaml:"selector"`
	Container   string            `yaml:"container"`
	Fields      map[string]string `yaml:"fields"`
	Values      []any             `yaml:"values"`
	Method      string            `yaml:"method"`
	StopOnError bool              `yaml:"stop_on_error"`
	MaxPages    int               `yaml:"max_pages"`

	ResultKey   string   `yaml:"result_key"`
	AddAll      bool     `yaml:"add_all"`
	AddKeys     []string `yaml:"add_keys"`
	InputKey    string   `yaml:"input_key"`
	Unique      bool     `yaml:"unique"`
	DontCascade bool     `yaml:"dont_cascade"`

	Steps []StepConfig `yaml:"steps"`
}

type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
	Dir  string `yaml:"dir"`
}

// LoadConfigFile reads and validates a crawl file, filling in defaults.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied crawl file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse crawl file: %w", err)
	}

	f.setDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) setDefaults() {
	if f.Name == "" {
		f.Name = DefaultName
	}
	if f.Log.Level == "" {
		f.Log.Level = DefaultLogLevel
	}
	if f.HTTP.Timeout == 0 {
		f.HTTP.Timeout = DefaultTimeout
	}
	if f.Store.Type == "" {
		f.Store.Type = DefaultStoreType
	}
	if f.HTTP.Rate != nil && f.HTTP.Rate.Quantum == 0 {
		f.HTTP.Rate.Quantum = 1
	}
}

// Validate reports every problem of the file at once.
func (f *File) Validate() error {
	var errs []error

	if len(f.Seeds) == 0 {
		errs = append(errs, ErrNoSeeds)
	}
	if len(f.Steps) == 0 {
		errs = append(errs, ErrNoSteps)
	}
	if f.HTTP.Timeout < 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if r := f.HTTP.Rate; r != nil && (r.Capacity <= 0 || r.Interval <= 0 || r.Quantum <= 0) {
		errs = append(errs, ErrInvalidRate)
	}

	for i, s := range f.Steps {
		errs = append(errs, s.validate(fmt.Sprintf("steps[%d]", i))...)
	}

	switch f.Store.Type {
	case StoreMemory:
	case StoreJSONL:
		if f.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store: %w", ErrMissingStoreTarget))
		}
	case StoreSQLite:
		if f.Store.Dir == "" {
			errs = append(errs, fmt.Errorf("store: %w", ErrMissingStoreTarget))
		}
	default:
		errs = append(errs, fmt.Errorf("store: %w %q", ErrUnknownStoreType, f.Store.Type))
	}

	return errors.Join(errs...)
}

func (s StepConfig) validate(path string) []error {
	var errs []error
	fail := func(err error) {
		errs = append(errs, fmt.Errorf("%s: %w", path, err))
	}

	results := 0
	for _, set := range []bool{s.ResultKey != "", s.AddAll, len(s.AddKeys) > 0} {
		if set {
			results++
		}
	}
	if results > 1 {
		fail(ErrConflictingResult)
	}

	switch s.Type {
	case StepHTTP, StepFeed, StepValues, StepLinks:
	case StepPaginate:
		if s.Selector == "" {
			fail(ErrMissingSelector)
		}
	case StepExtract:
		if len(s.Fields) == 0 {
			fail(ErrMissingFields)
		}
	case StepExtractEach:
		if s.Container == "" {
			fail(ErrMissingSelector)
		}
		if len(s.Fields) == 0 {
			fail(ErrMissingFields)
		}
	case StepParallel, StepSequential:
		if len(s.Steps) == 0 {
			fail(ErrEmptyGroup)
		}
		for i, child := range s.Steps {
			errs = append(errs, child.validate(fmt.Sprintf("%s.steps[%d]", path, i))...)
		}
	default:
		fail(fmt.Errorf("%w %q", ErrUnknownStepType, s.Type))
	}

	return errs
}
