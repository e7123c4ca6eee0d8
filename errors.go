package cascade

import (
	"errors"
	"fmt"
)

var (
	errInvalidResultKey     = errors.New("invalid result key")
	errInvalidInputKey      = errors.New("invalid input key")
	errInvalidUniqueKey     = errors.New("invalid unique output key")
	errInvalidKeyMapping    = errors.New("invalid result key mapping")
	errInvalidMaxIterations = errors.New("invalid max iterations")
	errInvalidTimeout       = errors.New("invalid timeout")
	errInvalidRateLimit     = errors.New("invalid rate limit")
	errNilStep              = errors.New("step must not be nil")
	errNilTransformer       = errors.New("transformer must not be nil")
	errNilLogger            = errors.New("logger must not be nil")
	errConflictingFeedback  = errors.New("loop accepts either a feedback function or a feedback step")
)

// ErrNotMapInput is wrapped by a ValidationError when a step projects a key out of a non-map input.
var ErrNotMapInput = errors.New("input is not a map")

// ValidationError reports an input rejected at a step boundary. It never aborts a run.
type ValidationError struct {
	Step  string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %s: invalid input %v: %v", e.Step, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MissingKeyError reports a key requested with UseInputKey that the input does not contain.
type MissingKeyError struct {
	Step string
	Key  string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("step %s: input has no key %q", e.Step, e.Key)
}

// StepError wraps a failure of a step's transform. It aborts the run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// LoadError is returned by LoadOrFail when a document could not be loaded.
type LoadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("load %s: unexpected status code %d", e.URL, e.StatusCode)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
