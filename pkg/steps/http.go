package steps

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/ShroXd/cascade"
)

var (
	errNoLoader      = errors.New("no loader set")
	errNotHTTPURL    = errors.New("not an absolute http(s) url")
	errUnsupportedIn = errors.New("unsupported input type")
)

type httpTransformer struct {
	method      string
	stopOnError bool
	loader      cascade.Loader
	logger      cascade.Logger
}

func (h *httpTransformer) SetLoader(loader cascade.Loader) {
	h.loader = loader
}

func (h *httpTransformer) SetLogger(logger cascade.Logger) {
	h.logger = logger
}

// ValidateAndSanitizeInput turns URL strings, *url.URL and *cascade.Request inputs into a fresh
// request.
func (h *httpTransformer) ValidateAndSanitizeInput(value any) (any, error) {
	switch v := value.(type) {
	case string:
		if !cascade.IsHTTPURL(v) {
			return nil, fmt.Errorf("%w: %q", errNotHTTPURL, v)
		}
		return cascade.NewRequest(h.method, v)
	case *url.URL:
		return h.ValidateAndSanitizeInput(v.String())
	case *cascade.Request:
		clone := *v
		clone.Headers = v.Headers.Clone()
		if clone.Headers == nil {
			clone.Headers = make(http.Header)
		}
		return &clone, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupportedIn, value)
	}
}

func (h *httpTransformer) Transform(ctx context.Context, value any) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		if h.loader == nil {
			yield(nil, errNoLoader)
			return
		}

		req := value.(*cascade.Request)
		if h.stopOnError {
			resp, err := h.loader.LoadOrFail(ctx, req)
			if err != nil {
				yield(nil, err)
				return
			}
			yield(resp, nil)
			return
		}

		resp := h.loader.Load(ctx, req)
		if resp == nil {
			if h.logger != nil {
				h.logger.Debug("Nothing loaded", cascade.LogContext{"url": req.URL.String()})
			}
			return
		}
		yield(resp, nil)
	}
}

// HTTPStep loads every input URL with the crawler's loader and yields the *cascade.Response.
type HTTPStep struct {
	*cascade.BaseStep
	tr *httpTransformer
}

// HTTP builds a GET loading step. Failed loads produce no output.
func HTTP(opts ...cascade.StepOptionFn) (*HTTPStep, error) {
	tr := &httpTransformer{method: http.MethodGet}
	base, err := cascade.NewStep(tr, withDefaultName("http", opts)...)
	if err != nil {
		return nil, err
	}
	return &HTTPStep{BaseStep: base, tr: tr}, nil
}

// Method changes the request method used for URL inputs.
func (s *HTTPStep) Method(method string) *HTTPStep {
	s.tr.method = method
	return s
}

// StopOnErrorResponse makes a failed load abort the run.
func (s *HTTPStep) StopOnErrorResponse() *HTTPStep {
	s.tr.stopOnError = true
	return s
}
