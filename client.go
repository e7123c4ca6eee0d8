package cascade

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"
)

const DefaultUserAgent = "cascade/1.0"

type internalClient interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
}

type (
	RequestHook  func(req *Request) error
	ResponseHook func(resp *Response) error
)

type loaderOptions struct {
	baseURL           *url.URL
	header            http.Header
	timeout           time.Duration
	userAgent         string
	preRequestHooks   []RequestHook
	postResponseHooks []ResponseHook
	backoffOpts       []ExponentialBackoffOptionFunc
	bucket            *Bucket
	logger            Logger
	client            internalClient
}

type LoaderOptionFn func(lo *loaderOptions) error

func WithBaseURL(rawURL string) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		lo.baseURL = u
		return nil
	}
}

func WithHeaders(headers map[string]string) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		for k, v := range headers {
			lo.header.Set(k, v)
		}
		return nil
	}
}

func WithTimeout(timeout time.Duration) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		if timeout < 0 {
			return errInvalidTimeout
		}
		lo.timeout = timeout
		return nil
	}
}

func WithUserAgent(ua string) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		lo.userAgent = ua
		return nil
	}
}

func WithPreRequestHooks(hooks ...RequestHook) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		lo.preRequestHooks = append(lo.preRequestHooks, hooks...)
		return nil
	}
}

func WithPostResponseHooks(hooks ...ResponseHook) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		lo.postResponseHooks = append(lo.postResponseHooks, hooks...)
		return nil
	}
}

func WithAuth(config AuthConfig) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		hook, err := config.authHook()
		if err != nil {
			return err
		}
		lo.preRequestHooks = append(lo.preRequestHooks, hook)
		return nil
	}
}

// WithBackoff configures retries of transport errors, 429 and 5xx responses.
func WithBackoff(opts ...ExponentialBackoffOptionFunc) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		if _, err := NewExponentialBackoff(opts...); err != nil {
			return err
		}
		lo.backoffOpts = opts
		return nil
	}
}

// WithRateLimit throttles requests through bucket.
func WithRateLimit(bucket *Bucket) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		lo.bucket = bucket
		return nil
	}
}

func WithLoaderLogger(logger Logger) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		if logger == nil {
			return errNilLogger
		}
		lo.logger = logger
		return nil
	}
}

func withInternalClient(client internalClient) LoaderOptionFn {
	return func(lo *loaderOptions) error {
		lo.client = client
		return nil
	}
}

// HTTPLoader loads documents with fasthttp.
type HTTPLoader struct {
	opts *loaderOptions
}

func NewHTTPLoader(optFns ...LoaderOptionFn) (*HTTPLoader, error) {
	lo := &loaderOptions{
		header:    make(http.Header),
		timeout:   30 * time.Second,
		userAgent: DefaultUserAgent,
		logger:    NewNopLogger(),
	}
	for _, optFn := range optFns {
		if err := optFn(lo); err != nil {
			return nil, err
		}
	}
	if lo.client == nil {
		lo.client = &fasthttp.Client{}
	}

	return &HTTPLoader{opts: lo}, nil
}

func (l *HTTPLoader) SetLogger(logger Logger) {
	l.opts.logger = logger
}

func (l *HTTPLoader) Load(ctx context.Context, req *Request) *Response {
	resp, err := l.LoadOrFail(ctx, req)
	if err != nil {
		l.opts.logger.Error("Failed to load", LogContext{"url": req.URL.String(), "err": err.Error()})
		return nil
	}

	return resp
}

func (l *HTTPLoader) LoadOrFail(ctx context.Context, req *Request) (*Response, error) {
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}
	if l.opts.baseURL != nil {
		req.URL = l.opts.baseURL.ResolveReference(req.URL)
	}

	for _, hook := range l.opts.preRequestHooks {
		if err := hook(req); err != nil {
			return nil, &LoadError{URL: req.URL.String(), Err: err}
		}
	}

	eb, err := NewExponentialBackoff(l.opts.backoffOpts...)
	if err != nil {
		return nil, err
	}

	var resp *Response
	err = Retry(ctx, func() error {
		if l.opts.bucket != nil {
			if err := l.opts.bucket.Wait(ctx); err != nil {
				return Permanent(err)
			}
		}

		l.opts.logger.Info("Sending request", LogContext{"url": req.URL.String(), "method": req.Method})
		r, err := l.execute(req)
		if err != nil {
			l.opts.logger.Warn("Request failed", LogContext{"url": req.URL.String(), "err": err.Error()})
			return err
		}
		if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
			return &LoadError{URL: req.URL.String(), StatusCode: r.StatusCode}
		}

		resp = r
		return nil
	}, eb)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			err = &LoadError{URL: req.URL.String(), Err: err}
		}
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, &LoadError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	for _, hook := range l.opts.postResponseHooks {
		if err := hook(resp); err != nil {
			return nil, &LoadError{URL: req.URL.String(), StatusCode: resp.StatusCode, Err: err}
		}
	}

	return resp, nil
}

func (l *HTTPLoader) execute(req *Request) (*Response, error) {
	freq := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(freq)
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(fresp)

	freq.SetRequestURI(req.URL.String())
	freq.Header.SetMethod(req.Method)
	freq.Header.SetUserAgent(l.opts.userAgent)
	for k, values := range l.opts.header {
		for _, v := range values {
			freq.Header.Add(k, v)
		}
	}
	for k, values := range req.Headers {
		for _, v := range values {
			freq.Header.Set(k, v)
		}
	}
	if len(req.Body) > 0 {
		freq.SetBody(req.Body)
	}
	if l.opts.timeout > 0 {
		freq.SetTimeout(l.opts.timeout)
	}

	if err := l.opts.client.Do(freq, fresp); err != nil {
		return nil, err
	}

	body, err := fresp.BodyUncompressed()
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	fresp.Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})

	return &Response{
		Request:    req,
		StatusCode: fresp.StatusCode(),
		Headers:    headers,
		Body:       append([]byte(nil), body...),
	}, nil
}
