package cascade

import (
	"context"
	"net/http"
	"net/url"
)

// Loader loads documents for loading steps. The engine itself never calls it.
type Loader interface {
	// Load returns nil when the document could not be loaded. The failure is logged.
	Load(ctx context.Context, req *Request) *Response
	LoadOrFail(ctx context.Context, req *Request) (*Response, error)
}

type Request struct {
	Method  string
	URL     *url.URL
	Headers http.Header
	Body    []byte
}

// NewRequest builds a request from a raw URL.
func NewRequest(method, rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	return &Request{
		Method:  getOrDefault(method, http.MethodGet),
		URL:     u,
		Headers: make(http.Header),
	}, nil
}

func (req *Request) String() string {
	return req.Method + " " + req.URL.String()
}
