package steps

import (
	"github.com/ShroXd/cascade"
)

type paginateOptions struct {
	maxPages int
	loopOpts []cascade.LoopOptionFn
}

type PaginateOptionFn func(po *paginateOptions) error

// MaxPages bounds the number of pages loaded per start URL.
func MaxPages(n int) PaginateOptionFn {
	return func(po *paginateOptions) error {
		po.maxPages = n
		return nil
	}
}

// WithLoopOptions passes extra options to the underlying loop.
func WithLoopOptions(opts ...cascade.LoopOptionFn) PaginateOptionFn {
	return func(po *paginateOptions) error {
		po.loopOpts = append(po.loopOpts, opts...)
		return nil
	}
}

// Paginate loads a start URL with load, or a plain HTTP step when nil, and keeps following the
// first link matching nextSelector. Every loaded page is yielded as a *cascade.Response.
func Paginate(nextSelector string, load *HTTPStep, optFns ...PaginateOptionFn) (*cascade.Loop, error) {
	po := &paginateOptions{maxPages: cascade.DefaultMaxIterations}
	for _, optFn := range optFns {
		if err := optFn(po); err != nil {
			return nil, err
		}
	}

	if load == nil {
		var err error
		if load, err = HTTP(); err != nil {
			return nil, err
		}
	}

	loopOpts := append([]cascade.LoopOptionFn{
		cascade.LoopName("paginate"),
		cascade.MaxIterations(po.maxPages),
		cascade.WithInput(nextPage(nextSelector)),
	}, po.loopOpts...)

	return cascade.NewLoop(load, loopOpts...)
}

// nextPage follows the first link matching selector in the loaded page.
func nextPage(selector string) cascade.FeedbackFunc {
	return func(_ any, out *cascade.Output) (any, bool) {
		if out == nil {
			return nil, false
		}
		resp, ok := out.Value.(*cascade.Response)
		if !ok {
			return nil, false
		}
		doc, err := resp.Document()
		if err != nil {
			return nil, false
		}

		href, ok := doc.Find(selector).First().Attr("href")
		if !ok {
			return nil, false
		}
		next, ok := absoluteLink(doc.Url, href)
		if !ok || next == resp.URL() {
			return nil, false
		}

		return next, true
	}
}
