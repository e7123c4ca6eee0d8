package steps

import (
	"bytes"
	"context"
	"fmt"
	"iter"

	"github.com/mmcdole/gofeed"

	"github.com/ShroXd/cascade"
)

type feedTransformer struct{}

// ValidateAndSanitizeInput parses RSS, Atom and JSON feeds out of a response body.
func (feedTransformer) ValidateAndSanitizeInput(value any) (any, error) {
	var body []byte
	switch v := value.(type) {
	case *cascade.Response:
		body = v.Body
	case []byte:
		body = v
	case string:
		body = []byte(v)
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupportedIn, value)
	}

	return gofeed.NewParser().Parse(bytes.NewReader(body))
}

func (feedTransformer) Transform(_ context.Context, value any) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		feed := value.(*gofeed.Feed)
		for _, item := range feed.Items {
			if item.Link == "" {
				continue
			}
			if !yield(item.Link, nil) {
				return
			}
		}
	}
}

// FeedLinks yields the link of every item of a feed document.
func FeedLinks(opts ...cascade.StepOptionFn) (*cascade.BaseStep, error) {
	return cascade.NewStep(feedTransformer{}, withDefaultName("feed links", opts)...)
}
