package steps

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ShroXd/cascade"
)

// document is the validated input of the HTML steps.
type document struct {
	resp *cascade.Response
	doc  *goquery.Document
}

type htmlInput struct{}

func (htmlInput) ValidateAndSanitizeInput(value any) (any, error) {
	resp, ok := value.(*cascade.Response)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errUnsupportedIn, value)
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	return &document{resp: resp, doc: doc}, nil
}

type linksTransformer struct {
	htmlInput
	selector string
}

func (lt *linksTransformer) Transform(_ context.Context, value any) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		d := value.(*document)
		seen := make(map[string]struct{})

		d.doc.Find(lt.selector).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			href, ok := node.Attr("href")
			if !ok {
				return true
			}
			link, ok := absoluteLink(d.doc.Url, href)
			if !ok {
				return true
			}
			if _, dup := seen[link]; dup {
				return true
			}
			seen[link] = struct{}{}

			return yield(link, nil)
		})
	}
}

// absoluteLink resolves href against base and keeps http(s) links only. Fragments are dropped.
func absoluteLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""

	return u.String(), true
}

// Links yields the absolute URLs of the elements matching selector, each once per document.
func Links(selector string, opts ...cascade.StepOptionFn) (*cascade.BaseStep, error) {
	if selector == "" {
		selector = "a"
	}
	return cascade.NewStep(&linksTransformer{selector: selector}, withDefaultName("links", opts)...)
}

type extractTransformer struct {
	htmlInput
	container string
	fields    map[string]string
}

func (et *extractTransformer) Transform(_ context.Context, value any) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		d := value.(*document)
		if et.container == "" {
			yield(extractFields(d.doc.Selection, et.fields), nil)
			return
		}

		d.doc.Find(et.container).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			return yield(extractFields(node, et.fields), nil)
		})
	}
}

// extractFields reads every field out of sel. A selector may end in "@attr" to read an
// attribute instead of the text. No match gives nil, several matches a []any.
func extractFields(sel *goquery.Selection, fields map[string]string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		selector, attr, _ := strings.Cut(fields[name], "@")

		matches := sel.Find(selector)
		values := make([]any, 0, matches.Length())
		matches.Each(func(_ int, node *goquery.Selection) {
			if attr == "" {
				values = append(values, strings.TrimSpace(node.Text()))
				return
			}
			if v, ok := node.Attr(attr); ok {
				values = append(values, strings.TrimSpace(v))
			}
		})

		switch len(values) {
		case 0:
			out[name] = nil
		case 1:
			out[name] = values[0]
		default:
			out[name] = values
		}
	}
	return out
}

// Extract yields one map per document with a value per field.
func Extract(fields map[string]string, opts ...cascade.StepOptionFn) (*cascade.BaseStep, error) {
	return cascade.NewStep(&extractTransformer{fields: fields}, withDefaultName("extract", opts)...)
}

// ExtractEach yields one map per element matching container, with fields selected inside it.
func ExtractEach(container string, fields map[string]string, opts ...cascade.StepOptionFn) (*cascade.BaseStep, error) {
	return cascade.NewStep(&extractTransformer{container: container, fields: fields}, withDefaultName("extract each", opts)...)
}
