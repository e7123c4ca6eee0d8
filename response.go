package cascade

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Response is a loaded document.
type Response struct {
	Request    *Request
	StatusCode int
	Headers    http.Header
	Body       []byte

	document *goquery.Document
}

func (resp *Response) IsSuccess() bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (resp *Response) ContentType() string {
	return resp.Headers.Get("Content-Type")
}

// URL returns the address the response was loaded from.
func (resp *Response) URL() string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.String()
}

// Document parses the body as HTML, converting it to UTF-8 first. The document is cached.
func (resp *Response) Document() (*goquery.Document, error) {
	if resp.document != nil {
		return resp.document, nil
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType())
	if err != nil {
		return nil, fmt.Errorf("convert response body of %s: %w", resp.URL(), err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse response body of %s: %w", resp.URL(), err)
	}
	if resp.Request != nil {
		doc.Url = resp.Request.URL
	}

	resp.document = doc
	return doc, nil
}

// MarshalJSON keeps responses storable when a step puts them into a result.
func (resp *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		URL    string `json:"url"`
		Status int    `json:"status"`
	}{resp.URL(), resp.StatusCode})
}
