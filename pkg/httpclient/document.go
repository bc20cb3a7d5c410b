package httpclient

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Page is a fetched HTML document. Pages with 4xx statuses are still parsed,
// since some storefronts render usable content on their error pages.
type Page struct {
	URL        string
	StatusCode int
	Doc        *goquery.Document
}

// Document fetches an HTML page through a colly collector bound to the shared
// client and parses it with goquery.
func (c *Client) Document(ctx context.Context, req Request) (*Page, error) {
	target, err := req.target()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout(req.Timeout))
	defer cancel()

	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(UserAgent),
		colly.ParseHTTPErrorResponse(),
		colly.AllowURLRevisit(),
	)
	collector.SetClient(c.HTTP())

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
		for k, v := range req.Headers {
			r.Headers.Set(k, v)
		}
	})

	page := &Page{URL: target}
	var body []byte
	collector.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.URL = r.Request.URL.String()
		body = r.Body
	})

	if err := collector.Visit(target); err != nil && page.StatusCode == 0 {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	if page.StatusCode >= 500 {
		return nil, &StatusError{URL: target, StatusCode: page.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	page.Doc = doc
	return page, nil
}
