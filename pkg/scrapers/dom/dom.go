// Package dom has the selector helpers shared by the HTML storefront scrapers.
// Storefront markup varies between page variants, so lookups take ordered
// fallback lists and the first selector that matches wins.
package dom

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// First returns the first element matched by the earliest selector in the
// list that matches anything. The selection is empty when none match.
func First(s *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel); found.Length() > 0 {
			return found.First()
		}
	}
	return s.Find("__no_match__")
}

// All returns every element matched by the earliest selector in the list that
// matches anything.
func All(s *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return s.Find("__no_match__")
}

// Text returns the trimmed text of the first non-empty match. Text in
// adjacent elements is separated by a space.
func Text(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		var text string
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text = Clean(NodeText(el))
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// NodeText returns the text under s with a space between text nodes, so
// "<del>89.900</del><b>59.900</b>" reads as two amounts.
func NodeText(s *goquery.Selection) string {
	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			parts = append(parts, c.Text())
		case "#comment":
		default:
			parts = append(parts, NodeText(c))
		}
	})
	return strings.Join(parts, " ")
}

// Attr returns the first non-empty attribute value among attrs.
func Attr(s *goquery.Selection, attrs ...string) string {
	for _, a := range attrs {
		if v, ok := s.Attr(a); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Meta returns the content of <meta property=name> or <meta name=name>.
func Meta(doc *goquery.Selection, name string) string {
	sel := doc.Find(`meta[property="` + name + `"], meta[name="` + name + `"]`).First()
	return Attr(sel, "content")
}

// Clean collapses whitespace in scraped text.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Absolute resolves href against base. Fragment-only or empty links give "".
func Absolute(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}
