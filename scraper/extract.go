package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rewrite replaces the first match of Pattern with Replace. Rewrites that do
// not match leave the URL unchanged.
type Rewrite struct {
	Pattern *regexp.Regexp
	Replace string
}

// NewRewrite compiles pattern into a Rewrite. It panics on a bad pattern.
func NewRewrite(pattern, replace string) Rewrite {
	return Rewrite{Pattern: regexp.MustCompile(pattern), Replace: replace}
}

// Apply rewrites s.
func (rw Rewrite) Apply(s string) string {
	loc := rw.Pattern.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + rw.Replace + s[loc[1]:]
}

// Rule is one named extraction strategy: which nodes to read, which
// attribute carries the URL, which URLs to keep and how to upscale them.
type Rule struct {
	Name     string
	Selector string
	// Attrs are tried in order; the first non-empty value is used.
	Attrs []string
	// Capture, if set, extracts submatch 1 from the attribute value.
	Capture *regexp.Regexp
	// AbsoluteOnly drops values that are not already http(s) URLs instead
	// of resolving them against the page.
	AbsoluteOnly bool
	// Require lists substrings that must all be present.
	Require []string
	// Exclude lists substrings of which none may be present.
	Exclude []string
	// Rewrites are applied in order to every kept URL.
	Rewrites []Rewrite
}

// Extract returns the URLs the rule yields on doc, in document order.
// Relative URLs are resolved against base.
func (r Rule) Extract(doc *goquery.Document, base *url.URL) []string {
	var out []string
	doc.Find(r.Selector).Each(func(_ int, s *goquery.Selection) {
		raw := r.value(s)
		if raw == "" {
			return
		}
		if r.AbsoluteOnly && !strings.HasPrefix(strings.ToLower(raw), "http") {
			return
		}
		u, ok := NormaliseURL(raw, base)
		if !ok || !r.keep(u) {
			return
		}
		for _, rw := range r.Rewrites {
			u = rw.Apply(u)
		}
		out = append(out, u)
	})
	return out
}

func (r Rule) value(s *goquery.Selection) string {
	for _, attr := range r.Attrs {
		v := strings.TrimSpace(s.AttrOr(attr, ""))
		if v == "" {
			continue
		}
		if r.Capture != nil {
			m := r.Capture.FindStringSubmatch(v)
			if len(m) < 2 {
				continue
			}
			v = m[1]
		}
		return v
	}
	return ""
}

func (r Rule) keep(u string) bool {
	for _, sub := range r.Require {
		if !strings.Contains(u, sub) {
			return false
		}
	}
	lower := strings.ToLower(u)
	for _, sub := range r.Exclude {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return false
		}
	}
	return true
}

// ExtractHTML parses html and runs every rule in order, concatenating their
// results. Duplicates are kept; callers dedupe.
func ExtractHTML(html, baseURL string, rules []Rule) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	return ExtractDocument(doc, baseURL, rules)
}

// ExtractDocument is ExtractHTML for an already parsed document.
func ExtractDocument(doc *goquery.Document, baseURL string, rules []Rule) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("extract: base url %q: %w", baseURL, err)
	}
	var out []string
	for _, r := range rules {
		out = append(out, r.Extract(doc, base)...)
	}
	return out, nil
}

// Document snapshots the page's current HTML into a goquery document.
func Document(ctx context.Context, page Page) (*goquery.Document, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	return doc, nil
}
