// Package website collects images from a business's own pages over plain
// HTTP. It does not use the browser session.
package website

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"

	"itinerary-scraper/models"
	"itinerary-scraper/scraper"
	"itinerary-scraper/utils"
)

var (
	skipWords       = []string{"logo", "icon", "button", "arrow"}
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
)

// Rules pulls candidates from <img> tags, lazy-load attributes and inline
// background images.
var Rules = []scraper.Rule{
	{Name: "img-src", Selector: "img[src]", Attrs: []string{"src"}, Exclude: skipWords},
	{Name: "img-data-src", Selector: "[data-src]", Attrs: []string{"data-src"}, Exclude: skipWords},
	{
		Name:     "background-image",
		Selector: `[style*="background-image"]`,
		Attrs:    []string{"style"},
		Capture:  regexp.MustCompile(`(?i)background-image:\s*url\(["']?([^"')\s]+)["']?\)`),
		Exclude:  skipWords,
	},
}

// Adapter implements scraper.SourceAdapter for official business websites.
type Adapter struct {
	Client    *http.Client
	UserAgent string
	Logger    *utils.Logger
}

// New returns an Adapter with a client bounded by timeout.
func New(userAgent string, timeout time.Duration, logger *utils.Logger) *Adapter {
	return &Adapter{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Logger:    logger,
	}
}

func (a *Adapter) Source() models.SourceID { return models.SourceWebsite }

// Collect fetches every page listed on the target. Pages that fail or are
// disallowed by robots.txt are skipped; only a target whose pages all fail
// produces an error.
func (a *Adapter) Collect(ctx context.Context, _ scraper.Page, target models.ScrapeTarget) ([]string, error) {
	if len(target.Pages) == 0 {
		a.Logger.Debug("[website] %q lists no pages, skipping", target.BusinessName)
		return nil, nil
	}

	robots := map[string]*robotstxt.RobotsData{}
	var urls []string
	var failures []string
	for _, page := range target.Pages {
		pageURL, err := url.Parse(page)
		if err != nil || pageURL.Host == "" {
			failures = append(failures, fmt.Sprintf("%s: invalid url", page))
			continue
		}
		if !a.allowed(ctx, robots, pageURL) {
			a.Logger.Warn("[website] robots.txt disallows %s", page)
			failures = append(failures, fmt.Sprintf("%s: disallowed by robots.txt", page))
			continue
		}

		found, err := a.collectPage(ctx, page, target.Keywords)
		if err != nil {
			a.Logger.Warn("[website] %s: %v", page, err)
			failures = append(failures, fmt.Sprintf("%s: %v", page, err))
			continue
		}
		a.Logger.Debug("[website] %s: %d images", page, len(found))
		urls = append(urls, found...)
	}

	if len(failures) == len(target.Pages) {
		return nil, fmt.Errorf("website: all pages failed: %s", strings.Join(failures, "; "))
	}
	return urls, nil
}

func (a *Adapter) collectPage(ctx context.Context, page string, keywords []string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.UserAgent)
	req.Header.Set("Accept", "text/html,*/*")

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	candidates, err := scraper.ExtractDocument(doc, resp.Request.URL.String(), Rules)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, u := range candidates {
		if relevant(u, keywords) {
			out = append(out, u)
		}
	}
	return out, nil
}

// relevant keeps URLs that mention a keyword or look like an image file.
func relevant(u string, keywords []string) bool {
	lower := strings.ToLower(u)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// allowed consults the host's robots.txt, fetched once per host. A missing or
// unreadable robots.txt allows everything.
func (a *Adapter) allowed(ctx context.Context, cache map[string]*robotstxt.RobotsData, u *url.URL) bool {
	key := u.Scheme + "://" + u.Host
	data, ok := cache[key]
	if !ok {
		data = a.fetchRobots(ctx, key)
		cache[key] = data
	}
	if data == nil {
		return true
	}
	return data.TestAgent(u.EscapedPath(), a.UserAgent)
}

func (a *Adapter) fetchRobots(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", a.UserAgent)
	resp, err := a.Client.Do(req)
	if err != nil {
		a.Logger.Debug("[website] robots.txt for %s unavailable: %v", origin, err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		a.Logger.Debug("[website] robots.txt for %s unreadable: %v", origin, err)
		return nil
	}
	return data
}
