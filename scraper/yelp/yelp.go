// Package yelp discovers business photos on Yelp: search, open the best
// matching result, open its photo page, read the photo grid.
package yelp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"

	"itinerary-scraper/models"
	"itinerary-scraper/scraper"
)

const baseURL = "https://www.yelp.com/"

// Profile is the current Yelp extraction contract.
var Profile = scraper.Profile{
	Version:       "2024-06",
	SearchURL:     baseURL + "search?find_desc=%s",
	ReadySelector: `[data-testid="serp-ia-card"]`,
	Settle:        3 * time.Second,
	Rules: []scraper.Rule{
		{
			Name:     "photo-grid",
			Selector: `img[src*="s3-media"]`,
			Attrs:    []string{"src"},
			Require:  []string{"s3-media"},
			Exclude:  []string{"placeholder"},
			Rewrites: []scraper.Rewrite{
				scraper.NewRewrite(`&w=\d+`, "&w=800"),
				scraper.NewRewrite(`&h=\d+`, "&h=600"),
			},
		},
	},
}

const (
	resultLinkSelector = `[data-testid="serp-ia-card"] a[href]`
	photosLinkSelector = `a[href*="/biz_photos/"], a[href*="/photos"]`
)

var (
	errNoResults    = errors.New("yelp: no business result on search page")
	errNoPhotosLink = errors.New("yelp: business page has no photos link")
)

// Adapter implements scraper.SourceAdapter for Yelp.
type Adapter struct {
	Profile scraper.Profile
	Options scraper.AdapterOptions
}

// New returns an Adapter using the current Profile.
func New(opts scraper.AdapterOptions) *Adapter {
	return &Adapter{Profile: Profile, Options: opts}
}

func (a *Adapter) Source() models.SourceID { return models.SourceYelp }

func (a *Adapter) Collect(ctx context.Context, page scraper.Page, target models.ScrapeTarget) ([]string, error) {
	log := a.Options.Logger
	searchURL := fmt.Sprintf(a.Profile.SearchURL, url.QueryEscape(target.Query()))
	log.Info("[yelp] Searching %q", target.Query())

	if err := scraper.LoadAndWait(ctx, page, searchURL, a.Profile.ReadySelector, a.Options); err != nil {
		return nil, err
	}

	doc, err := scraper.Document(ctx, page)
	if err != nil {
		return nil, err
	}
	bizURL, name, err := pickResult(doc, searchURL, target.BusinessName)
	if err != nil {
		return nil, err
	}
	log.Debug("[yelp] Opening result %q: %s", name, bizURL)

	if err := scraper.LoadAndWait(ctx, page, bizURL, "", a.Options); err != nil {
		return nil, err
	}
	if err := page.Settle(ctx, a.Profile.Settle); err != nil {
		return nil, err
	}

	doc, err = scraper.Document(ctx, page)
	if err != nil {
		return nil, err
	}
	href, ok := doc.Find(photosLinkSelector).First().Attr("href")
	if !ok {
		return nil, errNoPhotosLink
	}
	photosURL, ok := scraper.NormaliseURL(href, parseBase(bizURL))
	if !ok {
		return nil, fmt.Errorf("yelp: bad photos link %q", href)
	}

	if err := scraper.LoadAndWait(ctx, page, photosURL, "", a.Options); err != nil {
		return nil, err
	}
	if err := page.Settle(ctx, a.Profile.Settle); err != nil {
		return nil, err
	}

	doc, err = scraper.Document(ctx, page)
	if err != nil {
		return nil, err
	}
	return scraper.ExtractDocument(doc, photosURL, a.Profile.Rules)
}

// pickResult chooses the result card whose title is closest to the business
// name. Ties keep the earlier card.
func pickResult(doc *goquery.Document, searchURL, businessName string) (string, string, error) {
	base := parseBase(searchURL)
	want := strings.ToLower(businessName)

	bestURL, bestName, bestDist := "", "", -1
	doc.Find(resultLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, ok := scraper.NormaliseURL(href, base)
		if !ok || !strings.Contains(u, "/biz/") {
			return
		}
		name := strings.TrimSpace(s.Text())
		if name == "" {
			return
		}
		d := levenshtein.ComputeDistance(want, strings.ToLower(name))
		if bestDist < 0 || d < bestDist {
			bestURL, bestName, bestDist = u, name, d
		}
	})
	if bestURL == "" {
		return "", "", errNoResults
	}
	return bestURL, bestName, nil
}

func parseBase(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}
