// Package google discovers images through Google Image search.
package google

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"itinerary-scraper/models"
	"itinerary-scraper/scraper"
)

// Profile is the current Google Images extraction contract. The three rules
// mirror the lazy-loaded thumbnail, the inline gstatic thumbnail and the
// upscaled gstatic rendition, in that order.
var Profile = scraper.Profile{
	Version:       "2024-06",
	SearchURL:     "https://www.google.com/search?q=%s&tbm=isch&tbs=isz:l",
	ReadySelector: `img[data-src]`,
	Settle:        time.Second,
	Rules: []scraper.Rule{
		{
			Name:         "lazy-thumbnails",
			Selector:     `img[data-src]`,
			Attrs:        []string{"data-src"},
			AbsoluteOnly: true,
		},
		{
			Name:     "gstatic-thumbnails",
			Selector: `img[src*="gstatic.com"]`,
			Attrs:    []string{"src"},
		},
		{
			Name:     "gstatic-upscaled",
			Selector: `img`,
			Attrs:    []string{"src", "data-src"},
			Require:  []string{"gstatic.com", "w="},
			Rewrites: []scraper.Rewrite{
				scraper.NewRewrite(`w=\d+`, "w=800"),
				scraper.NewRewrite(`h=\d+`, "h=600"),
			},
		},
	},
}

// QuerySuffix biases results toward venue photos.
const QuerySuffix = "restaurant food interior exterior"

const (
	scrollStep     = 100
	scrollLimit    = 3000
	scrollInterval = 200 * time.Millisecond
)

// Adapter implements scraper.SourceAdapter for Google Images.
type Adapter struct {
	Profile scraper.Profile
	Options scraper.AdapterOptions
}

// New returns an Adapter using the current Profile.
func New(opts scraper.AdapterOptions) *Adapter {
	return &Adapter{Profile: Profile, Options: opts}
}

func (a *Adapter) Source() models.SourceID { return models.SourceGoogle }

func (a *Adapter) Collect(ctx context.Context, page scraper.Page, target models.ScrapeTarget) ([]string, error) {
	query := target.Query() + " " + QuerySuffix
	searchURL := fmt.Sprintf(a.Profile.SearchURL, url.QueryEscape(query))
	a.Options.Logger.Info("[google] Searching %q", query)

	if err := scraper.LoadAndWait(ctx, page, searchURL, a.Profile.ReadySelector, a.Options); err != nil {
		return nil, err
	}
	if err := page.Scroll(ctx, scrollStep, scrollLimit, scrollInterval); err != nil {
		return nil, err
	}
	if err := page.Settle(ctx, a.Profile.Settle); err != nil {
		return nil, err
	}

	doc, err := scraper.Document(ctx, page)
	if err != nil {
		return nil, err
	}
	return scraper.ExtractDocument(doc, searchURL, a.Profile.Rules)
}
