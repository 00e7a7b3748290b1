// Package googlemaps discovers photos from a business's Google Maps listing.
package googlemaps

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"itinerary-scraper/models"
	"itinerary-scraper/scraper"
)

// Profile is the current Google Maps extraction contract.
var Profile = scraper.Profile{
	Version:       "2024-06",
	SearchURL:     "https://www.google.com/maps/search/%s",
	ReadySelector: `[data-value="Photos"]`,
	Settle:        3 * time.Second,
	Rules: []scraper.Rule{
		{
			Name:     "listing-photos",
			Selector: `img[src*="maps.googleapis.com"]`,
			Attrs:    []string{"src"},
			Require:  []string{"maps.googleapis.com"},
		},
	},
}

const photosTabSelector = `[data-value="Photos"]`

// Adapter implements scraper.SourceAdapter for Google Maps.
type Adapter struct {
	Profile scraper.Profile
	Options scraper.AdapterOptions
}

// New returns an Adapter using the current Profile.
func New(opts scraper.AdapterOptions) *Adapter {
	return &Adapter{Profile: Profile, Options: opts}
}

func (a *Adapter) Source() models.SourceID { return models.SourceGoogleMaps }

func (a *Adapter) Collect(ctx context.Context, page scraper.Page, target models.ScrapeTarget) ([]string, error) {
	searchURL := fmt.Sprintf(a.Profile.SearchURL, url.PathEscape(target.Query()))
	a.Options.Logger.Info("[googlemaps] Searching %q", target.Query())

	if err := scraper.LoadAndWait(ctx, page, searchURL, a.Profile.ReadySelector, a.Options); err != nil {
		return nil, err
	}
	if err := page.Click(ctx, photosTabSelector); err != nil {
		return nil, err
	}
	if err := page.Settle(ctx, a.Profile.Settle); err != nil {
		return nil, err
	}

	current, err := page.URL(ctx)
	if err != nil || current == "" {
		current = searchURL
	}
	doc, err := scraper.Document(ctx, page)
	if err != nil {
		return nil, err
	}
	return scraper.ExtractDocument(doc, current, a.Profile.Rules)
}
