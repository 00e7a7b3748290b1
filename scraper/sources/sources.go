// Package sources maps configured source names to ready-to-run Discoverers.
package sources

import (
	"fmt"
	"strings"
	"time"

	"itinerary-scraper/config"
	"itinerary-scraper/models"
	"itinerary-scraper/scraper"
	"itinerary-scraper/scraper/google"
	"itinerary-scraper/scraper/googlemaps"
	"itinerary-scraper/scraper/website"
	"itinerary-scraper/scraper/yelp"
	"itinerary-scraper/utils"
)

const retryBaseDelay = 2 * time.Second

// Build returns one Discoverer per name, in the given order. Unknown or
// repeated names are an error.
func Build(names []string, cfg *config.Config, logger *utils.Logger) ([]*scraper.Discoverer, error) {
	opts := scraper.AdapterOptions{
		ReadyTimeout: cfg.ReadyTimeout,
		Retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries + 1,
			BaseDelay:   retryBaseDelay,
			Logger:      logger,
		},
		Logger: logger,
	}

	seen := make(map[models.SourceID]bool)
	out := make([]*scraper.Discoverer, 0, len(names))
	for _, name := range names {
		id := models.SourceID(strings.ToLower(strings.TrimSpace(name)))
		if id == "" {
			continue
		}
		if seen[id] {
			return nil, fmt.Errorf("sources: %q listed twice", id)
		}
		seen[id] = true

		var adapter scraper.SourceAdapter
		switch id {
		case models.SourceYelp:
			adapter = yelp.New(opts)
		case models.SourceGoogle:
			adapter = google.New(opts)
		case models.SourceGoogleMaps:
			adapter = googlemaps.New(opts)
		case models.SourceWebsite:
			adapter = website.New(cfg.UserAgent, cfg.DownloadTimeout, logger)
		default:
			return nil, fmt.Errorf("sources: unknown source %q", name)
		}
		out = append(out, scraper.NewDiscoverer(adapter, cfg.DiscoveryTimeout, logger))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sources: no sources configured")
	}
	return out, nil
}
