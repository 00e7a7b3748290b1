package models

import (
	"fmt"
	"time"
)

// SourceID names the external source an asset was discovered on.
type SourceID string

const (
	SourceYelp       SourceID = "yelp"
	SourceGoogle     SourceID = "google"
	SourceGoogleMaps SourceID = "googlemaps"
	SourceWebsite    SourceID = "website"
)

// ScrapeTarget identifies one business to acquire images for.
// It is not modified for the duration of a pipeline run.
type ScrapeTarget struct {
	BusinessName    string   `yaml:"name" json:"name"`
	Locale          string   `yaml:"location" json:"location"`
	OutputDirectory string   `yaml:"-" json:"output_directory"`
	Pages           []string `yaml:"pages,omitempty" json:"pages,omitempty"`
	Keywords        []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Query is the free-text search string used by the search-engine adapters.
func (t ScrapeTarget) Query() string {
	if t.Locale == "" {
		return t.BusinessName
	}
	return t.BusinessName + " " + t.Locale
}

// DiscoveredAsset is one candidate image URL in discovery order.
type DiscoveredAsset struct {
	Source  SourceID `json:"source"`
	URL     string   `json:"url"`
	Ordinal int      `json:"ordinal"`
}

// FileName is the deterministic file name the asset is saved under.
func (a DiscoveredAsset) FileName() string {
	return fmt.Sprintf("%s_%d.jpg", a.Source, a.Ordinal+1)
}

// Outcome classifies how a single download ended.
type Outcome string

const (
	OutcomeSaved        Outcome = "saved"
	OutcomeHTTPError    Outcome = "http_error"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeTimeout      Outcome = "timeout"
)

// DownloadResult is the terminal record for one asset.
// SavedPath is set only when Outcome is OutcomeSaved; StatusCode only for
// OutcomeHTTPError.
type DownloadResult struct {
	Asset      DiscoveredAsset `json:"asset"`
	Outcome    Outcome         `json:"outcome"`
	StatusCode int             `json:"status_code,omitempty"`
	SavedPath  *string         `json:"saved_path"`
	Bytes      int64           `json:"bytes,omitempty"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration_ns"`
}

// Saved reports whether the asset ended up on disk.
func (r DownloadResult) Saved() bool {
	return r.Outcome == OutcomeSaved
}

// DiscoveryError records a recovered failure inside one adapter.
type DiscoveryError struct {
	Source SourceID `json:"source"`
	Reason string   `json:"reason"`
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery %s: %s", e.Source, e.Reason)
}
