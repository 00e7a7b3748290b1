package models

import "time"

// RunState is a step of the per-target pipeline state machine.
type RunState string

const (
	StateIdle        RunState = "idle"
	StateDiscovering RunState = "discovering"
	StateDownloading RunState = "downloading"
	StateComplete    RunState = "complete"
)

// SourceSummary counts outcomes for one adapter within a run.
type SourceSummary struct {
	Source     SourceID `json:"source"`
	Discovered int      `json:"discovered"`
	Attempted  int      `json:"attempted"`
	Saved      int      `json:"saved"`
	Failed     int      `json:"failed"`
	Error      string   `json:"error,omitempty"`
}

// Manifest is the aggregate record of one pipeline run for one target.
// Results are grouped by adapter in run order and sorted by ordinal within
// each adapter.
type Manifest struct {
	Target          ScrapeTarget     `json:"target"`
	State           RunState         `json:"state"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	Results         []DownloadResult `json:"results"`
	DiscoveryErrors []DiscoveryError `json:"discovery_errors"`
	Sources         []SourceSummary  `json:"sources"`
}

// ResultsFor returns the results that belong to one source.
func (m *Manifest) ResultsFor(source SourceID) []DownloadResult {
	var out []DownloadResult
	for _, r := range m.Results {
		if r.Asset.Source == source {
			out = append(out, r)
		}
	}
	return out
}
