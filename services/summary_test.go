package services

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"itinerary-scraper/models"
)

func sampleManifest() *models.Manifest {
	path := "/tmp/x/yelp_1.jpg"
	return &models.Manifest{
		Target: models.ScrapeTarget{BusinessName: "Hub 51"},
		State:  models.StateComplete,
		Results: []models.DownloadResult{
			{Asset: models.DiscoveredAsset{Source: models.SourceYelp, Ordinal: 0}, Outcome: models.OutcomeSaved, SavedPath: &path},
			{Asset: models.DiscoveredAsset{Source: models.SourceYelp, Ordinal: 1}, Outcome: models.OutcomeHTTPError, StatusCode: 403},
			{Asset: models.DiscoveredAsset{Source: models.SourceYelp, Ordinal: 2}, Outcome: models.OutcomeTimeout},
			{Asset: models.DiscoveredAsset{Source: models.SourceGoogle, Ordinal: 0}, Outcome: models.OutcomeNetworkError},
		},
		Sources: []models.SourceSummary{
			{Source: models.SourceYelp, Discovered: 3},
			{Source: models.SourceGoogle, Discovered: 1},
			{Source: models.SourceGoogleMaps, Error: "photos tab not found"},
		},
	}
}

func TestSummarize(t *testing.T) {
	rows := Summarize(sampleManifest())
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	yelp := rows[0]
	if yelp.Source != models.SourceYelp || yelp.Saved != 1 || yelp.HTTPErrors != 1 || yelp.Timeouts != 1 || yelp.Failed() != 2 {
		t.Errorf("yelp row = %+v", yelp)
	}
	if rows[1].NetworkErrors != 1 || rows[1].Saved != 0 {
		t.Errorf("google row = %+v", rows[1])
	}
	if rows[2].DiscoveryErr == "" || rows[2].Failed() != 0 {
		t.Errorf("googlemaps row = %+v", rows[2])
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, []*models.Manifest{sampleManifest()})

	out := buf.String()
	for _, want := range []string{"Hub 51", "yelp", "googlemaps", "photos tab not found"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(strings.ToUpper(out), "TOTAL") {
		t.Errorf("summary missing footer:\n%s", out)
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, map[string]int{"Hub 51": 27, "Alinea": 3})

	out := buf.String()
	alinea, hub := strings.Index(out, "Alinea"), strings.Index(out, "Hub 51")
	if alinea < 0 || hub < 0 || alinea > hub {
		t.Errorf("businesses missing or unsorted:\n%s", out)
	}
	if !strings.Contains(out, "30") {
		t.Errorf("footer total missing:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a very long discovery error", 10); got != "a very ..." {
		t.Errorf("truncate(long) = %q", got)
	}
	got := truncate("Café Café Café Café", 8)
	if got != "Café ..." || !utf8.ValidString(got) {
		t.Errorf("truncate(multibyte) = %q", got)
	}
}
