package sources

import (
	"testing"
	"time"

	"itinerary-scraper/config"
	"itinerary-scraper/models"
	"itinerary-scraper/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		ReadyTimeout:     time.Second,
		DiscoveryTimeout: time.Minute,
		DownloadTimeout:  time.Second,
		MaxRetries:       1,
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []models.SourceID
		wantErr bool
	}{
		{"default order", []string{"yelp", "google", "googlemaps"}, []models.SourceID{"yelp", "google", "googlemaps"}, false},
		{"case and spaces", []string{" Website ", "YELP"}, []models.SourceID{"website", "yelp"}, false},
		{"blank entries skipped", []string{"", "google", " "}, []models.SourceID{"google"}, false},
		{"unknown", []string{"tripadvisor"}, nil, true},
		{"duplicate", []string{"yelp", "Yelp"}, nil, true},
		{"empty", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.in, testConfig(), utils.NewDiscardLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d discoverers, want %d", len(got), len(tt.want))
			}
			for i, d := range got {
				if d.Source() != tt.want[i] {
					t.Errorf("discoverer %d = %s, want %s", i, d.Source(), tt.want[i])
				}
			}
		})
	}
}
