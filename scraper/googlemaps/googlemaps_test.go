package googlemaps

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"testing"
	"time"

	"itinerary-scraper/models"
	"itinerary-scraper/scraper"
	"itinerary-scraper/utils"
)

var target = models.ScrapeTarget{BusinessName: "Shoreline Beach Cafe", Locale: "Santa Barbara, CA"}

func TestCollectOpensPhotosTab(t *testing.T) {
	searchURL := fmt.Sprintf(Profile.SearchURL, url.PathEscape(target.Query()))
	photosURL := "https://www.google.com/maps/place/shoreline/photos"

	page := scraper.NewMockPage()
	page.Pages[searchURL] = `<html><body><button data-value="Photos">Photos</button></body></html>`
	page.Pages[photosURL] = `<html><body>
<img src="https://maps.googleapis.com/maps/api/photo?ref=1">
<img src="https://maps.googleapis.com/maps/api/photo?ref=2">
<img src="https://lh5.googleusercontent.com/p/other">
</body></html>`
	page.Clicks[scraper.ClickKey(searchURL, photosTabSelector)] = photosURL

	a := New(scraper.AdapterOptions{ReadyTimeout: time.Second, Logger: utils.NewDiscardLogger()})
	urls, err := a.Collect(context.Background(), page, target)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []string{
		"https://maps.googleapis.com/maps/api/photo?ref=1",
		"https://maps.googleapis.com/maps/api/photo?ref=2",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("got %v, want %v", urls, want)
	}
}

func TestCollectWithoutPhotosTab(t *testing.T) {
	searchURL := fmt.Sprintf(Profile.SearchURL, url.PathEscape(target.Query()))
	page := scraper.NewMockPage()
	page.Pages[searchURL] = `<html><body><div>Did you mean...</div></body></html>`

	a := New(scraper.AdapterOptions{ReadyTimeout: time.Second, Logger: utils.NewDiscardLogger()})
	if _, err := a.Collect(context.Background(), page, target); err == nil {
		t.Fatal("expected error when the listing has no photos tab")
	}
}
