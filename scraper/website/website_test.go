package website

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"itinerary-scraper/models"
	"itinerary-scraper/utils"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/gallery/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>
<img src="/img/patio-brunch.jpg">
<img src="/img/site-logo.png">
<img src="/img/spacer.gif">
<img data-src="/img/brunch-table">
<section style="background-image: url('/img/hero.webp')"></section>
<img src="/img/arrow-left.png">
</body></html>`)
	})
	mux.HandleFunc("/private/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<img src="/img/secret.jpg">`)
	})
	mux.HandleFunc("/broken/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAdapter() *Adapter {
	return New("itinerary-scraper-test", 5*time.Second, utils.NewDiscardLogger())
}

func TestCollectFiltersImages(t *testing.T) {
	srv := newServer(t)
	tg := models.ScrapeTarget{
		BusinessName: "Reunion Kitchen",
		Pages:        []string{srv.URL + "/gallery/", srv.URL + "/broken/"},
		Keywords:     []string{"brunch"},
	}

	urls, err := newAdapter().Collect(context.Background(), nil, tg)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []string{
		srv.URL + "/img/patio-brunch.jpg",
		srv.URL + "/img/brunch-table",
		srv.URL + "/img/hero.webp",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("got  %v\nwant %v", urls, want)
	}
}

func TestCollectHonoursRobots(t *testing.T) {
	srv := newServer(t)
	tg := models.ScrapeTarget{BusinessName: "MOXI", Pages: []string{srv.URL + "/private/"}}

	urls, err := newAdapter().Collect(context.Background(), nil, tg)
	if err == nil {
		t.Fatalf("expected error when every page is disallowed, got %v", urls)
	}
}

func TestCollectWithoutPagesIsEmpty(t *testing.T) {
	urls, err := newAdapter().Collect(context.Background(), nil, models.ScrapeTarget{BusinessName: "Sea Center"})
	if err != nil || len(urls) != 0 {
		t.Errorf("got %v, %v; want no urls and no error", urls, err)
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		url  string
		kw   []string
		want bool
	}{
		{"https://x/a.JPG", nil, true},
		{"https://x/a.webp?v=2", nil, true},
		{"https://x/render?id=jellyfish", []string{"jellyfish"}, true},
		{"https://x/render?id=7", []string{"jellyfish"}, false},
		{"https://x/a.svg", nil, false},
	}
	for _, tt := range tests {
		if got := relevant(tt.url, tt.kw); got != tt.want {
			t.Errorf("relevant(%q, %v) = %v; want %v", tt.url, tt.kw, got, tt.want)
		}
	}
}
