package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"itinerary-scraper/models"
	"itinerary-scraper/scraper"
	"itinerary-scraper/storage"
	"itinerary-scraper/utils"
)

type stubAdapter struct {
	source models.SourceID
	urls   []string
	err    error
	panic  bool
}

func (s *stubAdapter) Source() models.SourceID { return s.source }

func (s *stubAdapter) Collect(ctx context.Context, page scraper.Page, target models.ScrapeTarget) ([]string, error) {
	if s.panic {
		panic("selector blew up")
	}
	return s.urls, s.err
}

type recordingWriter struct {
	mu        sync.Mutex
	manifests []*models.Manifest
	err       error
}

func (w *recordingWriter) Write(m *models.Manifest) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.manifests = append(w.manifests, m)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

type transition struct {
	state  models.RunState
	source models.SourceID
	at     time.Time
}

type transitionLog struct {
	mu     sync.Mutex
	events []transition
}

func (l *transitionLog) record(state models.RunState, source models.SourceID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, transition{state: state, source: source, at: time.Now()})
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/slow") {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte("img:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func imageURLs(base string, n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/img/%d.jpg", base, i)
	}
	return urls
}

func discoverers(adapters ...scraper.SourceAdapter) []*scraper.Discoverer {
	out := make([]*scraper.Discoverer, len(adapters))
	for i, a := range adapters {
		out[i] = scraper.NewDiscoverer(a, 0, utils.NewDiscardLogger())
	}
	return out
}

func newTestPipeline(opener scraper.Opener, timeout time.Duration, opts PipelineOptions, writers ...*recordingWriter) *Pipeline {
	ws := make([]storage.ManifestWriter, 0, len(writers))
	for _, w := range writers {
		ws = append(ws, w)
	}
	return NewPipeline(opener, NewDownloader(timeout, "", utils.NewDiscardLogger()), opts, utils.NewDiscardLogger(), ws...)
}

func testTarget(t *testing.T, name string) models.ScrapeTarget {
	return models.ScrapeTarget{
		BusinessName:    name,
		Locale:          "Chicago, IL",
		OutputDirectory: filepath.Join(t.TempDir(), utils.Slugify(name)),
	}
}

func TestRun_CapsAtFifteenPerSource(t *testing.T) {
	srv := imageServer(t)
	opener := &scraper.MockOpener{Page: scraper.NewMockPage()}
	p := newTestPipeline(opener, time.Second, PipelineOptions{MaxConcurrency: 4})

	target := testTarget(t, "Hub 51")
	m, err := p.Run(context.Background(), target,
		discoverers(&stubAdapter{source: models.SourceYelp, urls: imageURLs(srv.URL, 20)}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(m.Results) != 15 {
		t.Fatalf("results = %d, want 15", len(m.Results))
	}
	for i, r := range m.Results {
		if r.Asset.Ordinal != i {
			t.Errorf("result %d has ordinal %d", i, r.Asset.Ordinal)
		}
		if !r.Saved() {
			t.Errorf("result %d: %s %s", i, r.Outcome, r.Error)
		}
	}
	for n := 1; n <= 15; n++ {
		if _, err := os.Stat(filepath.Join(target.OutputDirectory, fmt.Sprintf("yelp_%d.jpg", n))); err != nil {
			t.Errorf("yelp_%d.jpg missing: %v", n, err)
		}
	}
	if _, err := os.Stat(filepath.Join(target.OutputDirectory, "yelp_16.jpg")); !os.IsNotExist(err) {
		t.Errorf("yelp_16.jpg should not exist")
	}

	s := m.Sources[0]
	if s.Discovered != 20 || s.Attempted != 15 || s.Saved != 15 || s.Failed != 0 {
		t.Errorf("summary = %+v", s)
	}
	if m.State != models.StateComplete {
		t.Errorf("state = %s, want complete", m.State)
	}
}

func TestRun_TimeoutDoesNotCancelSiblings(t *testing.T) {
	srv := imageServer(t)
	urls := imageURLs(srv.URL, 4)
	urls[1] = srv.URL + "/slow/1.jpg"

	opener := &scraper.MockOpener{Page: scraper.NewMockPage()}
	p := newTestPipeline(opener, 100*time.Millisecond, PipelineOptions{})

	m, err := p.Run(context.Background(), testTarget(t, "Girl & the Goat"),
		discoverers(&stubAdapter{source: models.SourceGoogle, urls: urls}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(m.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(m.Results))
	}
	for i, r := range m.Results {
		want := models.OutcomeSaved
		if i == 1 {
			want = models.OutcomeTimeout
		}
		if r.Outcome != want {
			t.Errorf("result %d outcome = %s, want %s", i, r.Outcome, want)
		}
	}
	if s := m.Sources[0]; s.Saved != 3 || s.Failed != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestRun_DiscoveryFailureIsRecorded(t *testing.T) {
	srv := imageServer(t)
	opener := &scraper.MockOpener{Page: scraper.NewMockPage()}
	log := &transitionLog{}
	p := newTestPipeline(opener, time.Second, PipelineOptions{OnTransition: log.record})

	m, err := p.Run(context.Background(), testTarget(t, "Alinea"), discoverers(
		&stubAdapter{source: models.SourceYelp, err: errors.New("results selector missing")},
		&stubAdapter{source: models.SourceGoogle, urls: imageURLs(srv.URL, 2)},
		&stubAdapter{source: models.SourceGoogleMaps, panic: true},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if m.State != models.StateComplete {
		t.Errorf("state = %s, want complete", m.State)
	}
	if len(m.DiscoveryErrors) != 2 {
		t.Fatalf("discovery errors = %+v, want 2", m.DiscoveryErrors)
	}
	if m.DiscoveryErrors[0].Source != models.SourceYelp || m.DiscoveryErrors[1].Source != models.SourceGoogleMaps {
		t.Errorf("discovery errors = %+v", m.DiscoveryErrors)
	}
	if got := len(m.ResultsFor(models.SourceGoogle)); got != 2 {
		t.Errorf("google results = %d, want 2", got)
	}
	if got := len(m.ResultsFor(models.SourceYelp)); got != 0 {
		t.Errorf("yelp results = %d, want 0", got)
	}

	want := []transition{
		{state: models.StateDiscovering, source: models.SourceYelp},
		{state: models.StateDownloading, source: models.SourceYelp},
		{state: models.StateDiscovering, source: models.SourceGoogle},
		{state: models.StateDownloading, source: models.SourceGoogle},
		{state: models.StateDiscovering, source: models.SourceGoogleMaps},
		{state: models.StateDownloading, source: models.SourceGoogleMaps},
		{state: models.StateComplete},
	}
	if len(log.events) != len(want) {
		t.Fatalf("transitions = %d, want %d", len(log.events), len(want))
	}
	for i, w := range want {
		if log.events[i].state != w.state || log.events[i].source != w.source {
			t.Errorf("transition %d = %s(%s), want %s(%s)", i, log.events[i].state, log.events[i].source, w.state, w.source)
		}
	}
}

func TestRun_OpenerFailureIsFatal(t *testing.T) {
	opener := &scraper.MockOpener{Err: errors.New("chrome not found")}
	p := newTestPipeline(opener, time.Second, PipelineOptions{})

	m, err := p.Run(context.Background(), testTarget(t, "Au Cheval"),
		discoverers(&stubAdapter{source: models.SourceYelp}))
	if err == nil {
		t.Fatal("expected error when the session cannot be opened")
	}
	if m != nil {
		t.Errorf("manifest should be nil on setup failure")
	}

	if _, err := p.RunAll(context.Background(), []models.ScrapeTarget{testTarget(t, "A"), testTarget(t, "B")},
		discoverers(&stubAdapter{source: models.SourceYelp})); err == nil {
		t.Error("RunAll should surface the opener failure")
	}
}

func TestRun_ReleasesSession(t *testing.T) {
	opener := &scraper.MockOpener{Page: scraper.NewMockPage()}
	p := newTestPipeline(opener, time.Second, PipelineOptions{})

	_, err := p.Run(context.Background(), testTarget(t, "Lou Malnati's"),
		discoverers(&stubAdapter{source: models.SourceYelp, panic: true}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	opened, released := opener.Counts()
	if opened != 1 || released != 1 {
		t.Errorf("opened = %d, released = %d, want 1/1", opened, released)
	}
}

func TestRun_WritesManifest(t *testing.T) {
	srv := imageServer(t)
	opener := &scraper.MockOpener{Page: scraper.NewMockPage()}
	good := &recordingWriter{}
	bad := &recordingWriter{err: errors.New("disk full")}
	p := newTestPipeline(opener, time.Second, PipelineOptions{}, bad, good)

	m, err := p.Run(context.Background(), testTarget(t, "Portillo's"),
		discoverers(&stubAdapter{source: models.SourceYelp, urls: imageURLs(srv.URL, 1)}))
	if err != nil {
		t.Fatalf("writer failure must not fail the run: %v", err)
	}
	if len(good.manifests) != 1 || good.manifests[0] != m {
		t.Errorf("writer did not receive the manifest")
	}
	if len(bad.manifests) != 1 {
		t.Errorf("failing writer should still have been called")
	}
}

func TestRunAll_EnforcesCooldown(t *testing.T) {
	srv := imageServer(t)
	opener := &scraper.MockOpener{Page: scraper.NewMockPage()}
	log := &transitionLog{}
	cooldown := 200 * time.Millisecond
	p := newTestPipeline(opener, time.Second, PipelineOptions{Cooldown: cooldown, OnTransition: log.record})

	targets := []models.ScrapeTarget{testTarget(t, "First"), testTarget(t, "Second")}
	manifests, err := p.RunAll(context.Background(), targets,
		discoverers(&stubAdapter{source: models.SourceYelp, urls: imageURLs(srv.URL, 1)}))
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(manifests) != 2 {
		t.Fatalf("manifests = %d, want 2", len(manifests))
	}

	var firstComplete, secondDiscover time.Time
	for _, e := range log.events {
		if e.state == models.StateComplete && firstComplete.IsZero() {
			firstComplete = e.at
			continue
		}
		if !firstComplete.IsZero() && e.state == models.StateDiscovering {
			secondDiscover = e.at
			break
		}
	}
	if firstComplete.IsZero() || secondDiscover.IsZero() {
		t.Fatalf("missing transitions: %+v", log.events)
	}
	if gap := secondDiscover.Sub(firstComplete); gap < cooldown {
		t.Errorf("second discovery started %v after first completion, want >= %v", gap, cooldown)
	}
}

func TestRunAll_CancelledDuringCooldown(t *testing.T) {
	srv := imageServer(t)
	opener := &scraper.MockOpener{Page: scraper.NewMockPage()}
	ctx, cancel := context.WithCancel(context.Background())
	p := newTestPipeline(opener, time.Second, PipelineOptions{
		Cooldown: time.Minute,
		OnTransition: func(state models.RunState, _ models.SourceID) {
			if state == models.StateComplete {
				cancel()
			}
		},
	})

	manifests, err := p.RunAll(ctx, []models.ScrapeTarget{testTarget(t, "A"), testTarget(t, "B")},
		discoverers(&stubAdapter{source: models.SourceYelp, urls: imageURLs(srv.URL, 1)}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(manifests) != 1 {
		t.Errorf("manifests = %d, want 1", len(manifests))
	}
}

func TestRunAll_CancelledWithoutCooldown(t *testing.T) {
	srv := imageServer(t)
	opener := &scraper.MockOpener{Page: scraper.NewMockPage()}
	ctx, cancel := context.WithCancel(context.Background())
	p := newTestPipeline(opener, time.Second, PipelineOptions{
		OnTransition: func(state models.RunState, _ models.SourceID) {
			if state == models.StateComplete {
				cancel()
			}
		},
	})

	targets := []models.ScrapeTarget{testTarget(t, "A"), testTarget(t, "B"), testTarget(t, "C")}
	manifests, err := p.RunAll(ctx, targets,
		discoverers(&stubAdapter{source: models.SourceYelp, urls: imageURLs(srv.URL, 1)}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(manifests) != 1 {
		t.Errorf("manifests = %d, want 1", len(manifests))
	}
	if opened, _ := opener.Counts(); opened != 1 {
		t.Errorf("sessions opened = %d, want 1", opened)
	}
	if _, err := os.Stat(targets[1].OutputDirectory); !os.IsNotExist(err) {
		t.Errorf("second target should not have been started")
	}
}

func TestRun_CancelledSkipsRemainingSources(t *testing.T) {
	opener := &scraper.MockOpener{Page: scraper.NewMockPage()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPipeline(opener, time.Second, PipelineOptions{})

	m, err := p.Run(ctx, testTarget(t, "Closed"), discoverers(
		&stubAdapter{source: models.SourceYelp},
		&stubAdapter{source: models.SourceGoogle},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.State != models.StateComplete {
		t.Errorf("state = %s, want complete", m.State)
	}
	if len(m.DiscoveryErrors) != 2 {
		t.Errorf("discovery errors = %d, want 2", len(m.DiscoveryErrors))
	}
}
