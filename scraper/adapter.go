package scraper

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"itinerary-scraper/models"
	"itinerary-scraper/utils"
)

// SourceAdapter drives a Page to the image-bearing view of one source and
// returns the candidate image URLs found there, in page order. Collect may
// return duplicates; the Discoverer dedupes.
type SourceAdapter interface {
	Source() models.SourceID
	Collect(ctx context.Context, page Page, target models.ScrapeTarget) ([]string, error)
}

// Profile is the versioned extraction contract of a source: where to search,
// what signals readiness and which rules pull URLs out of the result. When the
// source's markup drifts, only its Profile changes.
type Profile struct {
	Version       string
	SearchURL     string // fmt template; %s receives the escaped query
	ReadySelector string
	Settle        time.Duration
	Rules         []Rule
}

// AdapterOptions are shared by all browser-driven adapters.
type AdapterOptions struct {
	ReadyTimeout time.Duration
	Retry        *utils.RetryConfig
	Logger       *utils.Logger
}

// LoadAndWait navigates to url and waits for selector, retrying both steps
// together according to opts.Retry.
func LoadAndWait(ctx context.Context, page Page, url, selector string, opts AdapterOptions) error {
	step := func() error {
		if err := page.Navigate(ctx, url); err != nil {
			return err
		}
		if selector == "" {
			return nil
		}
		return page.WaitReady(ctx, selector, opts.ReadyTimeout)
	}
	if opts.Retry == nil {
		return step()
	}
	return opts.Retry.Do(ctx, "load "+url, step)
}

// Discoverer wraps a SourceAdapter so that nothing it does escapes as an
// error or panic. Failures become a DiscoveryError and an empty sequence.
type Discoverer struct {
	adapter SourceAdapter
	timeout time.Duration
	logger  *utils.Logger
}

// NewDiscoverer wraps adapter. A positive timeout bounds the whole discovery.
func NewDiscoverer(adapter SourceAdapter, timeout time.Duration, logger *utils.Logger) *Discoverer {
	return &Discoverer{adapter: adapter, timeout: timeout, logger: logger}
}

// Source reports the wrapped adapter's source.
func (d *Discoverer) Source() models.SourceID {
	return d.adapter.Source()
}

// Discover runs the adapter against page. The returned sequence yields each
// unique URL once with ordinals from 0 and can be consumed only once.
func (d *Discoverer) Discover(ctx context.Context, page Page, target models.ScrapeTarget) (seq iter.Seq[models.DiscoveredAsset], derr *models.DiscoveryError) {
	source := d.adapter.Source()
	defer func() {
		if v := recover(); v != nil {
			derr = &models.DiscoveryError{Source: source, Reason: fmt.Sprintf("panic: %v", v)}
			seq = emptySeq
			d.logger.Error("[%s] Discovery panicked: %v", source, v)
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	raw, err := d.adapter.Collect(ctx, page, target)
	if err != nil {
		d.logger.Warn("[%s] Discovery failed for %q: %v", source, target.BusinessName, err)
		return emptySeq, &models.DiscoveryError{Source: source, Reason: err.Error()}
	}

	seen := utils.NewURLSet()
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if u == "" || !seen.Add(u) {
			continue
		}
		urls = append(urls, u)
	}
	d.logger.Info("[%s] Found %d unique images (%d raw)", source, seen.Size(), len(raw))
	return assetSeq(source, urls), nil
}

func emptySeq(func(models.DiscoveredAsset) bool) {}

// assetSeq yields assets lazily. A second iteration yields nothing.
func assetSeq(source models.SourceID, urls []string) iter.Seq[models.DiscoveredAsset] {
	var consumed atomic.Bool
	return func(yield func(models.DiscoveredAsset) bool) {
		if consumed.Swap(true) {
			return
		}
		for i, u := range urls {
			if !yield(models.DiscoveredAsset{Source: source, URL: u, Ordinal: i}) {
				return
			}
		}
	}
}
