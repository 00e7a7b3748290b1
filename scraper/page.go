// Package scraper holds the browser session, the page abstraction the source
// adapters drive, the extraction rules, and the Discoverer that turns an
// adapter's raw output into DiscoveredAssets.
package scraper

import (
	"context"
	"time"
)

// Page is one navigable browser tab. Implementations are not safe for
// concurrent use; adapters drive a Page serially.
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until selector is visible or timeout elapses.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// Click clicks the first node matching selector.
	Click(ctx context.Context, selector string) error
	// Settle pauses to let client-side rendering finish.
	Settle(ctx context.Context, d time.Duration) error
	// Scroll scrolls down in step pixel increments until the bottom of the
	// document or limit pixels, pausing interval between steps.
	Scroll(ctx context.Context, step, limit int, interval time.Duration) error
	// HTML returns the current outer HTML of the document.
	HTML(ctx context.Context) (string, error)
	// URL returns the address of the current document.
	URL(ctx context.Context) (string, error)
}

// Opener acquires a Page for the lifetime of one pipeline run. The returned
// release func must be called exactly once.
type Opener interface {
	Open(ctx context.Context) (Page, func(), error)
}
