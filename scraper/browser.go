package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"itinerary-scraper/utils"
)

// BrowserOptions configures the headless Chrome session.
type BrowserOptions struct {
	ChromeBin         string
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
}

// Browser is a single Chrome tab driven through chromedp. It implements Page.
type Browser struct {
	opts        BrowserOptions
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// ChromeOpener starts a fresh Browser per run.
type ChromeOpener struct {
	Options BrowserOptions
	Logger  *utils.Logger
}

// Open implements Opener.
func (o *ChromeOpener) Open(ctx context.Context) (Page, func(), error) {
	b, err := OpenBrowser(ctx, o.Options, o.Logger)
	if err != nil {
		return nil, nil, err
	}
	return b, b.Close, nil
}

// OpenBrowser launches Chrome and opens one tab. Failing here is the only
// fatal condition of a run.
func OpenBrowser(ctx context.Context, opts BrowserOptions, logger *utils.Logger) (*Browser, error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Debug("[browser] Using browser binary: %q", chromeBin)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// An empty Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: start chrome: %w", err)
	}

	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	return &Browser{opts: opts, ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// Close shuts the tab and the browser process down.
func (b *Browser) Close() {
	b.cancelTab()
	b.cancelAlloc()
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
// Cancelling the derived context aborts the actions without closing the tab.
func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, b.opts.NavigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

func (b *Browser) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	if err := b.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: wait for %q: %w", selector, err)
	}
	return nil
}

func (b *Browser) Click(ctx context.Context, selector string) error {
	err := b.run(ctx, b.opts.NavigationTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return fmt.Errorf("no node matches %q", selector)
		}
		return chromedp.MouseClickNode(nodes[0]).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("browser: click %q: %w", selector, err)
	}
	return nil
}

func (b *Browser) Settle(ctx context.Context, d time.Duration) error {
	return utils.Sleep(ctx, d)
}

func (b *Browser) Scroll(ctx context.Context, step, limit int, interval time.Duration) error {
	for scrolled := 0; scrolled < limit; scrolled += step {
		var height int
		err := b.run(ctx, b.opts.NavigationTimeout,
			chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d); document.body.scrollHeight`, step), &height),
		)
		if err != nil {
			return fmt.Errorf("browser: scroll: %w", err)
		}
		if scrolled+step >= height {
			return nil
		}
		if err := utils.Sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

func (b *Browser) HTML(ctx context.Context) (string, error) {
	var body string
	err := b.run(ctx, b.opts.NavigationTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		body, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("browser: read document: %w", err)
	}
	return body, nil
}

func (b *Browser) URL(ctx context.Context) (string, error) {
	var loc string
	if err := b.run(ctx, b.opts.NavigationTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("browser: location: %w", err)
	}
	return loc, nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
