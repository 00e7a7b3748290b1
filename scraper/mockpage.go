package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// MockPage is an in-memory Page serving canned HTML per URL. Readiness and
// clicks are evaluated against the canned HTML with goquery.
type MockPage struct {
	// Pages maps a URL to the HTML served for it.
	Pages map[string]string
	// Clicks maps "currentURL selector" to the URL the click navigates to.
	Clicks map[string]string
	// FailNavigate makes Navigate to the listed URLs fail.
	FailNavigate map[string]error

	mu      sync.Mutex
	current string
	actions []string
}

// NewMockPage returns a MockPage with empty maps.
func NewMockPage() *MockPage {
	return &MockPage{
		Pages:        map[string]string{},
		Clicks:       map[string]string{},
		FailNavigate: map[string]error{},
	}
}

// ClickKey builds the Clicks map key.
func ClickKey(url, selector string) string {
	return url + " " + selector
}

// Actions returns the recorded calls, in order.
func (m *MockPage) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.actions...)
}

func (m *MockPage) record(format string, args ...any) {
	m.mu.Lock()
	m.actions = append(m.actions, fmt.Sprintf(format, args...))
	m.mu.Unlock()
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	m.record("navigate %s", url)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := m.FailNavigate[url]; ok {
		return err
	}
	if _, ok := m.Pages[url]; !ok {
		return fmt.Errorf("mock: no page for %s", url)
	}
	m.mu.Lock()
	m.current = url
	m.mu.Unlock()
	return nil
}

func (m *MockPage) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	m.record("wait %s", selector)
	doc, err := m.doc()
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("mock: wait for %q: %w", selector, context.DeadlineExceeded)
	}
	return nil
}

func (m *MockPage) Click(ctx context.Context, selector string) error {
	m.record("click %s", selector)
	m.mu.Lock()
	target, ok := m.Clicks[ClickKey(m.current, selector)]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("mock: no node matches %q", selector)
	}
	return m.Navigate(ctx, target)
}

func (m *MockPage) Settle(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func (m *MockPage) Scroll(ctx context.Context, step, limit int, interval time.Duration) error {
	m.record("scroll %d", limit)
	return ctx.Err()
}

func (m *MockPage) HTML(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		return "", errors.New("mock: no document loaded")
	}
	return m.Pages[m.current], nil
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, nil
}

func (m *MockPage) doc() (*goquery.Document, error) {
	html, err := m.HTML(context.Background())
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// MockOpener hands out the same Page for every run, or fails with Err.
type MockOpener struct {
	Page     Page
	Err      error
	mu       sync.Mutex
	opened   int
	released int
}

func (o *MockOpener) Open(ctx context.Context) (Page, func(), error) {
	if o.Err != nil {
		return nil, nil, o.Err
	}
	o.mu.Lock()
	o.opened++
	o.mu.Unlock()
	return o.Page, func() {
		o.mu.Lock()
		o.released++
		o.mu.Unlock()
	}, nil
}

// Counts returns how many sessions were opened and released.
func (o *MockOpener) Counts() (opened, released int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened, o.released
}
