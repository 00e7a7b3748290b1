package services

import (
	"context"
	"fmt"
	"time"

	"itinerary-scraper/models"
	"itinerary-scraper/scraper"
	"itinerary-scraper/storage"
	"itinerary-scraper/utils"
)

// DefaultMaxAssetsPerSource caps how many discovered assets of one source are
// downloaded per run.
const DefaultMaxAssetsPerSource = 15

// AssetDownloader saves one asset into a directory and reports how it went.
// It must never panic or return without a result.
type AssetDownloader interface {
	Download(ctx context.Context, asset models.DiscoveredAsset, dir string) models.DownloadResult
}

// PipelineOptions tunes a Pipeline.
type PipelineOptions struct {
	MaxAssetsPerSource int
	MaxConcurrency     int
	RateLimitMs        int
	// Cooldown is the pause RunAll enforces between the Complete of one
	// target and the first discovery of the next.
	Cooldown time.Duration
	// OnTransition, when set, is called on every state change. source is
	// empty for Complete.
	OnTransition func(state models.RunState, source models.SourceID)
}

// Pipeline runs discovery and download for scrape targets, one at a time.
type Pipeline struct {
	opener     scraper.Opener
	downloader AssetDownloader
	opts       PipelineOptions
	logger     *utils.Logger
	writers    []storage.ManifestWriter
}

// NewPipeline wires a Pipeline. Every finished manifest is handed to each
// writer; writer failures are logged, never returned.
func NewPipeline(opener scraper.Opener, downloader AssetDownloader, opts PipelineOptions, logger *utils.Logger, writers ...storage.ManifestWriter) *Pipeline {
	if opts.MaxAssetsPerSource <= 0 {
		opts.MaxAssetsPerSource = DefaultMaxAssetsPerSource
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = opts.MaxAssetsPerSource
	}
	return &Pipeline{
		opener:     opener,
		downloader: downloader,
		opts:       opts,
		logger:     logger,
		writers:    writers,
	}
}

// Run acquires one page session, then for each discoverer in order discovers
// and downloads its assets. Only a failure to open the session is returned as
// an error; everything else is recorded in the manifest and the run always
// reaches Complete.
func (p *Pipeline) Run(ctx context.Context, target models.ScrapeTarget, discoverers []*scraper.Discoverer) (*models.Manifest, error) {
	m := &models.Manifest{
		Target:          target,
		State:           models.StateIdle,
		StartedAt:       time.Now(),
		Results:         []models.DownloadResult{},
		DiscoveryErrors: []models.DiscoveryError{},
		Sources:         []models.SourceSummary{},
	}

	page, release, err := p.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open session: %w", err)
	}
	defer release()

	p.logger.Info("[pipeline] Target %q -> %s", target.Query(), target.OutputDirectory)

	for _, d := range discoverers {
		source := d.Source()
		summary := models.SourceSummary{Source: source}

		if err := ctx.Err(); err != nil {
			derr := models.DiscoveryError{Source: source, Reason: "skipped: " + err.Error()}
			m.DiscoveryErrors = append(m.DiscoveryErrors, derr)
			summary.Error = derr.Reason
			m.Sources = append(m.Sources, summary)
			continue
		}

		p.transition(m, models.StateDiscovering, source)
		seq, derr := d.Discover(ctx, page, target)
		if derr != nil {
			m.DiscoveryErrors = append(m.DiscoveryErrors, *derr)
			summary.Error = derr.Reason
		}

		var assets []models.DiscoveredAsset
		for asset := range seq {
			summary.Discovered++
			if len(assets) < p.opts.MaxAssetsPerSource {
				assets = append(assets, asset)
			}
		}

		p.transition(m, models.StateDownloading, source)
		results := p.downloadAll(ctx, target.OutputDirectory, assets)
		for _, r := range results {
			summary.Attempted++
			if r.Saved() {
				summary.Saved++
			} else {
				summary.Failed++
			}
		}
		m.Results = append(m.Results, results...)
		m.Sources = append(m.Sources, summary)

		p.logger.Info("[pipeline] %s: %d discovered, %d/%d saved", source, summary.Discovered, summary.Saved, summary.Attempted)
	}

	m.FinishedAt = time.Now()
	p.transition(m, models.StateComplete, "")
	p.write(m)
	return m, nil
}

// RunAll runs every target in order, sleeping Cooldown between them. It stops
// early only when the session cannot be opened or ctx is cancelled, returning
// the manifests completed so far.
func (p *Pipeline) RunAll(ctx context.Context, targets []models.ScrapeTarget, discoverers []*scraper.Discoverer) ([]*models.Manifest, error) {
	manifests := make([]*models.Manifest, 0, len(targets))
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return manifests, fmt.Errorf("pipeline: %w", err)
		}
		if i > 0 && p.opts.Cooldown > 0 {
			p.logger.Info("[pipeline] Cooling down %v before %q", p.opts.Cooldown, target.BusinessName)
			if err := utils.Sleep(ctx, p.opts.Cooldown); err != nil {
				return manifests, fmt.Errorf("pipeline: cooldown: %w", err)
			}
		}
		m, err := p.Run(ctx, target, discoverers)
		if err != nil {
			return manifests, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

func (p *Pipeline) downloadAll(ctx context.Context, dir string, assets []models.DiscoveredAsset) []models.DownloadResult {
	if len(assets) == 0 {
		return nil
	}
	workers := min(p.opts.MaxConcurrency, len(assets))
	pool := utils.NewWorkerPool(workers, p.opts.RateLimitMs)

	tasks := make([]func() models.DownloadResult, len(assets))
	for i, asset := range assets {
		tasks[i] = func() models.DownloadResult {
			return p.downloader.Download(ctx, asset, dir)
		}
	}
	return utils.SettleAll(pool, tasks, func(i int, v any) models.DownloadResult {
		p.logger.Error("[pipeline] Download of %s panicked: %v", assets[i].URL, v)
		return models.DownloadResult{
			Asset:   assets[i],
			Outcome: models.OutcomeNetworkError,
			Error:   fmt.Sprintf("panic: %v", v),
		}
	})
}

func (p *Pipeline) transition(m *models.Manifest, state models.RunState, source models.SourceID) {
	m.State = state
	if source != "" {
		p.logger.Debug("[pipeline] -> %s(%s)", state, source)
	} else {
		p.logger.Debug("[pipeline] -> %s", state)
	}
	if p.opts.OnTransition != nil {
		p.opts.OnTransition(state, source)
	}
}

func (p *Pipeline) write(m *models.Manifest) {
	for _, w := range p.writers {
		if err := w.Write(m); err != nil {
			p.logger.Error("[pipeline] Manifest write failed: %v", err)
		}
	}
}
