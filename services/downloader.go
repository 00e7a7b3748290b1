package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"itinerary-scraper/models"
	"itinerary-scraper/utils"
)

// Downloader fetches one asset into a directory. It is source-agnostic and
// safe for concurrent use.
type Downloader struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *utils.Logger
}

// NewDownloader creates a Downloader whose every request is bounded by timeout.
func NewDownloader(timeout time.Duration, userAgent string, logger *utils.Logger) *Downloader {
	return &Downloader{
		client:    &http.Client{},
		timeout:   timeout,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Download saves asset as dir/{source}_{ordinal+1}.jpg. Only a Saved result
// leaves a file at that path; every other outcome removes whatever was there.
func (d *Downloader) Download(ctx context.Context, asset models.DiscoveredAsset, dir string) models.DownloadResult {
	start := time.Now()
	finalPath := filepath.Join(dir, asset.FileName())

	result := d.fetch(ctx, asset, dir, finalPath)
	result.Asset = asset
	result.Duration = time.Since(start)

	if result.Outcome == models.OutcomeSaved {
		d.logger.Debug("[downloader] Saved %s (%d bytes)", asset.FileName(), result.Bytes)
	} else {
		if err := os.Remove(finalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("[downloader] Could not remove stale %s: %v", finalPath, err)
		}
		d.logger.Warn("[downloader] %s failed: %s %s", asset.FileName(), result.Outcome, result.Error)
	}
	return result
}

func (d *Downloader) fetch(ctx context.Context, asset models.DiscoveredAsset, dir, finalPath string) models.DownloadResult {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return failure(models.OutcomeNetworkError, fmt.Errorf("create dir: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return failure(models.OutcomeNetworkError, err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return failure(classify(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.DownloadResult{
			Outcome:    models.OutcomeHTTPError,
			StatusCode: resp.StatusCode,
			Error:      resp.Status,
		}
	}

	tmp, err := os.CreateTemp(dir, "."+asset.FileName()+".*.part")
	if err != nil {
		return failure(models.OutcomeNetworkError, fmt.Errorf("create temp file: %w", err))
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(tmp.Name())
		return failure(classify(ctx, copyErr), copyErr)
	case closeErr != nil:
		_ = os.Remove(tmp.Name())
		return failure(models.OutcomeNetworkError, closeErr)
	case n == 0:
		_ = os.Remove(tmp.Name())
		return failure(models.OutcomeNetworkError, errors.New("empty body"))
	}

	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		_ = os.Remove(tmp.Name())
		return failure(models.OutcomeNetworkError, fmt.Errorf("rename: %w", err))
	}
	return models.DownloadResult{Outcome: models.OutcomeSaved, SavedPath: &finalPath, Bytes: n}
}

// classify tells a timeout apart from any other transport failure.
func classify(ctx context.Context, err error) models.Outcome {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return models.OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.OutcomeTimeout
	}
	return models.OutcomeNetworkError
}

func failure(outcome models.Outcome, err error) models.DownloadResult {
	return models.DownloadResult{Outcome: outcome, Error: err.Error()}
}
