package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"itinerary-scraper/config"
	"itinerary-scraper/models"
	"itinerary-scraper/scraper"
	"itinerary-scraper/scraper/sources"
	"itinerary-scraper/services"
	"itinerary-scraper/storage"
	"itinerary-scraper/timeline"
	"itinerary-scraper/utils"
)

var (
	outputDir   string
	targetsFile string
	sourceNames []string
	targetSpecs []string

	eventsFile string
	offsets    []int
)

var rootCmd = &cobra.Command{
	Use:          "itinerary-scraper",
	Short:        "Trip timeline engine and venue image downloader",
	SilenceUsage: true,
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download venue images for every target",
	Long: `Runs every configured source for each target in order, saving images to
<out>/<business-slug>/<source>_<n>.jpg plus a manifest.json. Individual
discovery or download failures never fail the command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		return runScrape(cmd.Context(), cfg)
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Print the timeline state at the given scroll offsets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runTimeline(cfg)
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&outputDir, "out", "", "Base output directory (overrides OUTPUT_DIR)")
	scrapeCmd.Flags().StringVar(&targetsFile, "targets", "", "YAML targets file (overrides TARGETS_FILE)")
	scrapeCmd.Flags().StringSliceVar(&sourceNames, "sources", nil, "Comma-separated sources in run order (overrides SOURCES)")
	scrapeCmd.Flags().StringArrayVar(&targetSpecs, "target", nil, `Target as "Business Name@Locale"; repeatable, replaces the targets file`)

	timelineCmd.Flags().StringVar(&eventsFile, "events", "events.yaml", "YAML file listing itinerary events")
	timelineCmd.Flags().IntSliceVar(&offsets, "offset", []int{0}, "Viewport-center offsets to evaluate; repeatable")

	rootCmd.AddCommand(scrapeCmd, timelineCmd)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = outputDir
	}
	if cmd.Flags().Changed("targets") {
		cfg.TargetsFile = targetsFile
	}
	if cmd.Flags().Changed("sources") {
		cfg.Sources = sourceNames
	}
}

func loadTargets(cfg *config.Config) ([]models.ScrapeTarget, error) {
	if len(targetSpecs) == 0 {
		return config.LoadTargets(cfg.TargetsFile, cfg.OutputDir)
	}
	targets := make([]models.ScrapeTarget, 0, len(targetSpecs))
	for _, s := range targetSpecs {
		t, err := config.ParseTarget(s)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return config.ResolveTargets(targets, cfg.OutputDir)
}

func runScrape(ctx context.Context, cfg *config.Config) error {
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("=== Itinerary image scraper starting ===")

	targets, err := loadTargets(cfg)
	if err != nil {
		return err
	}
	discoverers, err := sources.Build(cfg.Sources, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("Config: %d targets | sources: %v | cap: %d | concurrency: %d | cooldown: %v",
		len(targets), cfg.Sources, cfg.MaxAssetsPerSource, cfg.MaxConcurrency, cfg.Cooldown)

	writers := []storage.ManifestWriter{storage.NewJSONWriter()}
	if cfg.ManifestCSV != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.ManifestCSV)
		if err != nil {
			return err
		}
		writers = append(writers, csvWriter)
	}
	var pgWriter *storage.PostgresWriter
	if cfg.PostgresEnabled {
		pgWriter, err = storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Error("Make sure PostgreSQL is running: docker compose up -d")
			return err
		}
		writers = append(writers, pgWriter)
	}
	defer func() {
		for _, w := range writers {
			if err := w.Close(); err != nil {
				logger.Warn("Closing manifest writer: %v", err)
			}
		}
	}()

	opener := &scraper.ChromeOpener{
		Options: scraper.BrowserOptions{
			ChromeBin:         cfg.ChromeBin,
			Headless:          cfg.Headless,
			UserAgent:         cfg.UserAgent,
			NavigationTimeout: cfg.NavigationTimeout,
		},
		Logger: logger,
	}
	pipeline := services.NewPipeline(
		opener,
		services.NewDownloader(cfg.DownloadTimeout, cfg.UserAgent, logger),
		services.PipelineOptions{
			MaxAssetsPerSource: cfg.MaxAssetsPerSource,
			MaxConcurrency:     cfg.MaxConcurrency,
			RateLimitMs:        cfg.RateLimitMs,
			Cooldown:           cfg.Cooldown,
		},
		logger,
		writers...,
	)

	manifests, err := pipeline.RunAll(ctx, targets, discoverers)
	if len(manifests) > 0 {
		services.PrintSummary(os.Stdout, manifests)
	}
	if pgWriter != nil {
		if counts, err := pgWriter.SavedCounts(); err != nil {
			logger.Warn("Could not load run history: %v", err)
		} else {
			services.PrintHistory(os.Stdout, counts)
		}
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("Interrupted after %d of %d targets", len(manifests), len(targets))
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("Done. Images under %s", cfg.OutputDir)
	return nil
}

func runTimeline(cfg *config.Config) error {
	events, err := timeline.LoadEvents(eventsFile, cfg.Timeline.Days)
	if err != nil {
		return err
	}
	engine, err := timeline.New(cfg.Timeline, events)
	if err != nil {
		return err
	}

	type stateAt struct {
		Offset int `json:"offset"`
		models.TimelineState
	}
	out := struct {
		Events []models.TimelineEvent `json:"events"`
		States []stateAt              `json:"states"`
	}{Events: engine.Events()}
	for _, off := range offsets {
		out.States = append(out.States, stateAt{Offset: off, TimelineState: engine.ComputeState(off)})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
