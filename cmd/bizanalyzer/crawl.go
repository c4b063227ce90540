package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/bizanalyzer/internal/adapter/anthropic"
	"github.com/user/bizanalyzer/internal/adapter/chromedp_renderer"
	"github.com/user/bizanalyzer/internal/adapter/jsonl"
	"github.com/user/bizanalyzer/internal/adapter/proxy"
	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/usecase"
)

const pushTimeout = 10 * time.Second

type crawlFlags struct {
	inputFile   string
	startURLs   []string
	maxPages    int
	screenshots bool
	output      string
	metricsAddr string
	pushGateway string
}

func newCrawlCommand() *cobra.Command {
	var flags crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl start URLs and analyze every page",
		Example: `  bizanalyzer crawl --start-url https://example.com --max-pages 10
  bizanalyzer crawl --input job.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readJobInput(cmd, flags)
			if err != nil {
				return err
			}
			// Input problems surface before configuration or any connection.
			if err := usecase.ValidateInput(&in); err != nil {
				return err
			}
			return runCrawl(cmd, in, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.inputFile, "input", "i", "", "job input JSON file")
	cmd.Flags().StringArrayVarP(&flags.startURLs, "start-url", "u", nil, "start URL (repeatable)")
	cmd.Flags().IntVarP(&flags.maxPages, "max-pages", "m", 0, "maximum number of pages to crawl")
	cmd.Flags().BoolVar(&flags.screenshots, "screenshots", false, "store a screenshot of every page")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "results.jsonl", `append page results as JSON lines to this file ("-" for stdout, "" to disable)`)
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve /metrics on this address while the crawl runs")
	cmd.Flags().StringVar(&flags.pushGateway, "pushgateway", "", "Prometheus Pushgateway URL to push metrics to when the run ends")
	return cmd
}

// readJobInput merges the input file with flags; flags win when set.
func readJobInput(cmd *cobra.Command, flags crawlFlags) (entity.JobInput, error) {
	var in entity.JobInput
	if flags.inputFile != "" {
		data, err := os.ReadFile(flags.inputFile)
		if err != nil {
			return in, fmt.Errorf("read input: %w", err)
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return in, &entity.ConfigurationError{Field: "input", Reason: err.Error()}
		}
	}
	for _, u := range flags.startURLs {
		in.StartURLs = append(in.StartURLs, entity.StartURL{URL: u})
	}
	if cmd.Flags().Changed("max-pages") {
		in.MaxPagesToCrawl = flags.maxPages
	}
	if cmd.Flags().Changed("screenshots") {
		in.IncludeScreenshots = flags.screenshots
	}
	return in, nil
}

// openResultOutput returns where page results are streamed; "-" is stdout.
func openResultOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open result output: %w", err)
	}
	return f, f.Close, nil
}

func runCrawl(cmd *cobra.Command, in entity.JobInput, flags crawlFlags) error {
	ctx := cmd.Context()
	env, err := setup()
	if err != nil {
		return err
	}
	log := env.logger
	defer func() { _ = log.Sync() }()
	cfg := env.cfg

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if flags.output != "" {
		w, closeOutput, err := openResultOutput(flags.output, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer func() {
			if err := closeOutput(); err != nil {
				log.Error("close result output", zap.Error(err))
			}
		}()
		store.results = jsonl.NewResultSink(w, store.results)
	}

	if flags.metricsAddr != "" {
		ms, err := startMetricsServer(flags.metricsAddr, env.registry, log)
		if err != nil {
			return err
		}
		defer func() { _ = ms.Shutdown() }()
	}

	renderer := chromedp_renderer.NewChromedpRenderer(cfg.Headless, cfg.PageLoadTimeout, log)
	defer renderer.Close()

	sessions := proxy.NewManager(cfg.ProxyURLs)
	completer := anthropic.NewCompleter(anthropic.Options{
		APIKey:      cfg.AnthropicAPIKey,
		BaseURL:     cfg.AnthropicBaseURL,
		Model:       cfg.AnthropicModel,
		MaxTokens:   int64(cfg.AnalysisMaxTokens),
		Temperature: cfg.AnalysisTemperature,
	}, log)

	controller := usecase.NewCrawlController(usecase.ControllerDeps{
		Renderer: renderer,
		Sessions: sessions,
		Frontier: store.frontier,
		Results:  store.results,
		Failures: store.failures,
		Blobs:    store.blobs,
		Expander: usecase.NewLinkExpander(cfg.ExcludedExtensions),
		Analyzer: usecase.NewAnalysisClient(completer, cfg.AnalysisMaxChars, env.metrics, log),
		Policy: usecase.NewRetryPolicy(cfg.MaxAttempts,
			usecase.WithBackoff(cfg.RetryBaseDelay, cfg.RetryMaxDelay)),
		Metrics: env.metrics,
		Logger:  log,
	}, usecase.ControllerConfig{
		Workers:            cfg.MaxConcurrency,
		RunTimeout:         cfg.RunTimeout,
		AttemptTimeout:     cfg.RequestHandlerTimeout,
		IncludeScreenshots: in.IncludeScreenshots,
	})

	log.Info("Starting crawl",
		zap.Strings("start_urls", in.URLs()),
		zap.Int("max_pages", in.MaxPagesToCrawl),
		zap.String("backend", cfg.StoreBackend),
		zap.String("output", flags.output),
		zap.String("proxies", sessions.Describe()),
	)
	stats, err := usecase.NewJobRunner(controller, store.blobs, sessions, log).Run(ctx, in)
	if flags.pushGateway != "" && stats.RunID != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		if perr := pushMetrics(pushCtx, flags.pushGateway, stats.RunID, env.registry); perr != nil {
			log.Error("Could not push metrics", zap.String("gateway", flags.pushGateway), zap.Error(perr))
		}
		cancel()
	}
	if err != nil {
		log.Error("Crawl failed", zap.String("run_id", stats.RunID), zap.Error(err))
		return err
	}

	summary, err := json.MarshalIndent(stats.Summary(), "", "  ")
	if err != nil {
		return err
	}
	log.Info("Crawl finished",
		zap.String("run_id", stats.RunID),
		zap.Int("pages_processed", stats.PagesProcessed),
		zap.Int("pages_failed", stats.PagesFailed),
		zap.Int("retries", stats.RetriesIssued),
	)
	fmt.Fprintln(cmd.OutOrStdout(), string(summary))
	return nil
}
