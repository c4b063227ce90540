package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/repository"
	"github.com/user/bizanalyzer/pkg/logger"
	"github.com/user/bizanalyzer/pkg/metrics"
	"github.com/user/bizanalyzer/pkg/utils"
)

const (
	DefaultWorkers    = 3
	screenshotContent = "image/jpeg"
)

// PageAnalyzer turns page text into a business analysis.
type PageAnalyzer interface {
	Analyze(ctx context.Context, text string) (entity.BusinessAnalysis, error)
}

// FrontierFactory builds the frontier queue and seen-set of one run.
type FrontierFactory func(runID string) (repository.QueueRepository, repository.VisitedRepository)

// ControllerDeps are the collaborators of a CrawlController.
// Failures and Blobs are optional.
type ControllerDeps struct {
	Renderer  repository.Renderer
	Sessions  repository.SessionProvider
	Frontier  FrontierFactory
	Results   repository.ResultSink
	Failures  repository.FailedRequestRepository
	Blobs     repository.BlobStore
	Extractor *TextExtractor
	Expander  *LinkExpander
	Analyzer  PageAnalyzer
	Policy    *RetryPolicy
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// ControllerConfig tunes a CrawlController.
type ControllerConfig struct {
	Workers            int
	RunTimeout         time.Duration // zero disables the run deadline
	AttemptTimeout     time.Duration // bounds one render+analyze attempt
	IncludeScreenshots bool
}

// CrawlController drains a frontier of crawl requests with a bounded pool of workers.
type CrawlController struct {
	deps ControllerDeps
	cfg  ControllerConfig
	log  *zap.Logger
}

// NewCrawlController wires a controller. Missing extractor, expander and policy get defaults.
func NewCrawlController(deps ControllerDeps, cfg ControllerConfig) *CrawlController {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers
	}
	if deps.Extractor == nil {
		deps.Extractor = NewTextExtractor()
	}
	if deps.Expander == nil {
		deps.Expander = NewLinkExpander(nil)
	}
	if deps.Policy == nil {
		deps.Policy = NewRetryPolicy(DefaultMaxAttempts)
	}
	return &CrawlController{deps: deps, cfg: cfg, log: logger.OrNop(deps.Logger)}
}

// crawlRun is the state shared by the workers of one run: the frontier
// bookkeeping and the aggregator. Everything else is worker-local.
type crawlRun struct {
	*CrawlController
	runID    string
	maxPages int
	agg      *RunAggregator
	queue    repository.QueueRepository
	visited  repository.VisitedRepository

	mu       sync.Mutex
	cond     *sync.Cond
	admitted int
	active   int
	drained  bool
	fatal    error
}

// Run crawls from seeds until the frontier is empty and no worker is active,
// or until the run deadline passes. The returned stats are finalized; the error
// is non-nil when the run failed.
func (c *CrawlController) Run(ctx context.Context, runID string, seeds []string, maxPages int) (entity.RunStats, error) {
	r := &crawlRun{
		CrawlController: c,
		runID:           runID,
		maxPages:        maxPages,
		agg:             NewRunAggregator(runID, c.deps.Metrics),
	}
	r.queue, r.visited = c.deps.Frontier(runID)
	r.cond = sync.NewCond(&r.mu)
	log := c.log.With(zap.String("run_id", runID))

	runCtx := ctx
	cancel := func() {}
	if c.cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.RunTimeout)
	}
	defer cancel()

	log.Info("run started",
		zap.Int("seeds", len(seeds)),
		zap.Int("max_pages", maxPages),
		zap.Int("workers", c.cfg.Workers),
		zap.Int("max_attempts", c.deps.Policy.MaxAttempts()),
	)

	for _, seed := range seeds {
		if _, err := r.admit(runCtx, seed); err != nil {
			r.setFatal(fmt.Errorf("seed frontier: %w", err))
			break
		}
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(c.cfg.Workers)
	// Wake the dispatcher when the run ends while it waits for work.
	stopWake := context.AfterFunc(gctx, r.wakeAll)
	defer stopWake()
	for {
		req, ok := r.next(gctx)
		if !ok {
			break
		}
		g.Go(func() error {
			defer r.finish()
			defer r.recoverWorker(gctx, req)
			r.process(gctx, req)
			return nil
		})
	}
	_ = g.Wait()

	runErr := r.outcome(ctx, runCtx)
	status := entity.RunSucceeded
	if runErr != nil {
		status = entity.RunFailed
	}
	stats, err := r.agg.Finalize(status, runErr)
	if err != nil {
		log.Error("finalize run stats", zap.Error(err))
	}
	log.Info("run finished",
		zap.String("status", string(stats.Status)),
		zap.Int("pages_processed", stats.PagesProcessed),
		zap.Int("pages_failed", stats.PagesFailed),
		zap.Int("retries", stats.RetriesIssued),
		zap.Error(runErr),
	)
	return stats, runErr
}

// outcome decides whether the run ended cleanly.
func (r *crawlRun) outcome(parent, runCtx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.fatal != nil:
		return r.fatal
	case r.drained:
		return nil
	case parent.Err() != nil:
		return fmt.Errorf("run aborted: %w", parent.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", entity.ErrRunTimeout, r.cfg.RunTimeout)
	default:
		return nil
	}
}

// admit puts rawURL in the frontier if it is new and the page budget allows it.
func (r *crawlRun) admit(ctx context.Context, rawURL string) (bool, error) {
	canonical, err := utils.CanonicalURL(rawURL)
	if err != nil {
		// Malformed URLs still get a request so the failure is counted.
		canonical = strings.TrimSpace(rawURL)
	}
	origin := ""
	if u, err := utils.ParseAbsolute(rawURL); err == nil {
		origin = utils.Origin(u)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.admitted >= r.maxPages {
		return false, nil
	}
	isNew, err := r.visited.MarkVisited(ctx, canonical)
	if err != nil {
		return false, fmt.Errorf("mark visited: %w", err)
	}
	if !isNew {
		return false, nil
	}
	req := entity.NewCrawlRequest(rawURL, canonical, origin)
	if err := r.queue.Push(ctx, req); err != nil {
		return false, fmt.Errorf("push %s: %w", rawURL, err)
	}
	r.admitted++
	r.setFrontierGauge(ctx)
	r.cond.Signal()
	return true, nil
}

// next blocks until a request is available. It returns false once the frontier
// is empty with no active workers, on a fatal error, or when ctx is done.
func (r *crawlRun) next(ctx context.Context) (*entity.CrawlRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if ctx.Err() != nil || r.fatal != nil {
			return nil, false
		}
		req, err := r.queue.Pop(ctx)
		switch {
		case err == nil:
			r.active++
			r.setFrontierGauge(ctx)
			return req, true
		case !errors.Is(err, entity.ErrQueueEmpty):
			if ctx.Err() == nil {
				r.fatal = fmt.Errorf("pop frontier: %w", err)
			}
			return nil, false
		case r.active == 0:
			r.drained = true
			return nil, false
		}
		r.cond.Wait()
	}
}

func (r *crawlRun) finish() {
	r.mu.Lock()
	r.active--
	r.cond.Broadcast()
	r.mu.Unlock()
}

func (r *crawlRun) requeue(ctx context.Context, req *entity.CrawlRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.queue.Push(ctx, req); err != nil {
		return err
	}
	r.setFrontierGauge(ctx)
	r.cond.Signal()
	return nil
}

func (r *crawlRun) setFatal(err error) {
	r.mu.Lock()
	if r.fatal == nil {
		r.fatal = err
	}
	r.cond.Broadcast()
	r.mu.Unlock()
}

func (r *crawlRun) wakeAll() {
	r.mu.Lock()
	r.cond.Broadcast()
	r.mu.Unlock()
}

// setFrontierGauge must be called with r.mu held.
func (r *crawlRun) setFrontierGauge(ctx context.Context) {
	if r.deps.Metrics == nil {
		return
	}
	size, err := r.queue.Size(ctx)
	if err != nil {
		r.log.Debug("frontier size unavailable", zap.String("run_id", r.runID), zap.Error(err))
		return
	}
	r.deps.Metrics.FrontierSize.Set(float64(size))
}

// recoverWorker turns a panic while processing req into a terminal failure of
// that page. The run carries on with the other requests.
func (r *crawlRun) recoverWorker(ctx context.Context, req *entity.CrawlRequest) {
	rec := recover()
	if rec == nil {
		return
	}
	log := r.log.With(
		zap.String("run_id", r.runID),
		zap.String("request_id", req.ID),
		zap.String("url", req.URL),
	)
	log.Error("worker panicked", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
	cause := entity.NonRetryable("panic while processing page: %v", rec)
	r.deps.Policy.OnAttemptResult(req, cause)
	r.fail(context.WithoutCancel(ctx), req, cause, log)
}

// process runs one attempt of req and applies the retry policy's decision.
func (r *crawlRun) process(ctx context.Context, req *entity.CrawlRequest) {
	log := r.log.With(
		zap.String("run_id", r.runID),
		zap.String("request_id", req.ID),
		zap.String("url", req.URL),
		zap.Int("attempt", req.AttemptCount+1),
	)

	attemptCtx := ctx
	if r.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.AttemptTimeout)
		defer cancel()
	}

	attemptErr := r.attempt(attemptCtx, req, log)
	// A stored result is counted even when the run ended meanwhile.
	if attemptErr != nil && ctx.Err() != nil {
		log.Warn("attempt abandoned", zap.Error(ctx.Err()))
		return
	}

	decision := r.deps.Policy.OnAttemptResult(req, attemptErr)
	switch decision.Kind {
	case DecisionSucceeded:
		r.must(r.agg.RecordSuccess(), log)
		progress := r.agg.Snapshot()
		log.Info("page processed",
			zap.Int("pages_processed", progress.PagesProcessed),
			zap.Int("pages_failed", progress.PagesFailed),
		)

	case DecisionRetry:
		r.must(r.agg.RecordRetry(), log)
		if r.deps.Metrics != nil {
			r.deps.Metrics.RetriesTotal.WithLabelValues(entity.ErrorKind(attemptErr)).Inc()
		}
		log.Warn("attempt failed, retrying",
			zap.Error(attemptErr),
			zap.Bool("new_session", decision.NewSession),
			zap.Duration("backoff", decision.Backoff),
		)
		if !sleepCtx(ctx, decision.Backoff) {
			return
		}
		if err := r.requeue(ctx, req); err != nil {
			log.Error("requeue failed, giving up on request", zap.Error(err))
			r.fail(ctx, req, fmt.Errorf("requeue: %w", err), log)
		}

	case DecisionFailed:
		r.fail(ctx, req, attemptErr, log)
	}
}

// attempt is render → extract → expand → analyze → persist.
func (r *crawlRun) attempt(ctx context.Context, req *entity.CrawlRequest, log *zap.Logger) error {
	target, err := utils.ParseAbsolute(req.URL)
	if err != nil {
		return entity.NonRetryable("malformed url %q: %v", req.URL, err)
	}
	if r.deps.Expander.Excluded(target) {
		return entity.NonRetryable("excluded resource type %q", req.URL)
	}

	session := r.deps.Sessions.Bind(req.SessionID)
	start := time.Now()
	page, err := r.deps.Renderer.Render(ctx, req.URL, session, repository.RenderOptions{
		Screenshot: r.cfg.IncludeScreenshots,
	})
	if r.deps.Metrics != nil {
		r.deps.Metrics.RenderDuration.WithLabelValues(target.Hostname()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return err
	}

	text := r.deps.Extractor.Extract(page)

	enqueued := 0
	for link := range r.deps.Expander.Expand(req.URL, page) {
		added, err := r.admit(ctx, link)
		if err != nil {
			log.Warn("enqueue link failed", zap.String("link", link), zap.Error(err))
			continue
		}
		if added {
			enqueued++
		}
	}
	log.Debug("page rendered", zap.Int("text_len", len(text.Text)), zap.Int("links_enqueued", enqueued))

	analysis, err := r.deps.Analyzer.Analyze(ctx, text.Text)
	if err != nil {
		return err
	}

	result := &entity.PageResult{
		RunID:     r.runID,
		URL:       req.URL,
		Analysis:  analysis,
		Timestamp: time.Now().UTC(),
	}
	if r.cfg.IncludeScreenshots && len(page.Screenshot) > 0 && r.deps.Blobs != nil {
		key := repository.ScreenshotKey(req.ID)
		if err := r.deps.Blobs.PutBytes(ctx, r.runID, key, page.Screenshot, screenshotContent); err != nil {
			log.Warn("store screenshot failed", zap.Error(err))
		} else {
			result.ScreenshotID = req.ID
		}
	}
	if err := r.deps.Results.Append(ctx, result); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

// fail records a terminal failure.
func (r *crawlRun) fail(ctx context.Context, req *entity.CrawlRequest, cause error, log *zap.Logger) {
	r.must(r.agg.RecordFailure(), log)
	log.Error("request failed", zap.Error(cause), zap.String("kind", entity.ErrorKind(cause)))

	if r.deps.Failures == nil {
		return
	}
	failed := &entity.FailedRequest{
		RunID:         r.runID,
		RequestID:     req.ID,
		URL:           req.URL,
		ErrorKind:     entity.ErrorKind(cause),
		FailureReason: cause.Error(),
		AttemptCount:  req.AttemptCount,
		LastAttemptAt: time.Now().UTC(),
	}
	var unavailable *entity.AnalysisUnavailableError
	if errors.As(cause, &unavailable) {
		failed.TruncatedSourceText = unavailable.TruncatedSourceText
	}
	if err := r.deps.Failures.Save(ctx, failed); err != nil {
		log.Error("save failed request", zap.Error(err))
	}
}

func (r *crawlRun) must(err error, log *zap.Logger) {
	if err != nil {
		log.Error("run aggregator rejected update", zap.Error(err))
	}
}

// sleepCtx waits for d and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
