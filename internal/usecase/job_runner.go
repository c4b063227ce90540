package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/repository"
	"github.com/user/bizanalyzer/pkg/logger"
)

// Crawler runs one crawl over a seed set.
type Crawler interface {
	Run(ctx context.Context, runID string, seeds []string, maxPages int) (entity.RunStats, error)
}

// JobRunner validates job input, records the run configuration, drives the
// crawl and always stores the terminal run summary exactly once.
type JobRunner struct {
	crawler  Crawler
	blobs    repository.BlobStore
	sessions repository.SessionProvider
	logger   *zap.Logger
	newRunID func() string
}

// NewJobRunner creates a JobRunner.
func NewJobRunner(c Crawler, blobs repository.BlobStore, sessions repository.SessionProvider, l *zap.Logger) *JobRunner {
	return &JobRunner{
		crawler:  c,
		blobs:    blobs,
		sessions: sessions,
		logger:   logger.OrNop(l),
		newRunID: uuid.NewString,
	}
}

// ValidateInput applies defaults and rejects unusable input before any work starts.
func ValidateInput(in *entity.JobInput) error {
	if len(in.StartURLs) == 0 {
		return &entity.ConfigurationError{Field: "startUrls", Reason: "at least one URL must be provided"}
	}
	for i, s := range in.StartURLs {
		if s.URL == "" {
			return &entity.ConfigurationError{Field: fmt.Sprintf("startUrls[%d]", i), Reason: "url is empty"}
		}
	}
	if in.MaxPagesToCrawl == 0 {
		in.MaxPagesToCrawl = 1
	}
	if in.MaxPagesToCrawl < 1 {
		return &entity.ConfigurationError{Field: "maxPagesToCrawl", Reason: "must be at least 1"}
	}
	return nil
}

// Run executes one job. A ConfigurationError is returned before anything is
// stored or fetched. Otherwise the CRAWLER_RESULT record is written on every path.
func (j *JobRunner) Run(ctx context.Context, in entity.JobInput) (stats entity.RunStats, err error) {
	if err := ValidateInput(&in); err != nil {
		return entity.RunStats{}, err
	}

	runID := j.newRunID()
	log := j.logger.With(zap.String("run_id", runID))

	runCfg := entity.RunConfig{
		RunID:              runID,
		MaxPagesToCrawl:    in.MaxPagesToCrawl,
		IncludeScreenshots: in.IncludeScreenshots,
		StartTime:          time.Now().UTC(),
		StartURLs:          in.URLs(),
	}
	if j.sessions != nil {
		runCfg.ProxyConfig = j.sessions.Describe()
	}
	if err := j.blobs.PutJSON(ctx, runID, repository.KeyConfig, runCfg); err != nil {
		log.Error("store run config", zap.Error(err))
	}

	stats = entity.RunStats{RunID: runID, StartedAt: runCfg.StartTime, Status: entity.RunRunning}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("run panicked: %v", rec)
			ended := time.Now().UTC()
			stats.EndedAt = &ended
			stats.Status = entity.RunFailed
			stats.Error = err.Error()
		}
		j.storeResult(log, runID, stats)
	}()

	stats, err = j.crawler.Run(ctx, runID, runCfg.StartURLs, in.MaxPagesToCrawl)
	return stats, err
}

func (j *JobRunner) storeResult(log *zap.Logger, runID string, stats entity.RunStats) {
	// The caller's context may already be cancelled; the summary must still land.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := j.blobs.PutJSON(ctx, runID, repository.KeyCrawlerResult, stats.Summary()); err != nil {
		log.Error("store run result", zap.Error(err))
	}
}

// IsConfigurationError reports whether err must abort the process before any crawling.
func IsConfigurationError(err error) bool {
	return errors.Is(err, entity.ErrConfiguration)
}
