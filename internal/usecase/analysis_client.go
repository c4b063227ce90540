package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/repository"
	"github.com/user/bizanalyzer/pkg/logger"
	"github.com/user/bizanalyzer/pkg/metrics"
)

const (
	// DefaultMaxAnalysisChars keeps the prompt well inside the model context.
	DefaultMaxAnalysisChars = 15000
	// degradedExcerptChars is how much source text a degraded record keeps.
	degradedExcerptChars = 300

	analysisSystemPrompt = "You are an expert at analyzing business websites and extracting key information. " +
		"Always answer with a single valid JSON object and nothing else."

	analysisPromptTemplate = `Analyze this business website text and extract key information.
Website text: %q

Return ONLY a JSON object with these fields:
- title: the business name or title
- businessType: the type or category of business
- observations: an array of key observations about their offerings and what sets them apart
- contactInfo: optional object with email, phone and address when found
- socialMedia: optional object mapping platform name to profile URL

Do not wrap the JSON in markdown and do not add any commentary.`

	noVisibleTextMessage = "no visible text extracted from page"
)

// AnalysisClient derives a BusinessAnalysis from page text with one model call.
type AnalysisClient struct {
	completer repository.Completer
	maxChars  int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewAnalysisClient creates an AnalysisClient. maxChars <= 0 uses DefaultMaxAnalysisChars.
func NewAnalysisClient(c repository.Completer, maxChars int, m *metrics.Metrics, l *zap.Logger) *AnalysisClient {
	if maxChars <= 0 {
		maxChars = DefaultMaxAnalysisChars
	}
	return &AnalysisClient{completer: c, maxChars: maxChars, metrics: m, logger: logger.OrNop(l)}
}

// Analyze returns the parsed analysis, or a degraded one when the model output
// is not a JSON object. The only error is *entity.AnalysisUnavailableError,
// returned when the completion call itself failed.
func (a *AnalysisClient) Analyze(ctx context.Context, text string) (entity.BusinessAnalysis, error) {
	truncated := truncateRunes(text, a.maxChars)
	if len(bytes.TrimSpace([]byte(truncated))) == 0 {
		result := entity.UnavailableAnalysis(noVisibleTextMessage, "")
		a.observe(result.Kind)
		return result, nil
	}

	prompt := entity.Prompt{
		System: analysisSystemPrompt,
		User:   fmt.Sprintf(analysisPromptTemplate, truncated),
	}

	start := time.Now()
	raw, err := a.completer.Complete(ctx, prompt)
	if a.metrics != nil {
		a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return entity.BusinessAnalysis{}, &entity.AnalysisUnavailableError{
			Message:             err.Error(),
			TruncatedSourceText: truncateRunes(text, degradedExcerptChars),
			Err:                 err,
		}
	}

	result := ParseAnalysis(raw)
	if result.Degraded() {
		a.logger.Warn("model returned unparseable analysis", zap.Int("output_len", len(raw)))
	}
	a.observe(result.Kind)
	return result, nil
}

func (a *AnalysisClient) observe(kind entity.AnalysisKind) {
	if a.metrics != nil {
		a.metrics.AnalysisTotal.WithLabelValues(string(kind)).Inc()
	}
}

// ParseAnalysis resolves model output into the Parsed or Unparsed shape.
// Only a strict JSON object is accepted; nothing is repaired.
func ParseAnalysis(raw string) entity.BusinessAnalysis {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return entity.UnparsedAnalysis(raw)
	}
	var profile entity.BusinessProfile
	if err := json.Unmarshal(trimmed, &profile); err != nil {
		return entity.UnparsedAnalysis(raw)
	}
	return entity.ParsedAnalysis(&profile)
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for idx := range s {
		if i == n {
			return s[:idx]
		}
		i++
	}
	return s
}
