package observability

import (
	"context"
	"fmt"
	"time"

	"formpilot/internal/ai"
	"formpilot/internal/config"
	"formpilot/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Business metric names accepted by RecordBusinessMetric.
const (
	MetricCoverLetter       = "cover_letter_generated"
	MetricChoiceAnswered    = "choice_answered"
	MetricVerificationEmail = "verification_email_sent"
	MetricResumeSigned      = "resume_signed"
	MetricRateLimitHit      = "rate_limit_hit"
)

// Metrics holds all custom metrics
type Metrics struct {
	settings config.CustomMetricsConfig

	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Business metrics
	QuestionBatches    metric.Int64Counter
	QuestionsAnswered  metric.Int64Counter
	AnswersSuppressed  metric.Int64Counter
	BatchSize          metric.Int64Histogram
	CoverLetters       metric.Int64Counter
	ChoicesAnswered    metric.Int64Counter
	VerificationEmails metric.Int64Counter
	ResumesSigned      metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

func newMetrics(meter metric.Meter, settings config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{settings: settings}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram("formpilot_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram("formpilot_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens")); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}
	if m.BatchSize, err = meter.Int64Histogram("formpilot_question_batch_size",
		metric.WithDescription("Number of questions per processed batch")); err != nil {
		return nil, fmt.Errorf("failed to create batch size metric: %w", err)
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.AIRequestCount, "formpilot_ai_requests_total", "Total number of AI requests"},
		{&m.AIErrorCount, "formpilot_ai_errors_total", "Total number of AI request errors"},
		{&m.QuestionBatches, "formpilot_question_batches_total", "Total number of question batches processed"},
		{&m.QuestionsAnswered, "formpilot_questions_answered_total", "Total number of questions that received an answer"},
		{&m.AnswersSuppressed, "formpilot_answers_suppressed_total", "Total number of model answers dropped during reconciliation"},
		{&m.CoverLetters, "formpilot_cover_letters_total", "Total number of cover letters generated"},
		{&m.ChoicesAnswered, "formpilot_choice_answers_total", "Total number of radio and checkbox answers"},
		{&m.VerificationEmails, "formpilot_verification_emails_total", "Total number of verification emails sent"},
		{&m.ResumesSigned, "formpilot_resume_urls_signed_total", "Total number of signed resume URLs issued"},
		{&m.RateLimitHits, "formpilot_rate_limit_hits_total", "Total number of rate limit hits"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}

	return m, nil
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *types.TokenUsage
}

// TrackAIOperationWithTokens instruments an AI operation with tracing,
// metrics and token usage.
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	if m.AIProcessingTime == nil {
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := otel.Tracer("formpilot.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	if m.settings.AIOperations.Enabled {
		if m.settings.AIOperations.TrackDuration {
			m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
		}
		m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if result != nil && result.TokenUsage != nil && m.settings.AIOperations.TrackTokenUsage {
			m.recordTokenUsage(ctx, operation, result.TokenUsage)
		}
	}
	span.SetAttributes(attrs...)
	if result != nil && result.TokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", int64(result.TokenUsage.PromptTokens)),
			attribute.Int64("ai.tokens.output", int64(result.TokenUsage.CompletionTokens)),
			attribute.Int64("ai.tokens.total", int64(result.TokenUsage.TotalTokens)),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ai operation failed")
	}
	return err
}

func (m *Metrics) recordTokenUsage(ctx context.Context, operation string, usage *types.TokenUsage) {
	for _, tt := range []struct {
		kind  string
		value int32
	}{
		{"input", usage.PromptTokens},
		{"output", usage.CompletionTokens},
		{"total", usage.TotalTokens},
	} {
		m.AITokenUsage.Record(ctx, int64(tt.value), metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.kind),
		))
	}
}

// BatchProcessed records the outcome of one question batch.
func (m *Metrics) BatchProcessed(ctx context.Context, size int, stats types.ReconcileStats, err error) {
	if m.QuestionBatches == nil || !m.settings.BusinessMetrics.Enabled {
		return
	}
	success := metric.WithAttributes(attribute.Bool("success", err == nil))
	m.QuestionBatches.Add(ctx, 1, success)
	if m.settings.BusinessMetrics.TrackBatchSizes {
		m.BatchSize.Record(ctx, int64(size), success)
	}
	if err != nil {
		return
	}
	m.QuestionsAnswered.Add(ctx, int64(stats.Matched))
	if dropped := stats.Unmatched + stats.Suppressed; dropped > 0 {
		m.AnswersSuppressed.Add(ctx, int64(dropped))
	}
}

// RecordBusinessMetric records one occurrence of a named business metric.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, name string, success bool, attributes ...attribute.KeyValue) {
	attrs := metric.WithAttributes(append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)...)

	if name == MetricRateLimitHit {
		if m.RateLimitHits != nil && m.settings.Infrastructure.TrackRateLimits {
			m.RateLimitHits.Add(ctx, 1, attrs)
		}
		return
	}
	if !m.settings.BusinessMetrics.Enabled {
		return
	}

	var counter metric.Int64Counter
	switch name {
	case MetricCoverLetter:
		counter = m.CoverLetters
	case MetricChoiceAnswered:
		counter = m.ChoicesAnswered
	case MetricVerificationEmail:
		counter = m.VerificationEmails
	case MetricResumeSigned:
		counter = m.ResumesSigned
	}
	if counter != nil {
		counter.Add(ctx, 1, attrs)
	}
}

// AnswerGenerator is the answer generation call of the question pipeline.
type AnswerGenerator interface {
	GenerateAnswers(ctx context.Context, prompt ai.Prompt) ([]byte, *types.TokenUsage, error)
}

type trackedGenerator struct {
	metrics   *Metrics
	operation string
	next      AnswerGenerator
}

// TrackGenerator wraps g so every call is traced and counted under operation.
func (m *Metrics) TrackGenerator(operation string, g AnswerGenerator) AnswerGenerator {
	return &trackedGenerator{metrics: m, operation: operation, next: g}
}

func (t *trackedGenerator) GenerateAnswers(ctx context.Context, prompt ai.Prompt) ([]byte, *types.TokenUsage, error) {
	var (
		raw   []byte
		usage *types.TokenUsage
	)
	err := t.metrics.TrackAIOperationWithTokens(ctx, t.operation, func(ctx context.Context) *AIOperationResult {
		var err error
		raw, usage, err = t.next.GenerateAnswers(ctx, prompt)
		return &AIOperationResult{Error: err, TokenUsage: usage}
	})
	return raw, usage, err
}
