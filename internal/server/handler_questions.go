package server

import (
	"context"
	"net/http"

	"formpilot/internal/ai"
	"formpilot/internal/errors"
	"formpilot/internal/observability"
	"formpilot/internal/schema"
	"formpilot/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// processQuestionsHandler answers a question batch. The body is handed to
// the pipeline unparsed so the batch validator sees it exactly as sent.
func (s *Server) processQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("formpilot.api").Start(r.Context(), "api.process_questions")
	defer span.End()

	body, err := readBody(r)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err, "Failed to process questions with AI")
		return
	}

	result, err := s.deps.Questions.Process(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
		s.writeAppError(w, r, err, "Failed to process questions with AI")
		return
	}

	span.SetAttributes(
		attribute.Int("questions", len(result.Answers)),
		attribute.Int("answers.matched", result.Stats.Matched),
		attribute.Int("answers.suppressed", result.Stats.Suppressed),
	)
	writeJSON(w, http.StatusOK, result.Answers)
}

// coverLetterHandler writes a cover letter grounded in the profile.
func (s *Server) coverLetterHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("formpilot.api").Start(r.Context(), "api.cover_letter")
	defer span.End()

	var req types.CoverLetterRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, err, "Failed to generate cover letter")
		return
	}
	if vs := schema.Struct(req, ""); len(vs) > 0 {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid cover letter request", nil).WithViolations(vs), "")
		return
	}

	metrics := s.om.GetMetrics()
	var letter *types.CoverLetterResponse
	err := metrics.TrackAIOperationWithTokens(ctx, ai.OperationCoverLetter, func(ctx context.Context) *observability.AIOperationResult {
		out, usage, err := s.deps.CoverLetters.GenerateCoverLetter(ctx, s.deps.Profile, req.JobDetails, req.UserInput)
		letter = out
		return &observability.AIOperationResult{Error: err, TokenUsage: usage}
	})
	if err != nil {
		span.RecordError(err)
		metrics.RecordBusinessMetric(ctx, observability.MetricCoverLetter, false)
		s.writeAppError(w, r, err, "Failed to generate cover letter")
		return
	}

	metrics.RecordBusinessMetric(ctx, observability.MetricCoverLetter, true,
		attribute.Int("output.length", len(letter.CoverLetter)))
	writeJSON(w, http.StatusOK, letter)
}

// choiceHandler answers a radio or checkbox group from raw HTML.
func (s *Server) choiceHandler(mode types.ChoiceMode) http.HandlerFunc {
	failure := "Failed to process " + string(mode) + " questions"
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.om.Tracer("formpilot.api").Start(r.Context(), "api.choice."+string(mode))
		defer span.End()

		var req types.ChoiceRequest
		if err := parseJSONRequest(r, &req); err != nil {
			s.writeAppError(w, r, err, failure)
			return
		}
		if vs := schema.Struct(req, ""); len(vs) > 0 {
			s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid choice request", nil).WithViolations(vs), failure)
			return
		}

		metrics := s.om.GetMetrics()
		var answer *types.ChoiceAnswer
		err := metrics.TrackAIOperationWithTokens(ctx, ai.OperationChoice, func(ctx context.Context) *observability.AIOperationResult {
			out, usage, err := s.deps.Choices.SelectChoices(ctx, s.deps.Profile, mode, req)
			answer = out
			return &observability.AIOperationResult{Error: err, TokenUsage: usage}
		})
		metrics.RecordBusinessMetric(ctx, observability.MetricChoiceAnswered, err == nil, attribute.String("mode", string(mode)))
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, r, err, failure)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"answer": answer})
	}
}
