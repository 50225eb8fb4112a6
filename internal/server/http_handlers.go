package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"formpilot/internal/errors"
)

func (s *Server) healthCheckTimeout() time.Duration {
	if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
		return t
	}
	return 15 * time.Second
}

// healthHandler reports model availability, breaker state and database
// reachability.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.healthCheckTimeout())
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "formpilot",
		"version": s.Version,
	}
	healthy := true

	models := make(map[string]any, len(s.deps.Models))
	breakers := make(map[string]any, len(s.deps.Models))
	for _, m := range s.deps.Models {
		info := m.GetModelInfo(ctx)
		models[m.Operation()] = info
		breakers[m.Operation()] = m.CircuitBreakerStats()
		if info == nil || !info.Available {
			healthy = false
		}
	}
	response["ai_models"] = models
	response["circuit_breakers"] = breakers

	if s.deps.DB != nil {
		db := map[string]any{"available": true}
		if err := s.deps.DB.Ping(ctx); err != nil {
			db["available"] = false
			db["error"] = err.Error()
			healthy = false
		}
		response["database"] = db
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "formpilot",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"request_profile":        s.AppConfig.Questions.RequestProfile,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	breakers := make(map[string]any, len(s.deps.Models))
	for _, m := range s.deps.Models {
		breakers[m.Operation()] = m.CircuitBreakerStats()
	}
	response["circuit_breakers"] = breakers

	writeJSON(w, http.StatusOK, response)
}

// readBody reads a JSON request body.
func readBody(r *http.Request) ([]byte, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", err)
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to read request body", err)
	}
	return body, nil
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON", err).
			WithViolations([]errors.Violation{{Message: "body is not valid JSON: " + err.Error()}})
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse, statusCode int) {
	writeJSON(w, statusCode, resp)
}

var notFoundTitles = map[string]string{
	errors.ErrCodeUserNotFound:   "User not found",
	errors.ErrCodeTokenNotFound:  "Token not found",
	errors.ErrCodeResumeNotFound: "File not found or access denied",
	errors.ErrCodeAppNotFound:    "Application not found",
}

// errorResponseFor maps an error to its status and body. failure is the
// message shown for server-side errors, whose detail stays in the log.
func errorResponseFor(err error, failure string) (int, ErrorResponse) {
	appErr, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error", Message: failure}
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation:
		details := appErr.Violations
		if len(details) == 0 {
			details = []errors.Violation{{Message: appErr.Message}}
		}
		return http.StatusBadRequest, ErrorResponse{Error: "Validation Error", Message: appErr.Message, Details: details}
	case errors.ErrorTypeNotFound:
		title, ok := notFoundTitles[appErr.Code]
		if !ok {
			title = "Not Found"
		}
		return http.StatusNotFound, ErrorResponse{Error: title, Message: appErr.Message}
	case errors.ErrorTypeAuth:
		return http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: appErr.Message}
	case errors.ErrorTypeForbidden:
		return http.StatusForbidden, ErrorResponse{Error: "Forbidden", Message: appErr.Message}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error", Message: failure, Code: appErr.Code}
	}
}

// writeAppError logs server-side failures and writes the mapped response.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	status, resp := errorResponseFor(err, failure)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, failure, "endpoint", r.URL.Path)
	}
	writeErrorResponse(w, resp, status)
}
