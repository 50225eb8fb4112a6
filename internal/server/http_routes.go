package server

import (
	"net/http"

	"formpilot/internal/observability"
	"formpilot/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

type middleware func(http.HandlerFunc) http.HandlerFunc

func chain(h http.HandlerFunc, mws ...middleware) http.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware()
	sizeLimit := s.requestSizeLimitMiddleware()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	api := func(h http.HandlerFunc) http.HandlerFunc {
		return chain(h, rateLimit, s.apiKeyMiddleware, sizeLimit)
	}
	if s.deps.Questions != nil {
		mux.HandleFunc("POST /api/process-questions", api(s.processQuestionsHandler))
	}
	if s.deps.CoverLetters != nil {
		mux.HandleFunc("POST /api/generate-cover-letter", api(s.coverLetterHandler))
	}
	if s.deps.Choices != nil {
		mux.HandleFunc("POST /api/radio/answer", api(s.choiceHandler(types.ChoiceRadio)))
		mux.HandleFunc("POST /api/checkbox/answer", api(s.choiceHandler(types.ChoiceCheckbox)))
	}
	if s.deps.Applications != nil {
		mux.HandleFunc("POST /api/applications", api(s.createApplicationHandler))
		mux.HandleFunc("PATCH /api/applications/{id}", api(s.updateApplicationHandler))
	}

	if s.deps.Auth != nil {
		mux.HandleFunc("POST /api/auth/email", chain(s.emailHandler, rateLimit, sizeLimit))
		mux.HandleFunc("GET /api/auth/verify", chain(s.verifyHandler, rateLimit))

		if s.deps.Resumes != nil {
			user := func(h http.HandlerFunc) http.HandlerFunc {
				return chain(h, rateLimit, s.bearerMiddleware, s.verifiedMiddleware)
			}
			mux.HandleFunc("GET /api/resume/upload-url", user(s.uploadURLHandler))
			mux.HandleFunc("GET /api/resume", user(s.listResumesHandler))
			mux.HandleFunc("GET /api/resume/{fileId...}", user(s.readURLHandler))
			mux.HandleFunc("DELETE /api/resume/{fileId...}", user(s.deleteResumeHandler))
		}
	}

	return s.corsMiddleware(mux)
}

// apiKeyMiddleware provides API key authentication
func (s *Server) apiKeyMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", clientIP(r))
			writeErrorResponse(w, ErrorResponse{Error: "Missing API key", Message: "X-API-Key header or Authorization Bearer token required"}, http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", clientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, ErrorResponse{Error: "Invalid API key", Message: "Unauthorized access"}, http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))
		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}

// corsMiddleware answers preflight requests and sets CORS headers for
// allowed origins. An empty allow-list allows every origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (len(s.AllowedOrigins) == 0 || s.AllowedOrigins[origin]) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware rejects requests over the per-key budget.
func (s *Server) rateLimitMiddleware() middleware {
	if s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r, s.RateLimit)
			if key == "" || s.RateLimiter.Allow(key) {
				next(w, r)
				return
			}

			s.Logger.Info("Rate limit exceeded",
				"endpoint", r.URL.Path,
				"client_ip", clientIP(r))
			s.om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, false,
				attribute.String("endpoint", r.URL.Path))
			writeErrorResponse(w, ErrorResponse{Error: "Rate limit exceeded", Message: "Too many requests"}, http.StatusTooManyRequests)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
