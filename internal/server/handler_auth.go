package server

import (
	"context"
	"net/http"
	"strings"

	"formpilot/internal/auth"
	"formpilot/internal/errors"
	"formpilot/internal/observability"
	"formpilot/internal/schema"
)

type claimsKey struct{}
type tokenKey struct{}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

// emailHandler starts passwordless sign-in for an email address.
func (s *Server) emailHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.EmailRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, err, "Failed to process email")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if vs := schema.Struct(req, ""); len(vs) > 0 {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid email", nil).WithViolations(vs), "")
		return
	}

	res, err := s.deps.Auth.RequestVerification(r.Context(), req.Email)
	if err != nil {
		s.writeAppError(w, r, err, "Failed to process email")
		return
	}
	if res.Token == "" {
		s.om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricVerificationEmail, true)
	}
	writeJSON(w, http.StatusOK, res)
}

// verifyHandler confirms the token from a verification link.
func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Auth.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.writeAppError(w, r, err, "Failed to verify email")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// bearerMiddleware requires a valid signed token in the Authorization header.
func (s *Server) bearerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeErrorResponse(w, ErrorResponse{Error: "Unauthorized", Message: "No token provided"}, http.StatusUnauthorized)
			return
		}
		claims, err := s.deps.Auth.Authenticate(token)
		if err != nil {
			writeErrorResponse(w, ErrorResponse{Error: "Unauthorized", Message: "Invalid or expired token"}, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		ctx = context.WithValue(ctx, tokenKey{}, token)
		next(w, r.WithContext(ctx))
	}
}

// verifiedMiddleware requires the bearer token to have been verified.
func (s *Server) verifiedMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := r.Context().Value(tokenKey{}).(string)
		ok, err := s.deps.Auth.IsVerified(r.Context(), token)
		if err != nil {
			s.writeAppError(w, r, err, "Failed to check verification")
			return
		}
		if !ok {
			s.writeAppError(w, r, errors.NewForbiddenError(errors.ErrCodeNotVerified, "Email verification required", nil), "")
			return
		}
		next(w, r)
	}
}
