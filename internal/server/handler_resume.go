package server

import (
	"net/http"

	"formpilot/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

func (s *Server) uploadURLHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	q := r.URL.Query()

	ticket, err := s.deps.Resumes.CreateUploadURL(r.Context(), claims.UserID, q.Get("fileName"), q.Get("contentType"))
	if err != nil {
		s.writeAppError(w, r, err, "Failed to generate upload URL")
		return
	}
	s.om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricResumeSigned, true, attribute.String("method", "PUT"))
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) readURLHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	url, err := s.deps.Resumes.SignedReadURL(r.Context(), claims.UserID, r.PathValue("fileId"))
	if err != nil {
		s.writeAppError(w, r, err, "Failed to generate read URL")
		return
	}
	s.om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricResumeSigned, true, attribute.String("method", "GET"))
	writeJSON(w, http.StatusOK, map[string]string{"signedUrl": url})
}

func (s *Server) listResumesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Resumes.List(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.writeAppError(w, r, err, "Failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) deleteResumeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Resumes.Delete(r.Context(), claimsFrom(r.Context()).UserID, r.PathValue("fileId")); err != nil {
		s.writeAppError(w, r, err, "Failed to delete file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
