package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"formpilot/internal/errors"
	"formpilot/internal/schema"
	"formpilot/internal/store"
	"formpilot/internal/types"
)

var knownApplicationFields = []string{"userId", "jobDesc", "title", "employer", "applicationUrl"}

// createApplicationHandler stores a new application. Fields beyond the known
// ones are kept verbatim as extra JSON.
func (s *Server) createApplicationHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeAppError(w, r, err, "Failed to create application")
		return
	}

	var req types.CreateApplicationRequest
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "body must be a JSON object", err), "")
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid application fields", err), "")
		return
	}
	if vs := schema.Struct(req, ""); len(vs) > 0 {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid application", nil).WithViolations(vs), "")
		return
	}

	for _, k := range knownApplicationFields {
		delete(fields, k)
	}
	var extra json.RawMessage
	if len(fields) > 0 {
		if extra, err = json.Marshal(fields); err != nil {
			s.writeAppError(w, r, err, "Failed to create application")
			return
		}
	}

	app, err := s.deps.Applications.CreateApplication(r.Context(), types.Application{
		UserID:         req.UserID,
		Title:          req.Title,
		Employer:       req.Employer,
		JobDesc:        req.JobDesc,
		ApplicationURL: req.ApplicationURL,
		Extra:          extra,
	})
	if err != nil {
		s.writeAppError(w, r, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "create application", err), "Failed to create application")
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// updateApplicationHandler changes the status of the caller's application.
func (s *Server) updateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "application id must be a positive integer", err), "")
		return
	}

	var req types.UpdateApplicationRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, err, "Failed to update application")
		return
	}
	if vs := schema.Struct(req, ""); len(vs) > 0 {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid status update", nil).WithViolations(vs), "")
		return
	}

	app, err := s.deps.Applications.UpdateApplicationStatus(r.Context(), id, req.UserID, req.Status)
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		s.writeAppError(w, r, errors.NewNotFoundError(errors.ErrCodeAppNotFound, "Application not found or does not belong to user", nil), "")
		return
	case err != nil:
		s.writeAppError(w, r, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "update application", err), "Failed to update application")
		return
	}
	writeJSON(w, http.StatusOK, app)
}
