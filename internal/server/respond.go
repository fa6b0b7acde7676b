package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"fitchallenge/internal/auth"
	"fitchallenge/internal/forms"
	"fitchallenge/internal/gateway"
	"fitchallenge/internal/mutation"
	"fitchallenge/internal/views"
)

type apiResponse struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Notices []mutation.Notice `json:"notices,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.entry.WithError(err).Warn("encoding response")
	}
}

func (s *Server) ok(w http.ResponseWriter, status int, data any) {
	s.writeJSON(w, status, apiResponse{Success: true, Data: data})
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, apiResponse{Success: false, Error: msg})
}

func (s *Server) invalid(w http.ResponseWriter, err error) {
	fields, ok := forms.Fields(err)
	if !ok {
		s.fail(w, http.StatusBadRequest, "Invalid request.")
		return
	}
	s.writeJSON(w, http.StatusUnprocessableEntity, apiResponse{
		Success: false,
		Error:   "Please fix the highlighted fields.",
		Fields:  fields,
	})
}

// viewError reports a read failure with the view's own message.
func (s *Server) viewError(w http.ResponseWriter, err error) {
	var le *views.LoadError
	if errors.As(err, &le) {
		s.fail(w, http.StatusServiceUnavailable, le.Message)
		return
	}
	s.fail(w, http.StatusServiceUnavailable, "Could not load data.")
}

// mutated answers a mutation with the notices it produced.
func (s *Server) mutated(w http.ResponseWriter, rec *mutation.Recorder, status int, data any, err error) {
	resp := apiResponse{Notices: rec.Notices()}
	last, _ := rec.Last()
	if err != nil {
		resp.Error = last.Message
		s.writeJSON(w, statusFor(err), resp)
		return
	}
	resp.Success = true
	resp.Data = data
	resp.Message = last.Message
	s.writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
