package server

import (
	"context"
	"net/http"

	"fitchallenge/internal/forms"
	"fitchallenge/internal/models"
)

func (s *Server) handleListCompetitors(w http.ResponseWriter, r *http.Request) {
	list, err := s.Views.Competitors(r.Context())
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.ok(w, http.StatusOK, list)
}

func (s *Server) handleAddCompetitor(w http.ResponseWriter, r *http.Request) {
	var form forms.CompetitorForm
	if err := decodeJSON(w, r, &form); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid request.")
		return
	}
	if err := form.Validate(); err != nil {
		s.invalid(w, err)
		return
	}

	rec, n := s.notifier(r)
	var created *models.Competitor
	err := s.run(r.Context(), n, opAddCompetitor, func(ctx context.Context) error {
		var err error
		created, err = s.Gateway.InsertCompetitor(ctx, form.Name)
		return err
	})
	s.mutated(w, rec, http.StatusCreated, created, err)
}

func (s *Server) handleEditCompetitor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var form forms.CompetitorForm
	if err := decodeJSON(w, r, &form); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid request.")
		return
	}
	if err := form.Validate(); err != nil {
		s.invalid(w, err)
		return
	}

	rec, n := s.notifier(r)
	err := s.run(r.Context(), n, opEditCompetitor, func(ctx context.Context) error {
		return s.Gateway.UpdateCompetitor(ctx, id, form.Name)
	})
	s.mutated(w, rec, http.StatusOK, map[string]string{"id": id, "name": form.Name}, err)
}

func (s *Server) handleDeleteCompetitor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, n := s.notifier(r)
	err := s.run(r.Context(), n, opDeleteCompetitor, func(ctx context.Context) error {
		return s.Gateway.DeleteCompetitor(ctx, id)
	})
	s.mutated(w, rec, http.StatusOK, nil, err)
}
