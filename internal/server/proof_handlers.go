package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"fitchallenge/internal/auth"
	"fitchallenge/internal/forms"
	"fitchallenge/internal/models"
	"fitchallenge/internal/storage"
)

const maxUploadBytes = 10 << 20

type proofInput struct {
	event     models.PointEvent
	photo     multipart.File
	photoName string
}

func (in *proofInput) close() {
	if in.photo != nil {
		in.photo.Close()
	}
}

// parseProof reads category, event and an optional photo from a multipart or
// urlencoded form.
func (s *Server) parseProof(w http.ResponseWriter, r *http.Request) (*proofInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.fail(w, http.StatusBadRequest, "Invalid form.")
		return nil, false
	}
	form := forms.ProofForm{Category: r.FormValue("category"), Event: r.FormValue("event")}
	ev, err := form.Validate()
	if err != nil {
		s.invalid(w, err)
		return nil, false
	}

	in := &proofInput{event: ev}
	file, header, err := r.FormFile("photo")
	switch {
	case err == nil:
		in.photo, in.photoName = file, header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		s.fail(w, http.StatusBadRequest, "Invalid photo.")
		return nil, false
	}
	return in, true
}

func (s *Server) uploadPhoto(ctx context.Context, in *proofInput, overwrite bool) (*string, error) {
	objectPath, err := s.Bucket.Upload(ctx, storage.ProofPhotos, storage.PhotoName(in.photoName), in.photo, overwrite)
	if err != nil {
		return nil, fmt.Errorf("uploading photo: %w", err)
	}
	url := s.Bucket.PublicURL(storage.ProofPhotos, objectPath)
	return &url, nil
}

func (s *Server) handleRecentProofs(w http.ResponseWriter, r *http.Request) {
	proofs, err := s.Views.RecentProofs(r.Context())
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.ok(w, http.StatusOK, proofs)
}

func (s *Server) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	in, ok := s.parseProof(w, r)
	if !ok {
		return
	}
	defer in.close()
	user := currentUser(r)

	rec, n := s.notifier(r)
	var created *models.Proof
	err := s.run(r.Context(), n, opSubmitProof, func(ctx context.Context) error {
		p := models.Proof{
			CompetitorID: user.ID,
			EventType:    in.event.Key,
			Points:       in.event.Points,
		}
		if in.photo != nil {
			url, err := s.uploadPhoto(ctx, in, false)
			if err != nil {
				return err
			}
			p.PhotoURL = url
		}
		var err error
		created, err = s.Gateway.InsertProof(ctx, p)
		return err
	})
	s.mutated(w, rec, http.StatusCreated, created, err)
}

func (s *Server) handleEditProof(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	in, ok := s.parseProof(w, r)
	if !ok {
		return
	}
	defer in.close()
	user := currentUser(r)

	rec, n := s.notifier(r)
	var updated *models.Proof
	err := s.run(r.Context(), n, opEditProof, func(ctx context.Context) error {
		existing, err := s.editableProof(ctx, user, id)
		if err != nil {
			return err
		}
		photoURL := existing.PhotoURL
		if in.photo != nil {
			if photoURL, err = s.uploadPhoto(ctx, in, true); err != nil {
				return err
			}
		}
		if err := s.Gateway.UpdateProof(ctx, id, models.ProofPatch{
			EventType: in.event.Key,
			Points:    in.event.Points,
			PhotoURL:  photoURL,
		}); err != nil {
			return err
		}
		updated, err = s.Gateway.GetProof(ctx, id)
		return err
	})
	s.mutated(w, rec, http.StatusOK, updated, err)
}

func (s *Server) handleDeleteProof(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	user := currentUser(r)

	rec, n := s.notifier(r)
	err := s.run(r.Context(), n, opDeleteProof, func(ctx context.Context) error {
		if _, err := s.editableProof(ctx, user, id); err != nil {
			return err
		}
		return s.Gateway.DeleteProof(ctx, id)
	})
	s.mutated(w, rec, http.StatusOK, nil, err)
}

func (s *Server) editableProof(ctx context.Context, user *models.User, id string) (*models.Proof, error) {
	p, err := s.Gateway.GetProof(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanEditProof(user, p) {
		return nil, auth.ErrForbidden
	}
	return p, nil
}
