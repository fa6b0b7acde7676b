package server

import (
	"context"
	"net/http"

	"fitchallenge/internal/auth"
	"fitchallenge/internal/forms"
	"fitchallenge/internal/models"
	"fitchallenge/internal/mutation"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var form forms.SignUpForm
	if err := decodeJSON(w, r, &form); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid request.")
		return
	}
	if err := form.Validate(); err != nil {
		s.invalid(w, err)
		return
	}

	rec := &mutation.Recorder{}
	var user *models.User
	err := s.run(r.Context(), rec, opSignUp, func(ctx context.Context) error {
		u, err := s.Auth.SignUp(ctx, auth.SignUpInput{
			Email:     form.Email,
			Password:  form.Password,
			FirstName: form.FirstName,
			LastName:  form.LastName,
		})
		user = u
		return err
	})
	s.mutated(w, rec, http.StatusCreated, user, err)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var form forms.SignInForm
	if err := decodeJSON(w, r, &form); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid request.")
		return
	}
	if err := form.Validate(); err != nil {
		s.invalid(w, err)
		return
	}

	rec := &mutation.Recorder{}
	var sess *auth.Session
	err := s.run(r.Context(), rec, opSignIn, func(ctx context.Context) error {
		var err error
		sess, err = s.Auth.SignIn(ctx, form.Email, form.Password)
		return err
	})
	if err == nil {
		s.Sessions.Open(sess.Token, sess.User.ID, sess.ExpiresAt)
		s.entry.WithField("user", sess.User.ID).Info("signed in")
	}
	s.mutated(w, rec, http.StatusOK, sess, err)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := currentToken(r)
	if err := s.Auth.SignOut(r.Context(), token); err != nil {
		s.entry.WithError(err).Warn("sign out")
		s.fail(w, statusFor(err), auth.FriendlyError(err))
		return
	}
	s.Sessions.Close(token)
	s.ok(w, http.StatusOK, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.ok(w, http.StatusOK, currentUser(r))
}

// run executes op through the mutation runner with write as its remote call.
func (s *Server) run(ctx context.Context, n mutation.Notifier, op operation, write func(context.Context) error) error {
	return s.Runner.Run(ctx, n, mutation.Spec{
		Name:        op.name,
		Loading:     op.loading,
		Success:     op.success,
		Invalidates: op.invalidates,
		Write:       write,
	})
}
