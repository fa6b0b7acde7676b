package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fitchallenge/internal/gateway"
	"fitchallenge/internal/memstore"
	"fitchallenge/internal/models"
)

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.NewStore()
	s := NewService(store, time.Hour, func(email string) bool { return email == "boss@example.com" })
	s.cost = bcrypt.MinCost
	return s, store
}

func TestSignUpSignInSignOut(t *testing.T) {
	ctx := context.Background()
	s, store := newTestService(t)

	u, err := s.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "secret1", FirstName: "Ana", LastName: "Souza"})
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)

	c, err := store.GetCompetitor(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", c.Name)

	sess, err := s.SignIn(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, u.ID, sess.User.ID)

	cur, err := s.CurrentUser(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", cur.Email)

	require.NoError(t, s.SignOut(ctx, sess.Token))
	_, err = s.CurrentUser(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSignIn_WrongPassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	_, err := s.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "secret1", FirstName: "Ana"})
	require.NoError(t, err)

	_, err = s.SignIn(ctx, "ana@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.SignIn(ctx, "ghost@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUp_Duplicate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	in := SignUpInput{Email: "ana@example.com", Password: "secret1", FirstName: "Ana"}
	_, err := s.SignUp(ctx, in)
	require.NoError(t, err)

	_, err = s.SignUp(ctx, in)
	require.Error(t, err)
	assert.Equal(t, "This email is already registered. Try signing in.", FriendlyError(err))
}

func TestAdminFromConfig(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	_, err := s.SignUp(ctx, SignUpInput{Email: "boss@example.com", Password: "secret1", FirstName: "Boss"})
	require.NoError(t, err)

	sess, err := s.SignIn(ctx, "boss@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, sess.User.IsAdmin)
}

func TestCurrentUser_EmptyToken(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.CurrentUser(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCanEditProof(t *testing.T) {
	p := &models.Proof{CompetitorID: "ana"}
	assert.True(t, CanEditProof(&models.User{ID: "ana"}, p))
	assert.False(t, CanEditProof(&models.User{ID: "bia"}, p))
	assert.True(t, CanEditProof(&models.User{ID: "bia", IsAdmin: true}, p))
	assert.False(t, CanEditProof(nil, p))
}

func TestFriendlyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errors.New("AuthApiError: User already registered"), "This email is already registered. Try signing in."},
		{fmt.Errorf("creating account: %w", gateway.ErrConflict), "This email is already registered. Try signing in."},
		{ErrInvalidCredentials, "Invalid email or password."},
		{fmt.Errorf("wrapped: %w", ErrUnauthenticated), "You need to sign in first."},
		{ErrForbidden, "You are not allowed to do that."},
		{gateway.ErrNotFound, "Record not found."},
		{context.DeadlineExceeded, "The server took too long to answer. Try again."},
		{errors.New("pq: connection refused"), "An error occurred."},
	}
	for _, tc := range cases {
		if got := FriendlyError(tc.err); got != tc.want {
			t.Errorf("FriendlyError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
	assert.Empty(t, FriendlyError(nil))
}
