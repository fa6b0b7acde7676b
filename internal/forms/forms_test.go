package forms

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitchallenge/internal/models"
)

func TestCompetitorForm(t *testing.T) {
	f := CompetitorForm{Name: "  Ana "}
	require.NoError(t, f.Validate())
	assert.Equal(t, "Ana", f.Name)

	f = CompetitorForm{Name: " A "}
	err := f.Validate()
	fields, ok := Fields(err)
	require.True(t, ok, "want a ValidationError, got %v", err)
	assert.Equal(t, "Name must be at least 2 characters.", fields["name"])
}

func TestProofForm(t *testing.T) {
	f := ProofForm{Category: "gain", Event: models.EventCardio}
	ev, err := f.Validate()
	require.NoError(t, err)
	assert.Equal(t, 10, ev.Points)

	f = ProofForm{Category: "LOSE", Event: models.EventCardio}
	_, err = f.Validate()
	fields, ok := Fields(err)
	require.True(t, ok)
	assert.Contains(t, fields, "event")

	f = ProofForm{Category: "MAYBE"}
	_, err = f.Validate()
	fields, ok = Fields(err)
	require.True(t, ok)
	assert.Equal(t, "Choose a category.", fields["category"])
	assert.Equal(t, "Choose an event.", fields["event"])
}

func TestSignInForm(t *testing.T) {
	f := SignInForm{Email: "not-an-email", Password: "123"}
	err := f.Validate()
	fields, ok := Fields(err)
	require.True(t, ok)
	assert.Equal(t, "Please enter a valid email.", fields["email"])
	assert.Equal(t, "Password must be at least 6 characters.", fields["password"])

	f = SignInForm{Email: " ana@example.com ", Password: "secret1"}
	assert.NoError(t, f.Validate())
	assert.Equal(t, "ana@example.com", f.Email)
}

func TestSignUpForm_NamesRequired(t *testing.T) {
	f := SignUpForm{Email: "ana@example.com", Password: "secret1", FirstName: " "}
	err := f.Validate()
	fields, ok := Fields(err)
	require.True(t, ok)
	assert.Equal(t, "First and last name are required.", fields["first_name"])
	assert.Equal(t, "First and last name are required.", fields["last_name"])
	assert.NotContains(t, fields, "email")
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "validation failed: a: one; b: two", err.Error())

	_, ok := Fields(errors.New("plain"))
	assert.False(t, ok)
}

func TestSignUpForm_PasswordTooLong(t *testing.T) {
	f := SignUpForm{Email: "ana@example.com", Password: strings.Repeat("a", 73), FirstName: "Ana", LastName: "Silva"}
	fields, ok := Fields(f.Validate())
	require.True(t, ok)
	assert.Equal(t, "Password must be between 6 and 72 characters.", fields["password"])

	// 40 characters, 80 bytes.
	f.Password = strings.Repeat("é", 40)
	fields, ok = Fields(f.Validate())
	require.True(t, ok)
	assert.Equal(t, []string{"password"}, keysOf(fields))

	f.Password = strings.Repeat("a", 72)
	assert.NoError(t, f.Validate())
}

func keysOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
