// Package forms validates the competitor, proof and auth forms before any
// remote call is made.
package forms

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"fitchallenge/internal/models"
)

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields extracts the field messages from err, if it is a ValidationError.
func Fields(err error) (map[string]string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type messageSet map[string]string

// check runs the struct validator and maps failures to the form's messages.
func check(form any, messages messageSet) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		msg, ok := messages[name]
		if !ok {
			msg = "Invalid value."
		}
		fields[name] = msg
	}
	return &ValidationError{Fields: fields}
}

type CompetitorForm struct {
	Name string `json:"name" validate:"required,min=2"`
}

func (f *CompetitorForm) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	return check(f, messageSet{"name": "Name must be at least 2 characters."})
}

type ProofForm struct {
	Category string `json:"category" validate:"required,oneof=GAIN LOSE"`
	Event    string `json:"event" validate:"required"`
}

// Validate also checks that the event belongs to the category and returns
// the catalogue entry.
func (f *ProofForm) Validate() (models.PointEvent, error) {
	f.Category = strings.ToUpper(strings.TrimSpace(f.Category))
	f.Event = strings.TrimSpace(f.Event)
	if err := check(f, messageSet{
		"category": "Choose a category.",
		"event":    "Choose an event.",
	}); err != nil {
		return models.PointEvent{}, err
	}
	ev, ok := models.LookupEvent(models.Category(f.Category), f.Event)
	if !ok {
		return models.PointEvent{}, &ValidationError{Fields: map[string]string{"event": "Choose an event from the selected category."}}
	}
	return ev, nil
}

type SignInForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

var credentialMessages = messageSet{
	"email":    "Please enter a valid email.",
	"password": "Password must be at least 6 characters.",
}

func (f *SignInForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	return check(f, credentialMessages)
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

type SignUpForm struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

const passwordLengthMessage = "Password must be between 6 and 72 characters."

func (f *SignUpForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	err := check(f, messageSet{
		"email":      credentialMessages["email"],
		"password":   passwordLengthMessage,
		"first_name": "First and last name are required.",
		"last_name":  "First and last name are required.",
	})
	// max counts characters; bcrypt limits bytes.
	if len(f.Password) > MaxPasswordBytes {
		return withField(err, "password", passwordLengthMessage)
	}
	return err
}

// withField adds a field message to err, which may be nil or a
// ValidationError.
func withField(err error, field, msg string) error {
	if err == nil {
		return &ValidationError{Fields: map[string]string{field: msg}}
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = msg
	}
	return err
}
