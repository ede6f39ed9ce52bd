package model

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewCandidate is the input for creating a candidate.
type NewCandidate struct {
	FullName        string `json:"full_name" validate:"required"`
	AppliedPosition string `json:"applied_position" validate:"required"`
	Status          Status `json:"status" validate:"required,oneof=New Interviewing Hired Rejected"`
	ResumeURL       string `json:"resume_url" validate:"required"`
}

// Normalize trims whitespace and defaults an empty status to New.
func (n NewCandidate) Normalize() NewCandidate {
	n.FullName = strings.TrimSpace(n.FullName)
	n.AppliedPosition = strings.TrimSpace(n.AppliedPosition)
	n.ResumeURL = strings.TrimSpace(n.ResumeURL)
	n.Status = Status(strings.TrimSpace(string(n.Status)))
	if n.Status == "" {
		n.Status = StatusNew
	}
	return n
}

// Validate reports every missing or invalid field.
func (n NewCandidate) Validate() error {
	return validateStruct(n)
}

// SignUp is the input for registering an account. Profile fields are
// stored as user metadata.
type SignUp struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name,omitempty"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Location string `json:"location,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Validate checks the email format and the minimum password length.
func (s SignUp) Validate() error {
	return validateStruct(s)
}

// ValidationError lists the JSON names of fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &ValidationError{Fields: make([]string, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields = append(ve.Fields, fe.Field())
	}
	return ve
}
