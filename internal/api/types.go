package api

import (
	"errors"
	"time"

	"github.com/rickgao/candidate-tracker/internal/model"
)

var (
	// ErrEmailExists is returned by SignUp when the email is already registered.
	ErrEmailExists = errors.New("an account with this email already exists")

	// ErrNotFound is returned when a candidate id matches no row.
	ErrNotFound = errors.New("candidate not found")

	// ErrUnsupportedProvider is returned by OAuthURL for unknown providers.
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")

	// ErrNotAuthenticated is returned when an operation needs a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// -----------------------------------------------------------------------------
// Auth
// -----------------------------------------------------------------------------

// AuthUser is the user object returned by the auth service.
type AuthUser struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// UserMetadata holds the profile fields captured at sign-up.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Location string `json:"location,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// ToModel converts the auth user to the shared user type.
func (u AuthUser) ToModel() model.User {
	return model.User{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.UserMetadata.FullName,
	}
}

// Session is a token grant from the auth service.
type Session struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"` // Unix seconds
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

// Expiry returns when the access token expires. Grants that only carry
// expires_in are measured from now.
func (s Session) Expiry() time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	if s.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

// SignUpResult is the outcome of a registration.
type SignUpResult struct {
	User    AuthUser
	Session *Session // nil when the account must confirm its email first
}

// RequiresEmailConfirmation reports whether the account was created without
// a session.
func (r SignUpResult) RequiresEmailConfirmation() bool {
	return r.Session == nil
}

// signUpResponse covers both shapes of the signup endpoint: a full session
// when auto-confirm is on, a bare user otherwise.
type signUpResponse struct {
	Session
	ID    string `json:"id"`
	Email string `json:"email"`
}

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshGrant struct {
	RefreshToken string `json:"refresh_token"`
}

type signUpRequest struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Data     UserMetadata `json:"data"`
}

// -----------------------------------------------------------------------------
// Candidates
// -----------------------------------------------------------------------------

// FunctionError is returned when the add-candidate function reports a
// failure in its response body.
type FunctionError struct {
	Message string
}

func (e *FunctionError) Error() string {
	return "add candidate: " + e.Message
}

// addCandidateResponse from POST /functions/v1/add-candidate
type addCandidateResponse struct {
	Candidate *model.Candidate `json:"candidate"`
	Error     string           `json:"error,omitempty"`
	Details   string           `json:"details,omitempty"`
}

type statusPatch struct {
	Status model.Status `json:"status"`
}

// -----------------------------------------------------------------------------
// Storage
// -----------------------------------------------------------------------------

// uploadResponse from POST /storage/v1/object/{bucket}/{name}
type uploadResponse struct {
	Key string `json:"Key"`
}
