package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rickgao/candidate-tracker/internal/model"
)

// OAuthProviders lists the providers OAuthURL accepts.
var OAuthProviders = []string{"google", "github", "facebook"}

// SignIn exchanges an email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   passwordGrant{Email: email, Password: password},
	}, &s)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &s, nil
}

// SignUp registers a new account. Profile fields are stored as user
// metadata. When the project requires email confirmation the result
// carries no session.
func (c *Client) SignUp(ctx context.Context, in model.SignUp) (*SignUpResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var resp signUpResponse
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body: signUpRequest{
			Email:    in.Email,
			Password: in.Password,
			Data: UserMetadata{
				FullName: in.FullName,
				Company:  in.Company,
				Position: in.Position,
				Location: in.Location,
				Phone:    in.Phone,
			},
		},
	}, &resp)
	if err != nil {
		if isDuplicateEmail(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}

	if resp.AccessToken != "" {
		s := resp.Session
		return &SignUpResult{User: s.User, Session: &s}, nil
	}

	user := resp.User
	if user.ID == "" {
		user.ID = resp.ID
		user.Email = resp.Email
	}
	return &SignUpResult{User: user}, nil
}

func isDuplicateEmail(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, s := range []string{"already registered", "already exists", "User already"} {
		if strings.Contains(apiErr.Message, s) {
			return true
		}
	}
	return false
}

// Refresh trades a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   refreshGrant{RefreshToken: refreshToken},
	}, &s)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return &s, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		token:  accessToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// GetUser returns the user that owns accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	var u AuthUser
	if err := c.get(ctx, "/auth/v1/user", nil, accessToken, &u); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// OAuthURL returns the URL that starts an OAuth sign-in with provider and
// returns the browser to redirectTo afterwards.
func (c *Client) OAuthURL(provider, redirectTo string) (string, error) {
	supported := false
	for _, p := range OAuthProviders {
		if p == provider {
			supported = true
			break
		}
	}
	if !supported {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	q := url.Values{"provider": {provider}}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.baseURL + "/auth/v1/authorize?" + q.Encode(), nil
}
