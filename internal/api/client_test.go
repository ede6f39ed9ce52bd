package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/candidate-tracker/internal/model"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://project.example.co/", "anon-key")

		if c.baseURL != "https://project.example.co" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://project.example.co")
		}
		if c.anonKey != "anon-key" {
			t.Errorf("anonKey = %q, want %q", c.anonKey, "anon-key")
		}
		if c.bucket != DefaultBucket {
			t.Errorf("bucket = %q, want %q", c.bucket, DefaultBucket)
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with multiple options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("https://project.example.co", "key",
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithLogger(logger),
			WithBucket("cvs"),
		)
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 10)
		}
		if c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 500*time.Millisecond)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
		if c.bucket != "cvs" {
			t.Errorf("bucket = %q, want %q", c.bucket, "cvs")
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		c := NewClient("https://project.example.co", "", WithLogger(nil))
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://project.example.co", "", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	t.Run("Error method", func(t *testing.T) {
		err := &APIError{StatusCode: 404, Message: "Not Found"}
		expected := "api error 404: Not Found"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{500, true},
			{503, true},
			{429, true},
			{400, false},
			{401, false},
			{404, false},
			{422, false},
		}

		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})

	t.Run("message extraction", func(t *testing.T) {
		tests := []struct {
			body string
			want string
		}{
			{`{"msg":"User already registered"}`, "User already registered"},
			{`{"message":"JWT expired"}`, "JWT expired"},
			{`{"error":"invalid_grant","error_description":"Invalid login credentials"}`, "Invalid login credentials"},
			{`{"error":"Bucket not found"}`, "Bucket not found"},
			{`not json`, "Bad Request"},
		}

		for _, tt := range tests {
			if got := errorMessage(http.StatusBadRequest, []byte(tt.body)); got != tt.want {
				t.Errorf("errorMessage(%s) = %q, want %q", tt.body, got, tt.want)
			}
		}
	})
}

// TestDoRequest tests the HTTP request functionality.
func TestDoRequest(t *testing.T) {
	t.Run("sets headers and JSON body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("apikey") != "anon" {
				t.Errorf("apikey header = %q, want %q", r.Header.Get("apikey"), "anon")
			}
			if r.Header.Get("Authorization") != "Bearer user-token" {
				t.Errorf("Authorization header = %q, want %q", r.Header.Get("Authorization"), "Bearer user-token")
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
			}
			if r.Header.Get("Prefer") != "return=minimal" {
				t.Errorf("Prefer = %q, want return=minimal", r.Header.Get("Prefer"))
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"a":1}` {
				t.Errorf("body = %q, want %q", body, `{"a":1}`)
			}
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		body, err := c.doRequest(context.Background(), request{
			method: http.MethodPost,
			path:   "/test",
			token:  "user-token",
			body:   map[string]int{"a": 1},
			header: http.Header{"Prefer": {"return=minimal"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"status":"ok"}` {
			t.Errorf("body = %q, want %q", string(body), `{"status":"ok"}`)
		}
	})

	t.Run("omits Authorization without a token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Errorf("Authorization header should be empty, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		if _, err := c.doRequest(context.Background(), request{method: http.MethodGet, path: "/test"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("4xx error returns APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "relation does not exist"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		_, err := c.doRequest(context.Background(), request{method: http.MethodGet, path: "/test"})

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, 404)
		}
		if apiErr.Message != "relation does not exist" {
			t.Errorf("Message = %q, want %q", apiErr.Message, "relation does not exist")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		c := NewClient(server.URL, "key")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.doRequest(ctx, request{method: http.MethodGet, path: "/test"})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "context canceled") {
			t.Errorf("error should contain 'context canceled', got %v", err)
		}
	})
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	get := request{method: http.MethodGet, path: "/test"}

	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "key", WithRetries(3, 10*time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), get); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry on 4xx (except 429)", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewClient(server.URL, "key", WithRetries(3, 10*time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), get); err == nil {
			t.Fatal("expected error, got nil")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, "key", WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), get)
		if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error should contain 'max retries exceeded', got %v", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})
}

// TestSignIn tests the password grant.
func TestSignIn(t *testing.T) {
	t.Run("successful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/auth/v1/token" {
				t.Errorf("request = %s %s, want POST /auth/v1/token", r.Method, r.URL.Path)
			}
			if r.URL.Query().Get("grant_type") != "password" {
				t.Errorf("grant_type = %q, want password", r.URL.Query().Get("grant_type"))
			}
			var g passwordGrant
			json.NewDecoder(r.Body).Decode(&g)
			if g.Email != "hr@example.com" || g.Password != "secret1" {
				t.Errorf("grant = %+v", g)
			}
			w.Write([]byte(`{
				"access_token": "at", "token_type": "bearer", "expires_in": 3600,
				"expires_at": 1760000000, "refresh_token": "rt",
				"user": {"id": "u1", "email": "hr@example.com", "user_metadata": {"full_name": "Lan"}}
			}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		s, err := c.SignIn(context.Background(), "hr@example.com", "secret1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.AccessToken != "at" || s.RefreshToken != "rt" {
			t.Errorf("tokens = %q/%q, want at/rt", s.AccessToken, s.RefreshToken)
		}
		if !s.Expiry().Equal(time.Unix(1760000000, 0)) {
			t.Errorf("Expiry = %v", s.Expiry())
		}
		u := s.User.ToModel()
		if u.ID != "u1" || u.FullName != "Lan" {
			t.Errorf("user = %+v", u)
		}
	})

	t.Run("invalid credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		_, err := c.SignIn(context.Background(), "hr@example.com", "wrong")
		if err == nil || !strings.Contains(err.Error(), "Invalid login credentials") {
			t.Errorf("error = %v, want invalid credentials", err)
		}
	})
}

// TestSignUp tests registration.
func TestSignUp(t *testing.T) {
	in := model.SignUp{Email: " new@example.com ", Password: "secret1", FullName: "Minh", Company: "Acme"}

	t.Run("requires email confirmation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req signUpRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Email != "new@example.com" {
				t.Errorf("email = %q, want trimmed", req.Email)
			}
			if req.Data.FullName != "Minh" || req.Data.Company != "Acme" {
				t.Errorf("metadata = %+v", req.Data)
			}
			w.Write([]byte(`{"id": "u2", "email": "new@example.com"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		res, err := c.SignUp(context.Background(), in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.RequiresEmailConfirmation() {
			t.Error("expected RequiresEmailConfirmation")
		}
		if res.User.ID != "u2" {
			t.Errorf("user id = %q, want u2", res.User.ID)
		}
	})

	t.Run("immediate session", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"access_token": "at", "refresh_token": "rt", "user": {"id": "u3", "email": "new@example.com"}}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		res, err := c.SignUp(context.Background(), in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.RequiresEmailConfirmation() {
			t.Error("expected a session")
		}
		if res.User.ID != "u3" || res.Session.AccessToken != "at" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"code":422,"msg":"User already registered"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		_, err := c.SignUp(context.Background(), in)
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("error = %v, want ErrEmailExists", err)
		}
	})

	t.Run("short password never reaches the server", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		_, err := c.SignUp(context.Background(), model.SignUp{Email: "a@example.com", Password: "12345"})
		if !model.IsValidationError(err) {
			t.Errorf("error = %v, want validation error", err)
		}
		if calls != 0 {
			t.Errorf("server calls = %d, want 0", calls)
		}
	})
}

// TestSessionCalls tests refresh, sign-out and user lookup.
func TestSessionCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			if r.URL.Query().Get("grant_type") != "refresh_token" {
				t.Errorf("grant_type = %q", r.URL.Query().Get("grant_type"))
			}
			var g refreshGrant
			json.NewDecoder(r.Body).Decode(&g)
			if g.RefreshToken != "rt" {
				t.Errorf("refresh_token = %q, want rt", g.RefreshToken)
			}
			w.Write([]byte(`{"access_token": "at2", "refresh_token": "rt2"}`))
		case "/auth/v1/logout":
			if r.Header.Get("Authorization") != "Bearer at2" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}
			w.WriteHeader(http.StatusNoContent)
		case "/auth/v1/user":
			w.Write([]byte(`{"id": "u1", "email": "hr@example.com"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "anon")
	ctx := context.Background()

	s, err := c.Refresh(ctx, "rt")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if s.AccessToken != "at2" {
		t.Errorf("AccessToken = %q, want at2", s.AccessToken)
	}

	u, err := c.GetUser(ctx, s.AccessToken)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Email != "hr@example.com" {
		t.Errorf("Email = %q", u.Email)
	}

	if err := c.SignOut(ctx, s.AccessToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
}

// TestOAuthURL tests OAuth URL construction.
func TestOAuthURL(t *testing.T) {
	c := NewClient("https://project.example.co", "anon")

	got, err := c.OAuthURL("github", "http://localhost:8080/dashboard")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://project.example.co/auth/v1/authorize?provider=github&redirect_to=http%3A%2F%2Flocalhost%3A8080%2Fdashboard"
	if got != want {
		t.Errorf("OAuthURL = %q, want %q", got, want)
	}

	if _, err := c.OAuthURL("myspace", ""); !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("error = %v, want ErrUnsupportedProvider", err)
	}
}

// TestFetchCandidates tests the candidate listing.
func TestFetchCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/candidates" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("order") != "created_at.desc" {
			t.Errorf("order = %q, want created_at.desc", r.URL.Query().Get("order"))
		}
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`[
			{"id": "b2", "full_name": "Bao", "applied_position": "QA", "status": "Hired", "resume_url": "u", "created_at": "2025-01-02T00:00:00+00:00"},
			{"id": "a1", "full_name": "An", "applied_position": "Dev", "status": "New", "resume_url": "u", "created_at": "2025-01-01T00:00:00+00:00"}
		]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "anon", WithTokenSource(func(context.Context) (string, error) {
		return "user-token", nil
	}))
	got, err := c.FetchCandidates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b2" || got[1].Status != model.StatusNew {
		t.Errorf("candidates = %+v", got)
	}
}

// TestCreateCandidate tests the add-candidate function call.
func TestCreateCandidate(t *testing.T) {
	in := model.NewCandidate{FullName: "An", AppliedPosition: "Dev", Status: model.StatusNew, ResumeURL: "u"}

	t.Run("successful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/functions/v1/add-candidate" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer at" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{"candidate": {"id": "a1", "full_name": "An", "status": "New"}}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		got, err := c.CreateCandidate(context.Background(), in, "at")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != "a1" {
			t.Errorf("ID = %q, want a1", got.ID)
		}
	})

	t.Run("function error prefers details", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error": "insert failed", "details": "duplicate key"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "anon")
		_, err := c.CreateCandidate(context.Background(), in, "at")
		var fe *FunctionError
		if !errors.As(err, &fe) {
			t.Fatalf("error = %v, want *FunctionError", err)
		}
		if fe.Message != "duplicate key" {
			t.Errorf("Message = %q, want %q", fe.Message, "duplicate key")
		}
	})

	t.Run("requires an access token", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", "anon")
		if _, err := c.CreateCandidate(context.Background(), in, ""); !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("error = %v, want ErrNotAuthenticated", err)
		}
	})
}

// TestUpdateAndDelete tests row mutations.
func TestUpdateAndDelete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
		switch r.Method {
		case http.MethodPatch:
			if r.Header.Get("Prefer") != "return=representation" {
				t.Errorf("Prefer = %q", r.Header.Get("Prefer"))
			}
			if id != "a1" {
				w.Write([]byte(`[]`))
				return
			}
			var p statusPatch
			json.NewDecoder(r.Body).Decode(&p)
			w.Write([]byte(`[{"id": "a1", "status": "` + string(p.Status) + `"}]`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "anon")
	ctx := context.Background()

	got, err := c.UpdateStatus(ctx, "a1", model.StatusHired)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != model.StatusHired {
		t.Errorf("Status = %q, want Hired", got.Status)
	}

	if _, err := c.UpdateStatus(ctx, "zz", model.StatusHired); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	if err := c.DeleteCandidate(ctx, "a1"); err != nil {
		t.Errorf("DeleteCandidate: %v", err)
	}
}

// TestUploadResume tests resume upload and public URL construction.
func TestUploadResume(t *testing.T) {
	var gotPath, gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{"Key": "resumes/x.pdf"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "anon")
	res, err := c.UploadResume(context.Background(), "CV An.PDF", strings.NewReader("%PDF"), 4, "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/storage/v1/object/resumes/") || !strings.HasSuffix(gotPath, ".pdf") {
		t.Errorf("path = %q", gotPath)
	}
	if gotType != "application/pdf" || gotBody != "%PDF" {
		t.Errorf("content = %q %q", gotType, gotBody)
	}
	if !strings.HasSuffix(res.FileName, ".pdf") {
		t.Errorf("FileName = %q, want .pdf extension", res.FileName)
	}
	if res.PublicURL != server.URL+"/storage/v1/object/public/resumes/"+res.FileName {
		t.Errorf("PublicURL = %q", res.PublicURL)
	}
	if res.Size != 4 {
		t.Errorf("Size = %d, want 4", res.Size)
	}
}
