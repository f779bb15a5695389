package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/authgate/authgate/internal/config"
)

func testProviderConfig() *config.OAuthProviderConfig {
	return &config.OAuthProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/callback",
	}
}

func TestGoogleResolver_Success(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token exchange method = %s, expected POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			t.Errorf("code = %q, expected %q", r.Form.Get("code"), "good-code")
		}
		if r.Form.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "provider-token"})
	}))
	defer tokenSrv.Close()

	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer provider-token" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sub":         "google-sub-1",
			"email":       "someone@example.com",
			"given_name":  "Some",
			"family_name": "One",
			"picture":     "https://example.com/p.png",
		})
	}))
	defer userSrv.Close()

	r := NewGoogleResolver(testProviderConfig())
	r.tokenURL = tokenSrv.URL
	r.userinfoURL = userSrv.URL

	id, err := r.Resolve(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id == nil {
		t.Fatal("Resolve() returned nil identity for a valid code")
	}
	if id.SubjectID != "google-sub-1" {
		t.Errorf("SubjectID = %q", id.SubjectID)
	}
	if id.Provider != ProviderGoogle {
		t.Errorf("Provider = %q", id.Provider)
	}
	if id.Email != "someone@example.com" || id.FirstName != "Some" || id.LastName != "One" {
		t.Errorf("profile fields mismatch: %+v", id)
	}
}

func TestGoogleResolver_BadCodeIsDenialNotError(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer tokenSrv.Close()

	r := NewGoogleResolver(testProviderConfig())
	r.tokenURL = tokenSrv.URL

	id, err := r.Resolve(context.Background(), "bad-code")
	if err != nil {
		t.Fatalf("a declined code must not be an error, got %v", err)
	}
	if id != nil {
		t.Error("a declined code must yield a nil identity")
	}
}

func TestGoogleResolver_TransportFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	r := NewGoogleResolver(testProviderConfig())
	r.tokenURL = srv.URL

	id, err := r.Resolve(context.Background(), "code")
	if err == nil {
		t.Fatal("an unreachable provider must surface as an error")
	}
	if id != nil {
		t.Error("identity must be nil on transport failure")
	}
}

func TestGoogleResolver_Unconfigured(t *testing.T) {
	r := NewGoogleResolver(&config.OAuthProviderConfig{})

	if _, err := r.Resolve(context.Background(), "code"); err == nil {
		t.Error("missing client credentials must be a configuration error")
	}
}

func TestGitHubResolver_Success(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, expected application/json", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gh-token"})
	}))
	defer tokenSrv.Close()

	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token gh-token" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"node_id":    "gh-node-1",
			"login":      "octocat",
			"name":       "Octo Cat",
			"email":      "octo@example.com",
			"avatar_url": "https://example.com/octo.png",
		})
	}))
	defer userSrv.Close()

	r := NewGitHubResolver(testProviderConfig())
	r.tokenURL = tokenSrv.URL
	r.userURL = userSrv.URL

	id, err := r.Resolve(context.Background(), "code")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id == nil {
		t.Fatal("Resolve() returned nil identity")
	}
	if id.SubjectID != "gh-node-1" || id.Email != "octo@example.com" {
		t.Errorf("identity mismatch: %+v", id)
	}
}

func TestGitHubResolver_HiddenEmailFallsBackToLogin(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gh-token"})
	}))
	defer tokenSrv.Close()

	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"node_id": "gh-node-2",
			"login":   "quiet",
		})
	}))
	defer userSrv.Close()

	r := NewGitHubResolver(testProviderConfig())
	r.tokenURL = tokenSrv.URL
	r.userURL = userSrv.URL

	id, err := r.Resolve(context.Background(), "code")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.Email != "quiet" {
		t.Errorf("Email = %q, expected fallback to login", id.Email)
	}
	if id.FirstName != "quiet" {
		t.Errorf("FirstName = %q, expected fallback to login", id.FirstName)
	}
}

func TestGitHubResolver_BadCodeReturns200WithoutToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// GitHub's quirk: errors arrive with a 200 status
		json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
	}))
	defer tokenSrv.Close()

	r := NewGitHubResolver(testProviderConfig())
	r.tokenURL = tokenSrv.URL

	id, err := r.Resolve(context.Background(), "bad")
	if err != nil {
		t.Fatalf("a declined code must not be an error, got %v", err)
	}
	if id != nil {
		t.Error("a declined code must yield a nil identity")
	}
}

func TestFacebookResolver_Success(t *testing.T) {
	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("access_token"); got != "fb-token" {
			t.Errorf("access_token = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "fb-1",
			"email":      "fb@example.com",
			"first_name": "Face",
			"last_name":  "Book",
			"picture": map[string]interface{}{
				"data": map[string]string{"url": "https://example.com/fb.png"},
			},
		})
	}))
	defer graphSrv.Close()

	r := NewFacebookResolver(testProviderConfig())
	r.graphURL = graphSrv.URL

	id, err := r.Resolve(context.Background(), "fb-token")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id == nil {
		t.Fatal("Resolve() returned nil identity")
	}
	if id.SubjectID != "fb-1" || id.Email != "fb@example.com" {
		t.Errorf("identity mismatch: %+v", id)
	}
	if id.Avatar != "https://example.com/fb.png" {
		t.Errorf("Avatar = %q", id.Avatar)
	}
}

func TestFacebookResolver_InvalidTokenIsDenial(t *testing.T) {
	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer graphSrv.Close()

	r := NewFacebookResolver(testProviderConfig())
	r.graphURL = graphSrv.URL

	id, err := r.Resolve(context.Background(), "expired-token")
	if err != nil {
		t.Fatalf("a rejected token must not be an error, got %v", err)
	}
	if id != nil {
		t.Error("a rejected token must yield a nil identity")
	}
}

func TestProvider_Valid(t *testing.T) {
	valid := []Provider{ProviderGoogle, ProviderGitHub, ProviderFacebook}
	for _, p := range valid {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	for _, p := range []Provider{"", "myspace", "GOOGLE"} {
		if p.Valid() {
			t.Errorf("%q should not be valid", p)
		}
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	reg := NewRegistry(&config.ProvidersConfig{})

	if _, err := reg.Resolve(context.Background(), Provider("myspace"), "code"); err == nil {
		t.Error("unknown provider must be an error")
	}
}
