package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/pkg/logger"
)

// GitHubResolver exchanges an OAuth authorization code for a GitHub profile.
type GitHubResolver struct {
	cfg        *config.OAuthProviderConfig
	httpClient *http.Client

	// overridable in tests
	tokenURL string
	userURL  string
}

func NewGitHubResolver(cfg *config.OAuthProviderConfig) *GitHubResolver {
	return &GitHubResolver{
		cfg:        cfg,
		httpClient: newHTTPClient(),
		tokenURL:   "https://github.com/login/oauth/access_token",
		userURL:    "https://api.github.com/user",
	}
}

type githubTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type githubUser struct {
	NodeID    string `json:"node_id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (r *GitHubResolver) Resolve(ctx context.Context, code string) (*ExternalIdentity, error) {
	if r.cfg.ClientID == "" || r.cfg.ClientSecret == "" {
		return nil, fmt.Errorf("github provider is not configured")
	}

	form := url.Values{
		"code":          {code},
		"client_id":     {r.cfg.ClientID},
		"client_secret": {r.cfg.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn().Int("status", resp.StatusCode).Msg("github rejected authorization code")
		return nil, nil
	}

	var token githubTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("github token response: %w", err)
	}
	// GitHub reports a bad code as 200 with an error payload and no token
	if token.AccessToken == "" {
		return nil, nil
	}

	userReq, err := http.NewRequestWithContext(ctx, "GET", r.userURL, nil)
	if err != nil {
		return nil, err
	}
	userReq.Header.Set("Authorization", "token "+token.AccessToken)
	userReq.Header.Set("Accept", "application/vnd.github+json")

	userResp, err := r.httpClient.Do(userReq)
	if err != nil {
		return nil, fmt.Errorf("github user request: %w", err)
	}
	defer userResp.Body.Close()

	if userResp.StatusCode != http.StatusOK {
		logger.Warn().Int("status", userResp.StatusCode).Msg("github rejected user request")
		return nil, nil
	}

	var user githubUser
	if err := json.NewDecoder(userResp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("github user response: %w", err)
	}
	if user.NodeID == "" {
		return nil, nil
	}

	// GitHub may hide the email; fall back to the login as the stable handle
	email := user.Email
	if email == "" {
		email = user.Login
	}
	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &ExternalIdentity{
		SubjectID: user.NodeID,
		Provider:  ProviderGitHub,
		Email:     email,
		FirstName: name,
		LastName:  "",
		Avatar:    user.AvatarURL,
	}, nil
}
