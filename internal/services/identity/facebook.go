package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/pkg/logger"
)

// FacebookResolver validates a client-obtained Facebook access token and
// fetches the profile behind it. Unlike Google and GitHub there is no code
// exchange; the credential is the provider access token itself.
type FacebookResolver struct {
	cfg        *config.OAuthProviderConfig
	httpClient *http.Client

	// overridable in tests
	graphURL string
}

func NewFacebookResolver(cfg *config.OAuthProviderConfig) *FacebookResolver {
	return &FacebookResolver{
		cfg:        cfg,
		httpClient: newHTTPClient(),
		graphURL:   "https://graph.facebook.com/v19.0/me",
	}
}

type facebookProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (r *FacebookResolver) Resolve(ctx context.Context, accessToken string) (*ExternalIdentity, error) {
	if r.cfg.ClientID == "" {
		return nil, fmt.Errorf("facebook provider is not configured")
	}

	query := url.Values{
		"fields":       {"id,email,first_name,last_name,picture"},
		"access_token": {accessToken},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", r.graphURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn().Int("status", resp.StatusCode).Msg("facebook rejected access token")
		return nil, nil
	}

	var profile facebookProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("facebook profile response: %w", err)
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, nil
	}

	return &ExternalIdentity{
		SubjectID: profile.ID,
		Provider:  ProviderFacebook,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Avatar:    profile.Picture.Data.URL,
	}, nil
}
