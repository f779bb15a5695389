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

// GoogleResolver exchanges an OAuth authorization code for a Google profile.
type GoogleResolver struct {
	cfg        *config.OAuthProviderConfig
	httpClient *http.Client

	// overridable in tests
	tokenURL    string
	userinfoURL string
}

func NewGoogleResolver(cfg *config.OAuthProviderConfig) *GoogleResolver {
	return &GoogleResolver{
		cfg:         cfg,
		httpClient:  newHTTPClient(),
		tokenURL:    "https://oauth2.googleapis.com/token",
		userinfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
	}
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type googleUserinfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (r *GoogleResolver) Resolve(ctx context.Context, code string) (*ExternalIdentity, error) {
	if r.cfg.ClientID == "" || r.cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google provider is not configured")
	}

	form := url.Values{
		"code":          {code},
		"client_id":     {r.cfg.ClientID},
		"client_secret": {r.cfg.ClientSecret},
		"redirect_uri":  {r.cfg.RedirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// provider declined the code, not a transport problem
		logger.Warn().Int("status", resp.StatusCode).Msg("google rejected authorization code")
		return nil, nil
	}

	var token googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("google token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, nil
	}

	infoReq, err := http.NewRequestWithContext(ctx, "GET", r.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	infoReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	infoResp, err := r.httpClient.Do(infoReq)
	if err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	defer infoResp.Body.Close()

	if infoResp.StatusCode != http.StatusOK {
		logger.Warn().Int("status", infoResp.StatusCode).Msg("google rejected userinfo request")
		return nil, nil
	}

	var info googleUserinfo
	if err := json.NewDecoder(infoResp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("google userinfo response: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, nil
	}

	return &ExternalIdentity{
		SubjectID: info.Sub,
		Provider:  ProviderGoogle,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		Avatar:    info.Picture,
	}, nil
}
