package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/mollybeach/secure-user-api/internal/auth"
	"github.com/mollybeach/secure-user-api/internal/logger"
)

const (
	providerName = "github"

	userURL   = "https://api.github.com/user"
	emailsURL = "https://api.github.com/user/emails"
)

// Provider implements OAuth authentication against GitHub. GitHub is plain
// OAuth2 (no OIDC id_token), so the profile comes from the REST API after
// the code exchange. All outbound calls are bounded by the configured
// timeout.
type Provider struct {
	oauthConfig *oauth2.Config
	timeout     time.Duration
}

func New(clientID, clientSecret, redirectURL string, timeout time.Duration) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     githuboauth.Endpoint,
		Scopes: []string{
			"read:user",
			"user:email",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		timeout:     timeout,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.ExternalProfile, error) {

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("github token exchange failed: %w", err)
	}

	client := p.oauthConfig.Client(ctx, token)

	profile, err := fetchUser(ctx, client)
	if err != nil {
		return nil, err
	}

	// The profile email is omitted when the user keeps it private, and
	// says nothing about ownership even when present. The emails endpoint
	// lists the primary address along with its verified flag, which the
	// account-linking step depends on.
	email, verified, err := fetchPrimaryEmail(ctx, client)
	if err != nil {
		logger.Warn("github email lookup failed", map[string]any{
			"error": err.Error(),
		})
	} else {
		profile.Email = email
		profile.EmailVerified = verified
	}

	return profile, nil
}

func fetchUser(ctx context.Context, client *http.Client) (*auth.ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github profile request returned %d", resp.StatusCode)
	}

	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("github profile parse failed: %w", err)
	}

	if payload.ID == 0 {
		return nil, errors.New("github profile missing user id")
	}

	return &auth.ExternalProfile{
		Provider:       providerName,
		ProviderUserID: strconv.FormatInt(payload.ID, 10),
		Username:       payload.Login,
		Email:          payload.Email,
	}, nil
}

func fetchPrimaryEmail(ctx context.Context, client *http.Client) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, emailsURL, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("github emails request returned %d", resp.StatusCode)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", false, err
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified, nil
		}
	}
	return "", false, errors.New("no primary email on github account")
}
