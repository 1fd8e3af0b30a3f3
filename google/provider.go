// Package google implements the Google sign-in flow: it sends the
// browser through the OAuth consent screen and funnels the resulting
// profile into the account lifecycle as an active user.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/semibit/go-authware"
)

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Config holds the Google OAuth client options.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the scopes the sign-in flow needs.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Provider talks to Google's OAuth endpoints.
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New creates a Google provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

// AuthCodeURL returns the consent screen URL for the given signed state.
func (p *Provider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(p.config.Scopes, " ")},
		"state":         {state},
		"access_type":   {"offline"},
	}

	return p.config.AuthURL + "?" + params.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange trades an authorization code for an access token.
func (p *Provider) Exchange(ctx context.Context, code string) (string, error) {
	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.CallbackURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "could not build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "token exchange request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "could not read token response")
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "could not decode token response")
	}

	if resp.StatusCode != http.StatusOK || token.Error != "" {
		return "", goerrors.New("token exchange rejected", goerrors.CategoryAuth).
			WithMetadata(map[string]any{
				"status":      resp.StatusCode,
				"error":       token.Error,
				"description": token.ErrorDesc,
			})
	}

	if token.AccessToken == "" {
		return "", goerrors.New("token response missing access token", goerrors.CategoryAuth)
	}

	return token.AccessToken, nil
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// FetchProfile resolves the access token into a normalized identity.
func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (authware.ExternalIdentity, error) {
	var identity authware.ExternalIdentity

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return identity, goerrors.Wrap(err, goerrors.CategoryInternal, "could not build userinfo request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return identity, goerrors.Wrap(err, goerrors.CategoryOperation, "userinfo request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return identity, goerrors.Wrap(err, goerrors.CategoryOperation, "could not read userinfo response")
	}

	if resp.StatusCode != http.StatusOK {
		return identity, goerrors.New("userinfo request rejected", goerrors.CategoryAuth).
			WithMetadata(map[string]any{
				"status": resp.StatusCode,
			})
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return identity, goerrors.Wrap(err, goerrors.CategoryOperation, "could not decode userinfo response")
	}

	if info.Email == "" {
		return identity, goerrors.New("userinfo missing email", goerrors.CategoryAuth)
	}

	identity.Email = info.Email
	identity.Name = info.Name
	identity.Avatar = info.Picture

	return identity, nil
}
