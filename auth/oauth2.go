package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/corexis/netkit"
)

func basicAuthHeader(username, password string) string {
	creds := username + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// OAuth2Config configures an OAuth2 client-credentials / refresh-token
// authenticator.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Scopes       []string
	HTTPClient   *http.Client
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// NewOAuth2 builds a Bearer authenticator whose refresh POSTs
// application/x-www-form-urlencoded grant_type=refresh_token to TokenURL.
// The initial access token is empty, forcing a refresh on first use.
func NewOAuth2(cfg OAuth2Config) *Bearer {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	refreshToken := cfg.RefreshToken

	refresh := func(ctx context.Context) (string, time.Duration, error) {
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refreshToken)
		form.Set("client_id", cfg.ClientID)
		if cfg.ClientSecret != "" {
			form.Set("client_secret", cfg.ClientSecret)
		}
		if len(cfg.Scopes) > 0 {
			form.Set("scope", strings.Join(cfg.Scopes, " "))
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return "", 0, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(httpReq)
		if err != nil {
			return "", 0, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", 0, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", 0, fmt.Errorf("oauth2: token endpoint returned %d: %s", resp.StatusCode, string(body))
		}

		var tr tokenResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			return "", 0, err
		}
		if tr.RefreshToken != "" {
			refreshToken = tr.RefreshToken
		}
		return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
	}

	return NewBearer("", refresh)
}

var _ netkit.Authenticator = (*Bearer)(nil)
