package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/destiny-cli/internal/domain"
)

const maxOAuthResponseBytes = 1 << 20

// ErrRefreshTokenInvalid means the refresh grant was rejected and a new
// login is required.
var ErrRefreshTokenInvalid = errors.New("refresh token is invalid or expired")

// TokenClient talks to the Bungie OAuth token endpoint.
type TokenClient struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	// APIKey is sent as X-API-Key, which the token endpoint expects too.
	APIKey         string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	MembershipID     string `json:"membership_id"`
}

type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exchange trades an authorization code for a grant.
func (c TokenClient) Exchange(ctx context.Context, code string) (domain.TokenSet, error) {
	if code == "" {
		return domain.TokenSet{}, errors.New("authorization code is required")
	}
	values := url.Values{}
	values.Set("grant_type", "authorization_code")
	values.Set("code", code)
	return c.request(ctx, values)
}

func (c TokenClient) Refresh(ctx context.Context, refreshToken string) (domain.TokenSet, error) {
	if refreshToken == "" {
		return domain.TokenSet{}, errors.New("refresh token is required")
	}
	values := url.Values{}
	values.Set("grant_type", "refresh_token")
	values.Set("refresh_token", refreshToken)
	return c.request(ctx, values)
}

func (c TokenClient) request(ctx context.Context, values url.Values) (domain.TokenSet, error) {
	if c.ClientID == "" {
		return domain.TokenSet{}, errors.New("client id is required")
	}
	endpoint := c.TokenURL
	if endpoint == "" {
		endpoint = DefaultTokenURL
	}
	if c.ClientSecret == "" {
		values.Set("client_id", c.ClientID)
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.ClientSecret != "" {
		req.SetBasicAuth(c.ClientID, c.ClientSecret)
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("%s grant: %w", values.Get("grant_type"), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		oauthErr := decodeOAuthError(resp)
		if values.Get("grant_type") == "refresh_token" && oauthErr.Error == "invalid_grant" {
			return domain.TokenSet{}, fmt.Errorf("%w: %s", ErrRefreshTokenInvalid, formatOAuthError(resp.StatusCode, oauthErr))
		}
		return domain.TokenSet{}, fmt.Errorf("token endpoint returned %s", formatOAuthError(resp.StatusCode, oauthErr))
	}

	var tokens tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOAuthResponseBytes)).Decode(&tokens); err != nil {
		return domain.TokenSet{}, fmt.Errorf("decode token response: %w", err)
	}
	if tokens.AccessToken == "" {
		return domain.TokenSet{}, errors.New("token response missing access_token")
	}

	return domain.TokenSet{
		AccessToken:      tokens.AccessToken,
		RefreshToken:     tokens.RefreshToken,
		TokenType:        tokens.TokenType,
		ExpiresIn:        tokens.ExpiresIn,
		RefreshExpiresIn: tokens.RefreshExpiresIn,
		MembershipID:     tokens.MembershipID,
	}, nil
}

func (c TokenClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c TokenClient) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func decodeOAuthError(resp *http.Response) oauthErrorResponse {
	var oauthErr oauthErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxOAuthResponseBytes)).Decode(&oauthErr)
	return oauthErr
}

func formatOAuthError(statusCode int, oauthErr oauthErrorResponse) string {
	if oauthErr.Error == "" {
		return fmt.Sprintf("status %d", statusCode)
	}
	if oauthErr.ErrorDescription != "" {
		return oauthErr.Error + ": " + oauthErr.ErrorDescription
	}
	return oauthErr.Error
}
