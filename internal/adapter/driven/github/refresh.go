package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kzap42/worknotes/internal/domain/model"
)

// refreshRequest is the JSON body GitHub's token endpoint expects for a
// refresh-token grant.
type refreshRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
}

// refreshResponse is the token endpoint's reply. GitHub reports grant
// failures as a 200 with an error field, so both shapes are decoded here.
type refreshResponse struct {
	model.TokenPayload
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RefreshToken exchanges a refresh token for a fresh access token at
// GitHub's OAuth token endpoint. A single attempt, no retries.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string, cfg model.ProviderConfig) (*model.TokenPayload, error) {
	body, err := json.Marshal(refreshRequest{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh token: unexpected status %d", resp.StatusCode)
	}

	var decoded refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("refresh token rejected: %s", decoded.Error)
	}
	if decoded.AccessToken == "" {
		return nil, fmt.Errorf("refresh response missing access_token")
	}

	payload := decoded.TokenPayload
	return &payload, nil
}
