package model

import "time"

// TokenPayload is the raw OAuth token shape delivered by the external
// authorization flow (and by provider refresh endpoints). Field names match
// the wire format both providers use.
type TokenPayload struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	Scope                 string `json:"scope,omitempty"`
	RefreshToken          string `json:"refresh_token,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in,omitempty"`
}

// TokenRecord is a TokenPayload stamped with its issuance time. IssuedAt is
// set exactly once per issuance by the token lifecycle, never by callers.
type TokenRecord struct {
	TokenPayload
	IssuedAt time.Time `json:"issued_at"`
}

// ExpiresAt returns the instant at which the token should be considered
// expired, given an early-refresh margin.
func (r TokenRecord) ExpiresAt(margin time.Duration) time.Time {
	return r.IssuedAt.Add(time.Duration(r.ExpiresIn)*time.Second - margin)
}

// ProviderConfig holds the OAuth client registration for a provider. It is
// set once by configuration and persisted independently of token records,
// since it outlives individual tokens.
type ProviderConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

// Valid reports whether the config carries the fields required for a
// refresh-token exchange.
func (c ProviderConfig) Valid() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
