package domain

import "time"

// Well-known ProviderData keys
const (
	ProviderDataLegacyToken     = "legacy_token"
	ProviderDataRoleAccessKeyID = "role_access_key_id"
	ProviderDataRoleSecretKey   = "role_secret_access_key"
	ProviderDataRoleSession     = "role_session_token"
	ProviderDataRoleExpiresAt   = "role_expires_at"
)

// Credential holds the stored tokens and expiry metadata for a shop
type Credential struct {
	ShopID                string            `json:"shop_id" bson:"shop_id"`
	Token                 string            `json:"token" bson:"token"`
	TokenSecret           string            `json:"token_secret,omitempty" bson:"token_secret,omitempty"`
	RefreshToken          string            `json:"refresh_token,omitempty" bson:"refresh_token,omitempty"`
	TokenExpiresAt        *time.Time        `json:"token_expires_at,omitempty" bson:"token_expires_at,omitempty"`
	RefreshTokenExpiresAt *time.Time        `json:"refresh_token_expires_at,omitempty" bson:"refresh_token_expires_at,omitempty"`
	UID                   string            `json:"uid,omitempty" bson:"uid,omitempty"`
	ProviderData          map[string]string `json:"provider_data,omitempty" bson:"provider_data,omitempty"`
	Version               int64             `json:"version" bson:"version"` // Incremented on every successful save
	UpdatedAt             time.Time         `json:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy so refresh functions can mutate freely
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := *c
	if c.TokenExpiresAt != nil {
		t := *c.TokenExpiresAt
		out.TokenExpiresAt = &t
	}
	if c.RefreshTokenExpiresAt != nil {
		t := *c.RefreshTokenExpiresAt
		out.RefreshTokenExpiresAt = &t
	}
	if c.ProviderData != nil {
		out.ProviderData = make(map[string]string, len(c.ProviderData))
		for k, v := range c.ProviderData {
			out.ProviderData[k] = v
		}
	}
	return &out
}

// ExpiredAt reports whether the access token is expired at the given instant.
// A credential without an expiry never expires by timestamp.
func (c *Credential) ExpiredAt(at time.Time) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return !at.Before(*c.TokenExpiresAt)
}

// SetProviderData stores an opaque provider field
func (c *Credential) SetProviderData(key, value string) {
	if c.ProviderData == nil {
		c.ProviderData = make(map[string]string)
	}
	c.ProviderData[key] = value
}

// TokenGrant is the result of a token exchange with a vendor
type TokenGrant struct {
	AccessToken           string
	RefreshToken          string
	ExpiresAt             *time.Time
	RefreshTokenExpiresAt *time.Time
}

// Apply copies the grant onto the credential. An empty refresh token keeps the previous one.
func (g *TokenGrant) Apply(c *Credential) {
	c.Token = g.AccessToken
	if g.RefreshToken != "" {
		c.RefreshToken = g.RefreshToken
	}
	if g.ExpiresAt != nil {
		c.TokenExpiresAt = g.ExpiresAt
	}
	if g.RefreshTokenExpiresAt != nil {
		c.RefreshTokenExpiresAt = g.RefreshTokenExpiresAt
	}
}
