package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/ports"

	"golang.org/x/oauth2"
)

// Config describes one vendor's token endpoint
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	// AuthInParams sends the client credentials in the form body instead of basic auth
	AuthInParams bool
}

// Refresher exchanges refresh tokens at a vendor's OAuth2 token endpoint
type Refresher struct {
	cfg        oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// NewRefresher creates a refresher. A nil httpClient uses a client with a 30s timeout.
func NewRefresher(cfg Config, httpClient *http.Client) *Refresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	style := oauth2.AuthStyleInHeader
	if cfg.AuthInParams {
		style = oauth2.AuthStyleInParams
	}
	return &Refresher{
		cfg: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: style,
			},
		},
		httpClient: httpClient,
		now:        time.Now,
	}
}

// RefreshToken performs a refresh_token grant
func (r *Refresher) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	tok, err := r.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			msg := re.ErrorDescription
			if msg == "" {
				msg = string(re.Body)
			}
			return nil, fmt.Errorf("failed to refresh token: %w", domain.NewHTTPError(re.Response.StatusCode, re.ErrorCode, msg))
		}
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	grant := &domain.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		grant.ExpiresAt = &exp
	}
	if secs, ok := seconds(tok.Extra("refresh_token_expires_in")); ok {
		exp := r.now().Add(time.Duration(secs) * time.Second)
		grant.RefreshTokenExpiresAt = &exp
	}
	return grant, nil
}

// seconds reads a numeric token response field that vendors send as number or string
func seconds(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n > 0
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil && i > 0
	default:
		return 0, false
	}
}

var _ ports.TokenRefresher = (*Refresher)(nil)
