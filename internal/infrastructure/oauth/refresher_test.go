package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commerce-import-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresher_RefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "r1", r.PostForm.Get("refresh_token"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new","token_type":"bearer","refresh_token":"r2","expires_in":3600,"refresh_token_expires_in":8726400}`))
	}))
	defer server.Close()

	r := NewRefresher(Config{ClientID: "client", ClientSecret: "secret", TokenURL: server.URL}, server.Client())
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	grant, err := r.RefreshToken(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "new", grant.AccessToken)
	assert.Equal(t, "r2", grant.RefreshToken)
	require.NotNil(t, grant.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *grant.ExpiresAt, time.Minute)
	require.NotNil(t, grant.RefreshTokenExpiresAt)
	assert.Equal(t, now.Add(101*24*time.Hour), *grant.RefreshTokenExpiresAt)
}

func TestRefresher_RejectedGrantCarriesCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token has been revoked"}`))
	}))
	defer server.Close()

	r := NewRefresher(Config{ClientID: "client", ClientSecret: "secret", TokenURL: server.URL, AuthInParams: true}, server.Client())

	_, err := r.RefreshToken(context.Background(), "revoked")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, domain.StatusOf(err))
	assert.Equal(t, "invalid_grant", domain.CodeOf(err))
	assert.Contains(t, err.Error(), "Refresh token has been revoked")
}
