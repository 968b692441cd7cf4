package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindAuthExpired},
		{http.StatusForbidden, KindInvalidRequest},
		{http.StatusNotFound, KindNotFound},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusUnprocessableEntity, KindInvalidRequest},
		{http.StatusRequestTimeout, KindTransientUpstream},
		{http.StatusBadGateway, KindTransientUpstream},
		{http.StatusConflict, KindUnclassified},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, KindForStatus(tt.status))
		})
	}
}

func TestClassify(t *testing.T) {
	wrapped := fmt.Errorf("failed to list receipts: %w", NewHTTPError(401, "invalid_token", "access token expired"))

	ie := Classify(ProviderEtsy, "list_receipts", wrapped)
	assert.Equal(t, KindAuthExpired, ie.Kind)
	assert.Equal(t, 401, ie.Status)
	assert.Equal(t, "invalid_token", ie.Code)
	assert.ErrorIs(t, ie, wrapped)

	dead := Classify(ProviderWix, "refresh_token", ErrCredentialDead)
	assert.Equal(t, KindFatalProtocol, dead.Kind)

	already := NewImportError(KindRateLimited, ProviderSquare, "search_orders", WithRetryAfter(3*time.Second))
	assert.Same(t, already, Classify(ProviderSquare, "other", fmt.Errorf("wrapped: %w", already)))

	assert.Nil(t, Classify(ProviderSquare, "noop", nil))
	assert.Equal(t, KindUnclassified, Classify(ProviderFaire, "get_orders", errors.New("eof")).Kind)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewHTTPError(503, "", "unavailable")))
	assert.True(t, IsRetryable(NewImportError(KindRateLimited, ProviderAmazon, "get_orders")))
	assert.False(t, IsRetryable(NewHTTPError(401, "", "unauthorized")))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestIsIgnorable(t *testing.T) {
	assert.True(t, IsIgnorable(NewImportError(KindAuthExpired, ProviderAmazon, "get_orders", WithStatus(403))))
	assert.False(t, IsIgnorable(NewImportError(KindAuthExpired, ProviderEtsy, "get_receipts", WithStatus(401))))
	assert.False(t, IsIgnorable(NewImportError(KindInvalidRequest, ProviderShopify, "list_orders", WithStatus(403))))
	assert.False(t, IsIgnorable(NewHTTPError(403, "", "code: 403")))
}

func TestClassifyAvailability(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Availability
	}{
		{"no error", nil, Available},
		{"unauthorized", NewHTTPError(401, "", "unauthorized"), Inactive},
		{"not found", fmt.Errorf("failed to get shop: %w", NewHTTPError(404, "", "not found")), Inactive},
		{"forbidden", NewHTTPError(403, "", "forbidden"), Available},
		{"server error", NewHTTPError(500, "", "oops"), Available},
		{"network", errors.New("connection reset"), Available},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAvailability(tt.err))
			assert.Equal(t, tt.want == Inactive, TreatAsInactive(tt.err))
		})
	}
}

func TestImportError_Error(t *testing.T) {
	err := NewImportError(KindAuthExpired, ProviderAmazon, "get_orders",
		WithStatus(403), WithCode("Unauthorized"), WithMessage("access to requested resource is denied"))

	assert.Equal(t, "Amazon get_orders: auth_expired (status 403) [Unauthorized]: access to requested resource is denied", err.Error())
}
