package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecache/internal/notes/adapters/services"
	portservices "notecache/internal/notes/ports/services"
)

const secretKey = "test-secret-key"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestValidateAccessToken(t *testing.T) {
	ctx := context.Background()
	service := services.NewJWT(secretKey)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name        string
		token       string
		expectedID  string
		expectedErr error
	}{
		{
			name: "valid token with user_id",
			token: sign(t, jwt.SigningMethodHS256, []byte(secretKey), &services.Claims{
				UserID:           "user-123",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			}),
			expectedID: "user-123",
		},
		{
			name: "subject fallback",
			token: sign(t, jwt.SigningMethodHS512, []byte(secretKey), &services.Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "user-456", ExpiresAt: future},
			}),
			expectedID: "user-456",
		},
		{
			name: "expired token",
			token: sign(t, jwt.SigningMethodHS256, []byte(secretKey), &services.Claims{
				UserID:           "user-123",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past},
			}),
			expectedErr: portservices.ErrExpiredJWTToken,
		},
		{
			name: "missing expiry",
			token: sign(t, jwt.SigningMethodHS256, []byte(secretKey), &services.Claims{
				UserID: "user-123",
			}),
			expectedErr: portservices.ErrInvalidJWTToken,
		},
		{
			name: "wrong secret",
			token: sign(t, jwt.SigningMethodHS256, []byte("other-secret"), &services.Claims{
				UserID:           "user-123",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			}),
			expectedErr: portservices.ErrInvalidJWTToken,
		},
		{
			name: "unsigned token",
			token: sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, &services.Claims{
				UserID:           "user-123",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			}),
			expectedErr: portservices.ErrInvalidJWTToken,
		},
		{
			name: "no owner",
			token: sign(t, jwt.SigningMethodHS256, []byte(secretKey), &services.Claims{
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			}),
			expectedErr: portservices.ErrInvalidJWTToken,
		},
		{
			name:        "malformed token",
			token:       "not.a.token",
			expectedErr: portservices.ErrInvalidJWTToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ownerID, err := service.ValidateAccessToken(ctx, tt.token)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				assert.Empty(t, ownerID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, ownerID)
		})
	}
}
