// Package services provides implementations of service interfaces.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"notecache/internal/notes/ports/services"
	"notecache/pkg/logger"
)

// Константы для работы с JWT.
const (
	methodValidateToken = "ValidateAccessToken"
	msgTokenValidated   = "token validated"
	msgTokenExpired     = "token has expired"
	msgTokenRejected    = "token rejected"
	msgMissingOwner     = "token carries no owner id"
	errCtxValidating    = "validating token"
)

// Claims - утверждения access токена. Владелец берется из user_id, иначе из sub.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// OwnerID возвращает идентификатор владельца из утверждений.
func (c *Claims) OwnerID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// ServiceJWT проверяет HMAC-подписанные access токены.
type ServiceJWT struct {
	secretKey []byte
	parser    *jwt.Parser
}

var _ services.TokenService = (*ServiceJWT)(nil)

// NewJWT создает новый экземпляр сервиса JWT.
func NewJWT(secretKey string) *ServiceJWT {
	return &ServiceJWT{
		secretKey: []byte(secretKey),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{
				jwt.SigningMethodHS256.Alg(),
				jwt.SigningMethodHS384.Alg(),
				jwt.SigningMethodHS512.Alg(),
			}),
			jwt.WithExpirationRequired(),
		),
	}
}

// ValidateAccessToken проверяет JWT токен и возвращает ID владельца.
func (s *ServiceJWT) ValidateAccessToken(ctx context.Context, tokenString string) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", methodValidateToken))

	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug(ctx, msgTokenExpired)
			return "", fmt.Errorf("%s: %w", errCtxValidating, services.ErrExpiredJWTToken)
		}
		log.Debug(ctx, msgTokenRejected, zap.Error(err))
		return "", fmt.Errorf("%s: %w", errCtxValidating, services.ErrInvalidJWTToken)
	}

	ownerID := claims.OwnerID()
	if ownerID == "" {
		log.Debug(ctx, msgMissingOwner)
		return "", fmt.Errorf("%s: %w", errCtxValidating, services.ErrInvalidJWTToken)
	}

	log.Debug(ctx, msgTokenValidated, zap.String("owner_id", ownerID))
	return ownerID, nil
}
