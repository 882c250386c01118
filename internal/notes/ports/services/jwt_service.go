// Package services defines service ports for the notes service.
package services

import (
	"context"
	"errors"
)

// TokenService проверяет access токен и возвращает идентификатор владельца.
type TokenService interface {
	ValidateAccessToken(ctx context.Context, token string) (ownerID string, err error)
}

// Ошибки проверки токена.
var (
	ErrInvalidJWTToken = errors.New("invalid JWT token")
	ErrExpiredJWTToken = errors.New("JWT token has expired")
)
