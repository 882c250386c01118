package http

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notecache/internal/notes/ports/services"
	"notecache/pkg/logger"
)

// Ключи fiber.Locals и заголовки.
const (
	LocalUserContext = "userContext"
	LocalOwnerID     = "ownerID"
	HeaderRequestID  = "X-Request-ID"
)

// Константы для логирования.
const (
	LogRequestStarted   = "request started"
	LogRequestCompleted = "request completed"
	LogRequestFailed    = "request failed"
	LogServerPanic      = "server panic"

	ErrorNoAuthHeader       = "no authorization header provided"
	ErrorInvalidTokenFormat = "invalid token format"
	ErrorInvalidToken       = "invalid or expired token"
	ErrorTokenExpired       = "token has expired"
	ErrorInternal           = "internal server error"
)

// HTTPObserver учитывает обработанные запросы.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// requestContext возвращает контекст запроса с логгером и request id.
func requestContext(c fiber.Ctx) context.Context {
	if ctx, ok := c.Locals(LocalUserContext).(context.Context); ok {
		return ctx
	}
	return c.Context()
}

// NewRequestIDMiddleware кладет в контекст запроса request id и логгер.
func NewRequestIDMiddleware(base *logger.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		requestID := c.Get(HeaderRequestID)
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		c.Set(HeaderRequestID, requestID)

		ctx := logger.NewRequestIDContext(c.Context(), requestID)
		if base != nil {
			ctx = logger.NewContext(ctx, base)
		}
		c.Locals(LocalUserContext, ctx)

		return c.Next()
	}
}

// NewLoggerMiddleware логирует запросы и передает их длительность observer.
func NewLoggerMiddleware(observer HTTPObserver) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx := requestContext(c)
		start := time.Now()

		log := logger.Log(ctx).With(
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.String("ip", c.IP()),
		)
		log.Debug(ctx, LogRequestStarted)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
		if observer != nil {
			observer.ObserveHTTP(c.Method(), c.Route().Path, status, latency)
		}

		fields := []zap.Field{zap.Int("status", status), zap.Duration("latency", latency)}
		if err != nil {
			log.Error(ctx, LogRequestFailed, append(fields, zap.Error(err))...)
			return err
		}
		log.Info(ctx, LogRequestCompleted, fields...)
		return nil
	}
}

// NewRecoveryMiddleware превращает панику обработчика в ответ 500.
func NewRecoveryMiddleware() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				ctx := requestContext(c)
				logger.Log(ctx).Error(ctx, LogServerPanic,
					zap.String("error", fmt.Sprintf("%v", r)),
					zap.String("stack", string(debug.Stack())))
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrorInternal})
			}
		}()
		return c.Next()
	}
}

// NewAuthMiddleware проверяет Bearer токен и кладет ID владельца в Locals.
func NewAuthMiddleware(tokens services.TokenService) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx := requestContext(c)
		log := logger.Log(ctx).With(zap.String("middleware", "auth"))

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			log.Debug(ctx, ErrorNoAuthHeader)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ErrorNoAuthHeader})
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			log.Debug(ctx, ErrorInvalidTokenFormat)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ErrorInvalidTokenFormat})
		}

		ownerID, err := tokens.ValidateAccessToken(ctx, token)
		if err != nil {
			msg := ErrorInvalidToken
			if errors.Is(err, services.ErrExpiredJWTToken) {
				msg = ErrorTokenExpired
			}
			log.Debug(ctx, msg, zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
		}

		c.Locals(LocalOwnerID, ownerID)
		return c.Next()
	}
}
