package logger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// NewRequestIDContext связывает с контекстом идентификатор запроса из заголовка X-Request-ID.
// Пустое значение заменяется сгенерированным, чтобы у каждой операции с заметками был id.
func NewRequestIDContext(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID сообщает идентификатор запроса, если он задан.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// GenerateRequestID выдает случайный UUID для запросов без X-Request-ID.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID помечает записи logger полем request_id текущего запроса.
func (l *Logger) WithRequestID(ctx context.Context) *Logger {
	id, ok := GetRequestID(ctx)
	if !ok {
		return l
	}
	return l.With(zap.String(RequestID, id))
}
