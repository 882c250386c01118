package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestIDFieldIsAppended(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &Logger{l: zap.New(core)}

	ctx := NewRequestIDContext(context.Background(), "req-42")
	log.Info(ctx, "with id")
	log.Info(context.Background(), "without id")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "req-42", entries[0].ContextMap()[RequestID])
		_, present := entries[1].ContextMap()[RequestID]
		assert.False(t, present)
	}
}
