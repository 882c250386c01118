package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"

	cacheAdapter "notecache/internal/notes/adapters/cache"
	grpcAdapter "notecache/internal/notes/adapters/grpc"
	notehttp "notecache/internal/notes/adapters/http"
	"notecache/internal/notes/adapters/memory"
	"notecache/internal/notes/app"
	"notecache/internal/notes/domain/entities"
	"notecache/pkg/logger"
)

func TestServeWithRedisDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:        s.Addr(),
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	s.Close()

	store := memory.NewNoteStore()
	redisCache := cacheAdapter.NewRedisCache(context.Background(), client, cacheAdapter.Options{})
	require.Error(t, redisCache.Ping(context.Background()))

	notes := app.NewNoteUseCase(store, redisCache, time.Minute)
	monitor := grpcAdapter.NewHealthMonitor(store, redisCache, health.NewServer(), time.Minute)

	application := fiber.New()
	notehttp.SetupRouter(application, notehttp.Deps{
		Notes:  notes,
		Tokens: stubTokens{},
		Health: monitor,
		Logger: logger.NewNop(),
	})

	resp, data := doRequest(t, application, fiber.MethodPost, "/api/v1/notes", `{"title":"t","content":"c"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	var created entities.Note
	require.NoError(t, json.Unmarshal(data, &created))

	resp, data = doRequest(t, application, fiber.MethodGet, "/api/v1/notes/"+created.ID, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), created.ID)

	resp, data = doRequest(t, application, fiber.MethodGet, "/api/v1/notes", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listed []entities.Note
	require.NoError(t, json.Unmarshal(data, &listed))
	assert.Len(t, listed, 1)

	resp, data = doRequest(t, application, fiber.MethodGet, "/api/v1/notes/count", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"count":1}`, string(data))

	resp, _ = doRequest(t, application, fiber.MethodDelete, "/api/v1/notes/"+created.ID, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	healthResp, err := application.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, healthResp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(healthResp.Body).Decode(&body))
	assert.Equal(t, grpcAdapter.StatusDegraded, body["status"])
	assert.Equal(t, grpcAdapter.StatusDown, body["cache"])
}
