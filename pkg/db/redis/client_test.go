package redis_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbredis "notecache/pkg/db/redis"
)

func TestNew_Success(t *testing.T) {
	s := miniredis.RunT(t)

	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	cfg := dbredis.DefaultConfig()
	cfg.Host = s.Host()
	cfg.Port = port

	client, err := dbredis.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNew_SelectsDatabase(t *testing.T) {
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	cfg := dbredis.DefaultConfig()
	cfg.Host = s.Host()
	cfg.Port = port
	cfg.DB = 3

	client, err := dbredis.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())

	s.Select(3)
	assert.True(t, s.Exists("k"))
}

func TestNew_ConnectionFailure(t *testing.T) {
	cfg := dbredis.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.DialTimeout = 100 * time.Millisecond

	client, err := dbredis.New(context.Background(), cfg)

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), dbredis.ErrConnect)
}

func TestConfigAddress(t *testing.T) {
	cfg := dbredis.Config{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Address())
}

func TestNewClient_ServerDownAtStartup(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	host := s.Host()
	s.Close()

	cfg := dbredis.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.DialTimeout = 100 * time.Millisecond

	client := dbredis.NewClient(cfg)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	require.Error(t, client.Ping(ctx).Err())

	require.NoError(t, s.Restart())
	assert.NoError(t, client.Ping(ctx).Err(), "client must reconnect once redis is back")
}
