package redis_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/vitrina/internal/adapters/storage/redis"
)

func TestLayer_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR no configurado")
	}
	ctx := context.Background()
	client := redis.NewClient(addr, 0)
	defer client.Close()

	l := redis.New(client, "vitrina-test:"+uuid.NewString()+":")
	require.NoError(t, l.Ping(ctx))
	assert.Equal(t, "persistent", l.Name())

	_, ok, err := l.Read(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	a, b := l.Scoped("a"), l.Scoped("b")
	require.NoError(t, a.Write(ctx, "k", "1"))
	v, ok, err := a.Read(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok, _ = b.Read(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, a.Remove(ctx, "k"))
	_, ok, _ = a.Read(ctx, "k")
	assert.False(t, ok)
}
