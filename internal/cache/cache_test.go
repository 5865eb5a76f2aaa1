package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"nanohub/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(10, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "device-1", []byte(`{"os":"14.2"}`), time.Minute))

	value, err := c.Get(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"os":"14.2"}`), value)
}

func TestMemoryCacheZeroTTLExpiresImmediately(t *testing.T) {
	c := NewMemoryCache(10, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	_, err := c.Get(ctx, "k")
	assert.True(t, errors.Is(err, types.ErrCacheMiss))
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(10, zaptest.NewLogger(t))

	_, err := c.Get(context.Background(), "absent")
	assert.True(t, errors.Is(err, types.ErrCacheMiss))
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c := NewMemoryCache(10, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Invalidate(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.True(t, errors.Is(err, types.ErrCacheMiss))
}

func TestMemoryCacheEvictsOldestCreated(t *testing.T) {
	c := NewMemoryCache(3, zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
		time.Sleep(2 * time.Millisecond)
	}

	// A fourth insert must push out k0, the oldest-created entry
	require.NoError(t, c.Set(ctx, "k3", []byte("v"), time.Minute))
	assert.Equal(t, 3, c.Len())

	_, err := c.Get(ctx, "k0")
	assert.True(t, errors.Is(err, types.ErrCacheMiss))

	for _, key := range []string{"k1", "k2", "k3"} {
		_, err := c.Get(ctx, key)
		assert.NoError(t, err, key)
	}
}

func TestMemoryCacheOverwriteDoesNotEvict(t *testing.T) {
	c := NewMemoryCache(2, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "a", []byte("3"), time.Minute))

	value, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)

	value, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), value)
}

func TestCacheConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory driver", cfg: Config{Driver: "memory"}},
		{name: "redis without addr", cfg: Config{Driver: "redis"}, wantErr: true},
		{name: "unknown driver", cfg: Config{Driver: "memcached"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewDefaultsToMemory(t *testing.T) {
	cfg := &Config{}
	c, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "memory", cfg.Driver)
	assert.Equal(t, 2000, cfg.MaxEntries)
	assert.IsType(t, &MemoryCache{}, c)
}
