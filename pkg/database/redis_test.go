package database

import (
	"testing"

	"github.com/cresciperdi/intranet-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOptions(t *testing.T) {
	t.Run("single по умолчанию берёт addr", func(t *testing.T) {
		opts, err := RedisOptions(config.RedisConfig{Addr: "localhost:6379", DB: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)
		assert.Equal(t, 2, opts.DB)
		assert.Empty(t, opts.MasterName)
	})

	t.Run("sentinel без master_name", func(t *testing.T) {
		_, err := RedisOptions(config.RedisConfig{Mode: "sentinel", Addrs: []string{"s1:26379"}})
		assert.Error(t, err)
	})

	t.Run("sentinel", func(t *testing.T) {
		opts, err := RedisOptions(config.RedisConfig{Mode: "sentinel", Addrs: []string{"s1:26379", "s2:26379"}, MasterName: "mymaster"})
		require.NoError(t, err)
		assert.Equal(t, "mymaster", opts.MasterName)
	})

	t.Run("cluster сбрасывает DB", func(t *testing.T) {
		opts, err := RedisOptions(config.RedisConfig{Mode: "cluster", Addrs: []string{"n1:7000", "n2:7000"}, DB: 3})
		require.NoError(t, err)
		assert.Equal(t, 0, opts.DB)
	})

	t.Run("без адресов", func(t *testing.T) {
		_, err := RedisOptions(config.RedisConfig{})
		assert.Error(t, err)
	})

	t.Run("single с несколькими адресами", func(t *testing.T) {
		_, err := RedisOptions(config.RedisConfig{Addrs: []string{"a:1", "b:2"}})
		assert.Error(t, err)
	})

	t.Run("неизвестный режим", func(t *testing.T) {
		_, err := RedisOptions(config.RedisConfig{Mode: "ring", Addr: "a:1"})
		assert.Error(t, err)
	})
}
