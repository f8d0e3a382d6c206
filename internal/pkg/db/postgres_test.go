package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsenal-bot/internal/config"
)

func TestPoolConfigDefaults(t *testing.T) {
	pc, err := poolConfig(&config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "arsenal", Password: "pw", Name: "arsenal", PoolSize: 8,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, defaultConnectTimeout, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, defaultMaxConnLifetime, pc.MaxConnLifetime)
	assert.Equal(t, defaultMaxConnIdleTime, pc.MaxConnIdleTime)
	assert.Equal(t, "arsenal", pc.ConnConfig.Database)
}

func TestPoolConfigOverrides(t *testing.T) {
	pc, err := poolConfig(&config.DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Name: "n", PoolSize: 2,
		ConnectTimeout: 3 * time.Second, MaxConnLifetime: time.Minute, MaxConnIdleTime: 10 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, 3*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, 10*time.Second, pc.MaxConnIdleTime)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
}
