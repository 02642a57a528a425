package clients

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printfleet-system/internal/database/dbtest"
	sysutils "printfleet-system/internal/utils"
)

func TestServices_Health(t *testing.T) {
	db := dbtest.New(t)
	tokens := sysutils.NewTokenIssuer("secret", 0)

	without := NewServices(db, nil, tokens, zap.NewNop())
	assert.True(t, without.IsDatabaseHealthy(context.Background()))
	assert.False(t, without.IsRedisHealthy(context.Background()))
	assert.False(t, without.RedisEnabled())

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	with := NewServices(db, rdb, tokens, zap.NewNop())
	require.NotNil(t, with.Printers)
	assert.True(t, with.IsRedisHealthy(context.Background()))

	mr.Close()
	assert.False(t, with.IsRedisHealthy(context.Background()))
}
